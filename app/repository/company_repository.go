package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// companyRepository implements the CompanyRepository interface
type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new company repository instance
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

// GetByExternalID retrieves a company by its upstream identifier.
// A missing company is reported as gorm.ErrRecordNotFound (see IsNotFound).
func (r *companyRepository) GetByExternalID(ctx context.Context, companyID string) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).Where("external_id = ?", companyID).First(&company).Error
	if err != nil {
		return nil, storeErr("get company", err)
	}
	return &company, nil
}

// Ensure creates the company row if it does not exist yet.
func (r *companyRepository) Ensure(ctx context.Context, companyID string) error {
	company := &models.Company{
		ExternalID: companyID,
		Tier:       models.CompanyTierFree,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(company).Error
	return storeErr("ensure company", err)
}

// UpdateLastSyncedAt stores the timestamp of the last successful sync.
func (r *companyRepository) UpdateLastSyncedAt(ctx context.Context, companyID string, at time.Time) error {
	at = at.UTC()
	err := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("external_id = ?", companyID).
		Update("last_synced_at", &at).Error
	return storeErr("update last sync", err)
}
