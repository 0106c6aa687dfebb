package repository

import (
	"context"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type metricsCacheRepository struct {
	db *gorm.DB
}

// NewMetricsCacheRepository creates a new metrics cache repository instance
func NewMetricsCacheRepository(db *gorm.DB) MetricsCacheRepository {
	return &metricsCacheRepository{db: db}
}

func (r *metricsCacheRepository) Upsert(ctx context.Context, entry *models.MetricsCache) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payload_json",
			"generated_at",
			"updated_at",
		}),
	}).Create(entry).Error
	return storeErr("upsert metrics cache", err)
}

func (r *metricsCacheRepository) GetByCompanyID(ctx context.Context, companyID string) (*models.MetricsCache, error) {
	var entry models.MetricsCache
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&entry).Error; err != nil {
		return nil, storeErr("get metrics cache", err)
	}
	return &entry, nil
}
