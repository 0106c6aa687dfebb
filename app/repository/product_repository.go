package repository

import (
	"context"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// UpsertMany inserts or updates products keyed by (company_id, external_id).
func (r *productRepository) UpsertMany(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "company_id"},
			{Name: "external_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"metadata_json",
			"updated_at",
		}),
	}).CreateInBatches(products, upsertBatchSize).Error
	return storeErr("upsert products", err)
}

// Count returns the number of cached products of a company.
func (r *productRepository) Count(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, storeErr("count products", err)
}

// NamesByExternalID maps product ids to display names. Unknown ids are absent from the map.
func (r *productRepository) NamesByExternalID(ctx context.Context, companyID string, productIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(productIDs))
	if len(productIDs) == 0 {
		return names, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Select("external_id", "name").
		Where("company_id = ? AND external_id IN ?", companyID, productIDs).
		Find(&products).Error
	if err != nil {
		return nil, storeErr("product names", err)
	}
	for _, p := range products {
		names[p.ExternalID] = p.Name
	}
	return names, nil
}
