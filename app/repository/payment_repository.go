package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// UpsertMany inserts or updates payments keyed by (company_id, external_id).
// created_at keeps the value of the first insert.
func (r *paymentRepository) UpsertMany(ctx context.Context, payments []models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "company_id"},
			{Name: "external_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"membership_id",
			"user_id",
			"status",
			"final_amount",
			"currency",
			"paid_at",
			"refunded_at",
			"updated_at",
		}),
	}).CreateInBatches(payments, upsertBatchSize).Error
	return storeErr("upsert payments", err)
}

// Count returns the number of cached payments of a company.
func (r *paymentRepository) Count(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, storeErr("count payments", err)
}

// SumPaid sums final_amount (minor units) of paid payments with paid_at in [start, end].
func (r *paymentRepository) SumPaid(ctx context.Context, companyID string, start, end time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("COALESCE(SUM(final_amount), 0)").
		Where("company_id = ? AND status = ? AND paid_at >= ? AND paid_at <= ?",
			companyID, models.PaymentStatusPaid, start.UTC(), end.UTC()).
		Scan(&total).Error
	return total, storeErr("sum paid payments", err)
}

// ListPaidSince returns paid payments with paid_at >= since, oldest first.
func (r *paymentRepository) ListPaidSince(ctx context.Context, companyID string, since time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Select("external_id", "final_amount", "paid_at").
		Where("company_id = ? AND status = ? AND paid_at >= ?", companyID, models.PaymentStatusPaid, since.UTC()).
		Order("paid_at asc").
		Find(&payments).Error
	if err != nil {
		return nil, storeErr("list paid payments", err)
	}
	return payments, nil
}

// RevenueByProduct groups paid payments with a product reference by product.
func (r *paymentRepository) RevenueByProduct(ctx context.Context, companyID string) ([]ProductRevenue, error) {
	var rows []ProductRevenue
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("product_id, SUM(final_amount) AS revenue, COUNT(*) AS count").
		Where("company_id = ? AND status = ? AND product_id IS NOT NULL", companyID, models.PaymentStatusPaid).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("revenue by product", err)
	}
	return rows, nil
}

// PayingUserIDs returns the distinct users with at least one paid payment.
func (r *paymentRepository) PayingUserIDs(ctx context.Context, companyID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("company_id = ? AND status = ? AND user_id IS NOT NULL", companyID, models.PaymentStatusPaid).
		Distinct().
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, storeErr("paying users", err)
	}
	return ids, nil
}
