package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"gorm.io/gorm"
)

// CompanyRepository defines the interface for company-related database operations
type CompanyRepository interface {
	GetByExternalID(ctx context.Context, companyID string) (*models.Company, error)
	Ensure(ctx context.Context, companyID string) error
	UpdateLastSyncedAt(ctx context.Context, companyID string, at time.Time) error
}

// PaymentRepository defines the interface for payment-related database operations
type PaymentRepository interface {
	UpsertMany(ctx context.Context, payments []models.Payment) error
	Count(ctx context.Context, companyID string) (int64, error)
	SumPaid(ctx context.Context, companyID string, start, end time.Time) (int64, error)
	ListPaidSince(ctx context.Context, companyID string, since time.Time) ([]models.Payment, error)
	RevenueByProduct(ctx context.Context, companyID string) ([]ProductRevenue, error)
	PayingUserIDs(ctx context.Context, companyID string) ([]string, error)
}

// MembershipRepository defines the interface for membership-related database operations
type MembershipRepository interface {
	UpsertMany(ctx context.Context, memberships []models.Membership) error
	Count(ctx context.Context, companyID string) (int64, error)
	// CountActive counts valid active/trialing memberships. A non-nil
	// createdBefore restricts the count to memberships created on or before it.
	CountActive(ctx context.Context, companyID string, createdBefore *time.Time) (int64, error)
	CountValidCreatedBefore(ctx context.Context, companyID string, before time.Time) (int64, error)
	CountChurnedBetween(ctx context.Context, companyID string, start, end time.Time) (int64, error)
	ListCreatedSince(ctx context.Context, companyID string, since time.Time) ([]models.Membership, error)
	ListByUserIDs(ctx context.Context, companyID string, userIDs []string) ([]models.Membership, error)
}

// ProductRepository defines the interface for product-related database operations
type ProductRepository interface {
	UpsertMany(ctx context.Context, products []models.Product) error
	Count(ctx context.Context, companyID string) (int64, error)
	NamesByExternalID(ctx context.Context, companyID string, productIDs []string) (map[string]string, error)
}

// MetricsCacheRepository defines the interface for the summary side table
type MetricsCacheRepository interface {
	Upsert(ctx context.Context, entry *models.MetricsCache) error
	GetByCompanyID(ctx context.Context, companyID string) (*models.MetricsCache, error)
}

// ProductRevenue is the paid revenue of one product in minor units.
type ProductRevenue struct {
	ProductID string
	Revenue   int64
	Count     int64
}

// Repositories holds all repository instances
type Repositories struct {
	Company      CompanyRepository
	Payment      PaymentRepository
	Membership   MembershipRepository
	Product      ProductRepository
	MetricsCache MetricsCacheRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Company:      NewCompanyRepository(db),
		Payment:      NewPaymentRepository(db),
		Membership:   NewMembershipRepository(db),
		Product:      NewProductRepository(db),
		MetricsCache: NewMetricsCacheRepository(db),
	}
}
