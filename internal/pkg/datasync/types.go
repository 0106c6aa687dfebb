package datasync

import (
	"context"
	"time"

	"github.com/ManuelReschke/StoreMetrics/internal/pkg/upstream"
)

// DefaultFreshnessWindow is how long cached data is considered fresh.
const DefaultFreshnessWindow = time.Hour

// Fetcher is the subset of the upstream API the coordinator needs.
type Fetcher interface {
	FetchPayments(ctx context.Context, companyID string) ([]upstream.Payment, error)
	FetchMembers(ctx context.Context, companyID string) ([]upstream.Member, error)
}

// SyncResult reports the outcome of one sync call. A skipped sync is a
// success with zero counts and the previous SyncedAt.
type SyncResult struct {
	Success          bool       `json:"success"`
	Skipped          bool       `json:"skipped"`
	PaymentsCount    int        `json:"paymentsCount"`
	MembershipsCount int        `json:"membershipsCount"`
	ProductsCount    int        `json:"productsCount"`
	SyncedAt         *time.Time `json:"syncedAt,omitempty"`
	Error            string     `json:"error,omitempty"`
}
