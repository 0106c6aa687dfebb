package apiv1

import (
	"context"
	"time"

	"github.com/ManuelReschke/StoreMetrics/internal/pkg/datasync"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/metrics"
)

// Syncer refreshes the local cache of a company.
type Syncer interface {
	Sync(ctx context.Context, companyID string, force bool) datasync.SyncResult
}

// Summarizer computes dashboard metrics.
type Summarizer interface {
	Summarize(ctx context.Context, companyID string, start, end *time.Time) (*metrics.Summary, error)
}

// SnapshotStore records and serves the last computed summary.
type SnapshotStore interface {
	Save(ctx context.Context, companyID string, s *metrics.Summary) error
	Latest(ctx context.Context, companyID string) (*metrics.Summary, error)
}

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// Error defines model for Error.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type syncRequest struct {
	CompanyID string `query:"-" validate:"required,max=191,printascii"`
	Force     bool   `query:"force"`
}

type summaryRequest struct {
	CompanyID string `query:"-" validate:"required,max=191,printascii"`
	Start     string `query:"start" validate:"omitempty,datetime=2006-01-02"`
	End       string `query:"end" validate:"omitempty,datetime=2006-01-02"`
	Sync      bool   `query:"sync"`
}
