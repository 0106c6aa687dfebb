package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"github.com/ManuelReschke/StoreMetrics/app/repository"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/cache"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/metrics"
)

const (
	// DefaultTTL is how long a summary stays in the fast cache.
	DefaultTTL = 30 * time.Minute

	keyFormat = "summary:%s"
)

// ErrNotFound is returned when no summary was recorded for a company yet.
var ErrNotFound = errors.New("no summary recorded")

// Recorder keeps the most recent summary per company in Redis and in the
// metrics_cache table. Snapshots are informational; the metrics engine never
// reads them.
type Recorder struct {
	cache  *cache.Cache
	repo   repository.MetricsCacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewRecorder creates a recorder. c may be nil, in which case only the table
// is used.
func NewRecorder(c *cache.Cache, repo repository.MetricsCacheRepository, ttl time.Duration, logger *zap.Logger) *Recorder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{cache: c, repo: repo, ttl: ttl, logger: logger}
}

// Save records a summary. The table write is required, the cache write is
// best effort.
func (r *Recorder) Save(ctx context.Context, companyID string, s *metrics.Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	entry := &models.MetricsCache{
		CompanyID:   companyID,
		PayloadJSON: string(payload),
		GeneratedAt: s.GeneratedAt.UTC(),
	}
	if err := r.repo.Upsert(ctx, entry); err != nil {
		return err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, fmt.Sprintf(keyFormat, companyID), payload, r.ttl); err != nil {
			r.logger.Warn("caching summary failed", zap.String("company_id", companyID), zap.Error(err))
		}
	}
	return nil
}

// Latest returns the last recorded summary, preferring the cache.
func (r *Recorder) Latest(ctx context.Context, companyID string) (*metrics.Summary, error) {
	if r.cache != nil {
		payload, err := r.cache.Get(ctx, fmt.Sprintf(keyFormat, companyID))
		switch {
		case err == nil:
			s, derr := decode(payload)
			if derr == nil {
				return s, nil
			}
			r.logger.Warn("discarding corrupt cached summary", zap.String("company_id", companyID), zap.Error(derr))
		case !errors.Is(err, cache.ErrMiss):
			r.logger.Warn("reading cached summary failed", zap.String("company_id", companyID), zap.Error(err))
		}
	}

	entry, err := r.repo.GetByCompanyID(ctx, companyID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode([]byte(entry.PayloadJSON))
}

func decode(payload []byte) (*metrics.Summary, error) {
	var s metrics.Summary
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
