package datasync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ManuelReschke/StoreMetrics/app/repository"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/upstream"
)

// Coordinator keeps the cached payments, memberships and products of a
// company reasonably fresh.
//
// Concurrent syncs for the same company are not coordinated: both may fetch
// and upsert, which converges because upserts are keyed by upstream ids.
type Coordinator struct {
	fetcher     Fetcher
	companies   repository.CompanyRepository
	payments    repository.PaymentRepository
	memberships repository.MembershipRepository
	products    repository.ProductRepository

	freshness time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Options tunes a Coordinator. Zero values fall back to defaults.
type Options struct {
	FreshnessWindow time.Duration
	Now             func() time.Time
	Logger          *zap.Logger
}

// NewCoordinator wires a coordinator to an upstream fetcher and the store.
func NewCoordinator(fetcher Fetcher, repos *repository.Repositories, opts Options) *Coordinator {
	c := &Coordinator{
		fetcher:     fetcher,
		companies:   repos.Company,
		payments:    repos.Payment,
		memberships: repos.Membership,
		products:    repos.Product,
		freshness:   opts.FreshnessWindow,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if c.freshness <= 0 {
		c.freshness = DefaultFreshnessWindow
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Sync refreshes the cache for companyID unless it was synced within the
// freshness window and force is false. It never returns an error; failures
// are reported through SyncResult.Error.
//
// Upserts run in parallel without a transaction: if one fails, rows written
// by the others are kept.
func (c *Coordinator) Sync(ctx context.Context, companyID string, force bool) SyncResult {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return failed("company id is required")
	}

	log := c.logger.With(
		zap.String("company_id", companyID),
		zap.String("sync_run_id", uuid.NewString()),
		zap.Bool("force", force),
	)

	lastSync, err := c.lastSyncedAt(ctx, companyID)
	if err != nil {
		log.Error("reading last sync failed", zap.Error(err))
		return failed(err.Error())
	}

	now := c.now().UTC()
	if !force && lastSync != nil && now.Sub(*lastSync) < c.freshness {
		log.Debug("cache is fresh, skipping sync", zap.Time("last_synced_at", *lastSync))
		return SyncResult{Success: true, Skipped: true, SyncedAt: lastSync}
	}

	result, err := c.run(ctx, companyID, now, log)
	if err != nil {
		log.Error("sync failed", zap.Error(err))
		return failed(err.Error())
	}
	log.Info("sync completed",
		zap.Int("payments", result.PaymentsCount),
		zap.Int("memberships", result.MembershipsCount),
		zap.Int("products", result.ProductsCount),
	)
	return result
}

func (c *Coordinator) lastSyncedAt(ctx context.Context, companyID string) (*time.Time, error) {
	company, err := c.companies.GetByExternalID(ctx, companyID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if company.LastSyncedAt == nil {
		return nil, nil
	}
	t := company.LastSyncedAt.UTC()
	return &t, nil
}

func (c *Coordinator) run(ctx context.Context, companyID string, now time.Time, log *zap.Logger) (SyncResult, error) {
	if err := c.companies.Ensure(ctx, companyID); err != nil {
		return SyncResult{}, err
	}

	var (
		rawPayments []upstream.Payment
		rawMembers  []upstream.Member
	)
	fetch, fetchCtx := errgroup.WithContext(ctx)
	fetch.Go(func() error {
		var err error
		rawPayments, err = c.fetcher.FetchPayments(fetchCtx, companyID)
		return err
	})
	fetch.Go(func() error {
		var err error
		rawMembers, err = c.fetcher.FetchMembers(fetchCtx, companyID)
		return err
	})
	if err := fetch.Wait(); err != nil {
		return SyncResult{}, err
	}
	log.Debug("fetched upstream records",
		zap.Int("payments", len(rawPayments)),
		zap.Int("members", len(rawMembers)),
	)

	payments := normalizePayments(companyID, rawPayments, now)
	memberships := normalizeMembers(companyID, rawMembers, now)
	products := ExtractProducts(companyID, rawPayments)

	// No shared context: a failing branch must not cancel writes that are
	// already in flight.
	var upsert errgroup.Group
	upsert.Go(func() error { return c.payments.UpsertMany(ctx, payments) })
	upsert.Go(func() error { return c.memberships.UpsertMany(ctx, memberships) })
	upsert.Go(func() error { return c.products.UpsertMany(ctx, products) })
	if err := upsert.Wait(); err != nil {
		return SyncResult{}, err
	}

	finished := c.now().UTC()
	if err := c.companies.UpdateLastSyncedAt(ctx, companyID, finished); err != nil {
		return SyncResult{}, err
	}

	return SyncResult{
		Success:          true,
		PaymentsCount:    len(payments),
		MembershipsCount: len(memberships),
		ProductsCount:    len(products),
		SyncedAt:         &finished,
	}, nil
}

func failed(msg string) SyncResult {
	return SyncResult{Success: false, Error: msg}
}

var _ Fetcher = (*upstream.Client)(nil)
