package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"github.com/ManuelReschke/StoreMetrics/app/repository"
)

const (
	churnWindow    = 30 * 24 * time.Hour
	memberBaseline = 30 * 24 * time.Hour
	newCustomerAge = 30 * 24 * time.Hour
	atRiskHorizon  = 7 * 24 * time.Hour
	mrrWindow      = 30 * 24 * time.Hour
	clvWindow      = 90 * 24 * time.Hour
	monthsPerYear  = 12
)

// ErrInvalidRange is returned when a range starts after it ends.
var ErrInvalidRange = errors.New("start date is after end date")

// Engine derives dashboard metrics from the cached records. It never
// triggers a sync and never persists what it computes.
type Engine struct {
	payments    repository.PaymentRepository
	memberships repository.MembershipRepository
	products    repository.ProductRepository

	now    func() time.Time
	logger *zap.Logger
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	Now    func() time.Time
	Logger *zap.Logger
}

// NewEngine creates a metrics engine reading from the given repositories.
func NewEngine(repos *repository.Repositories, opts Options) *Engine {
	e := &Engine{
		payments:    repos.Payment,
		memberships: repos.Membership,
		products:    repos.Product,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Revenue sums paid revenue with paid_at in [start, end] and compares it
// with the equally long window right before start.
func (e *Engine) Revenue(ctx context.Context, companyID string, start, end time.Time) (MetricValue, error) {
	curr, prev, err := e.revenueWindow(ctx, companyID, start, end)
	if err != nil {
		return MetricValue{}, err
	}
	return MetricValue{Value: output(curr), Change: percentChange(curr, prev)}, nil
}

func (e *Engine) revenueWindow(ctx context.Context, companyID string, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	prevStart, prevEnd := previousWindow(start, end)

	var curr, prev int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		curr, err = e.payments.SumPaid(gctx, companyID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = e.payments.SumPaid(gctx, companyID, prevStart, prevEnd)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("revenue: %w", err)
	}
	return majorUnits(curr), majorUnits(prev), nil
}

// ActiveMemberCount counts valid active or trialing memberships. The change
// compares against those that already existed 30 days ago.
func (e *Engine) ActiveMemberCount(ctx context.Context, companyID string) (MetricValue, error) {
	baselineAt := e.now().Add(-memberBaseline)

	var current, baseline int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = e.memberships.CountActive(gctx, companyID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		baseline, err = e.memberships.CountActive(gctx, companyID, &baselineAt)
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricValue{}, fmt.Errorf("active members: %w", err)
	}
	return MetricValue{
		Value:  float64(current),
		Change: percentChange(decimal.NewFromInt(current), decimal.NewFromInt(baseline)),
	}, nil
}

// ChurnRate is the share of memberships valid 30 days ago that have since
// been cancelled or expired, in percent.
func (e *Engine) ChurnRate(ctx context.Context, companyID string) (float64, error) {
	rate, err := e.churnRate(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return output(rate), nil
}

func (e *Engine) churnRate(ctx context.Context, companyID string) (decimal.Decimal, error) {
	now := e.now()
	windowStart := now.Add(-churnWindow)

	var activeBefore, churned int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activeBefore, err = e.memberships.CountValidCreatedBefore(gctx, companyID, windowStart)
		return err
	})
	g.Go(func() error {
		var err error
		churned, err = e.memberships.CountChurnedBetween(gctx, companyID, windowStart, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, fmt.Errorf("churn rate: %w", err)
	}
	if activeBefore == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(churned).Div(decimal.NewFromInt(activeBefore)).Mul(hundred), nil
}

// RevenueTimeSeries returns paid revenue per calendar day (UTC) over the
// trailing window. Days without payments are omitted.
func (e *Engine) RevenueTimeSeries(ctx context.Context, companyID string, days int) ([]models.DailyStats, error) {
	if days <= 0 {
		days = DefaultSeriesDays
	}
	since := e.now().AddDate(0, 0, -days)

	payments, err := e.payments.ListPaidSince(ctx, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("revenue series: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, p := range payments {
		if p.PaidAt == nil {
			continue
		}
		key := dayKey(*p.PaidAt)
		totals[key] = totals[key].Add(majorUnits(p.FinalAmount))
	}
	return sparseSeries(totals), nil
}

// MemberGrowthTimeSeries counts memberships created per calendar day (UTC)
// over the trailing window. Days without new memberships are omitted.
func (e *Engine) MemberGrowthTimeSeries(ctx context.Context, companyID string, days int) ([]models.DailyStats, error) {
	if days <= 0 {
		days = DefaultSeriesDays
	}
	since := e.now().AddDate(0, 0, -days)

	memberships, err := e.memberships.ListCreatedSince(ctx, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("member growth: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, m := range memberships {
		key := dayKey(m.CreatedAt)
		totals[key] = totals[key].Add(decimal.NewFromInt(1))
	}
	return sparseSeries(totals), nil
}

// TopProducts ranks products by paid revenue, highest first. Ties are broken
// by product id.
func (e *Engine) TopProducts(ctx context.Context, companyID string, limit int) ([]ProductStat, error) {
	if limit <= 0 {
		limit = DefaultTopProductsLimit
	}

	rows, err := e.payments.RevenueByProduct(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	names, err := e.products.NamesByExternalID(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}

	out := make([]ProductStat, 0, len(rows))
	for _, r := range rows {
		name := strings.TrimSpace(names[r.ProductID])
		if name == "" {
			name = UnknownProductName
		}
		out = append(out, ProductStat{
			ProductID:   r.ProductID,
			ProductName: name,
			Revenue:     output(majorUnits(r.Revenue)),
			Count:       r.Count,
		})
	}
	return out, nil
}

// ARPU divides period revenue by the current active member count.
//
// The previous-period ARPU reuses the current member count instead of the
// count at that time, so its change always equals the revenue change.
func (e *Engine) ARPU(ctx context.Context, companyID string, start, end time.Time) (MetricValue, error) {
	curr, prev, err := e.arpu(ctx, companyID, start, end)
	if err != nil {
		return MetricValue{}, err
	}
	return MetricValue{Value: output(curr), Change: percentChange(curr, prev)}, nil
}

func (e *Engine) arpu(ctx context.Context, companyID string, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var (
		revenue, prevRevenue decimal.Decimal
		members              int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revenue, prevRevenue, err = e.revenueWindow(gctx, companyID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = e.memberships.CountActive(gctx, companyID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("arpu: %w", err)
	}
	if members == 0 {
		return decimal.Zero, decimal.Zero, nil
	}
	n := decimal.NewFromInt(members)
	return revenue.Div(n), prevRevenue.Div(n), nil
}

// MRR approximates monthly recurring revenue as paid revenue of the trailing
// 30 days. It is 0 while there are no current members.
func (e *Engine) MRR(ctx context.Context, companyID string) (MetricValue, error) {
	members, err := e.memberships.CountActive(ctx, companyID, nil)
	if err != nil {
		return MetricValue{}, fmt.Errorf("mrr: %w", err)
	}
	if members == 0 {
		return MetricValue{}, nil
	}
	now := e.now()
	return e.Revenue(ctx, companyID, now.Add(-mrrWindow), now)
}

// CLV estimates customer lifetime value from the 90-day ARPU and the churn
// rate. Without churn it assumes a twelve month lifetime.
func (e *Engine) CLV(ctx context.Context, companyID string) (MetricValue, error) {
	now := e.now()

	var arpu, prevARPU, churn decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		arpu, prevARPU, err = e.arpu(gctx, companyID, now.Add(-clvWindow), now)
		return err
	})
	g.Go(func() error {
		var err error
		churn, err = e.churnRate(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricValue{}, fmt.Errorf("clv: %w", err)
	}

	var value decimal.Decimal
	if churn.IsPositive() {
		value = arpu.Div(churn.Div(hundred))
	} else {
		value = arpu.Mul(decimal.NewFromInt(monthsPerYear))
	}
	return MetricValue{Value: output(value), Change: percentChange(arpu, prevARPU)}, nil
}

// CustomerSegmentation classifies paying customers by their most recently
// created membership. The four filters are applied independently, so a
// customer can appear in more than one segment.
func (e *Engine) CustomerSegmentation(ctx context.Context, companyID string) ([]SegmentStat, error) {
	userIDs, err := e.payments.PayingUserIDs(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	counts := make(map[string]int, len(segmentOrder))
	total := len(userIDs)
	if total == 0 {
		return segmentRows(counts, 0), nil
	}

	memberships, err := e.memberships.ListByUserIDs(ctx, companyID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	latest := make(map[string]models.Membership, len(userIDs))
	for _, m := range memberships {
		if m.UserID == nil {
			continue
		}
		cur, ok := latest[*m.UserID]
		if !ok || m.CreatedAt.After(cur.CreatedAt) ||
			(m.CreatedAt.Equal(cur.CreatedAt) && m.ExternalID > cur.ExternalID) {
			latest[*m.UserID] = m
		}
	}

	now := e.now()
	for _, m := range latest {
		for _, segment := range classify(m, now) {
			counts[segment]++
		}
	}
	return segmentRows(counts, total), nil
}

func classify(m models.Membership, now time.Time) []string {
	segments := make([]string, 0, len(segmentOrder))
	age := now.Sub(m.CreatedAt)
	if m.Valid && age <= newCustomerAge {
		segments = append(segments, SegmentNew)
	}
	if m.Valid && m.Status == models.MembershipStatusActive && age > newCustomerAge {
		segments = append(segments, SegmentActive)
	}
	if m.Valid && m.ExpiresAt != nil && m.ExpiresAt.After(now) && !m.ExpiresAt.After(now.Add(atRiskHorizon)) {
		segments = append(segments, SegmentAtRisk)
	}
	if !m.Valid || m.Status == models.MembershipStatusCancelled || m.Status == models.MembershipStatusExpired {
		segments = append(segments, SegmentChurned)
	}
	return segments
}

func segmentRows(counts map[string]int, total int) []SegmentStat {
	rows := make([]SegmentStat, 0, len(segmentOrder))
	for _, segment := range segmentOrder {
		row := SegmentStat{
			Segment: segment,
			Count:   counts[segment],
			Color:   segmentColors[segment],
		}
		if total > 0 {
			row.Percentage = output(decimal.NewFromInt(int64(row.Count)).
				Div(decimal.NewFromInt(int64(total))).Mul(hundred))
		}
		rows = append(rows, row)
	}
	return rows
}
