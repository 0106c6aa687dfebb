package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultRange resolves an optional range: end defaults to now, start to the
// first day of end's month.
func DefaultRange(start, end *time.Time, now time.Time) (time.Time, time.Time) {
	e := now
	if end != nil {
		e = *end
	}
	s := time.Date(e.Year(), e.Month(), 1, 0, 0, 0, 0, e.Location())
	if start != nil {
		s = *start
	}
	return s, e
}

// Summarize computes every metric concurrently. If any of them fails the
// whole summary fails.
func (e *Engine) Summarize(ctx context.Context, companyID string, start, end *time.Time) (*Summary, error) {
	from, to := DefaultRange(start, end, e.now())
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	began := time.Now()
	var s Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Revenue, err = e.Revenue(gctx, companyID, from, to)
		return err
	})
	g.Go(func() (err error) {
		s.MemberCount, err = e.ActiveMemberCount(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		s.ChurnRate, err = e.ChurnRate(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		s.ARPU, err = e.ARPU(gctx, companyID, from, to)
		return err
	})
	g.Go(func() (err error) {
		s.MRR, err = e.MRR(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		s.CLV, err = e.CLV(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		s.RevenueTimeSeries, err = e.RevenueTimeSeries(gctx, companyID, DefaultSeriesDays)
		return err
	})
	g.Go(func() (err error) {
		s.MemberGrowth, err = e.MemberGrowthTimeSeries(gctx, companyID, DefaultSeriesDays)
		return err
	})
	g.Go(func() (err error) {
		s.TopProducts, err = e.TopProducts(gctx, companyID, DefaultTopProductsLimit)
		return err
	})
	g.Go(func() (err error) {
		s.CustomerSegments, err = e.CustomerSegmentation(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		e.logger.Warn("summarize failed", zap.String("company_id", companyID), zap.Error(err))
		return nil, err
	}

	s.StartDate = from
	s.EndDate = to
	s.GeneratedAt = e.now().UTC()
	e.logger.Debug("summary computed",
		zap.String("company_id", companyID),
		zap.Duration("took", time.Since(began)),
	)
	return &s, nil
}
