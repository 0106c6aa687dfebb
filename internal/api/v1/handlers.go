package apiv1

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/StoreMetrics/internal/pkg/metrics"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/snapshot"
)

const dateLayout = "2006-01-02"

// APIServer serves the v1 company endpoints.
type APIServer struct {
	syncer     Syncer
	summarizer Summarizer
	snapshots  SnapshotStore
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewAPIServer creates a new API server instance. snapshots may be nil.
func NewAPIServer(syncer Syncer, summarizer Summarizer, snapshots SnapshotStore, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIServer{
		syncer:     syncer,
		summarizer: summarizer,
		snapshots:  snapshots,
		validate:   validator.New(),
		logger:     logger,
	}
}

// RegisterHandlers mounts the v1 routes on the given router.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Post("/companies/:companyID/sync", s.PostCompanySync)
	router.Get("/companies/:companyID/summary", s.GetCompanySummary)
	router.Get("/companies/:companyID/summary/cached", s.GetCachedCompanySummary)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// PostCompanySync runs a sync for the company. A failed sync is reported
// with 502 and the SyncResult as body.
func (s *APIServer) PostCompanySync(c *fiber.Ctx) error {
	req := syncRequest{CompanyID: c.Params("companyID")}
	if err := c.QueryParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	result := s.syncer.Sync(c.UserContext(), req.CompanyID, req.Force)
	if !result.Success {
		return c.Status(fiber.StatusBadGateway).JSON(result)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetCompanySummary computes the dashboard summary. With sync=true a
// non-forced sync runs first; its failure does not block the summary.
func (s *APIServer) GetCompanySummary(c *fiber.Ctx) error {
	req := summaryRequest{CompanyID: c.Params("companyID")}
	if err := c.QueryParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.UserContext()
	if req.Sync {
		if result := s.syncer.Sync(ctx, req.CompanyID, false); !result.Success {
			s.logger.Warn("sync before summary failed",
				zap.String("company_id", req.CompanyID),
				zap.String("error", result.Error),
			)
		}
	}

	summary, err := s.summarizer.Summarize(ctx, req.CompanyID, start, end)
	if errors.Is(err, metrics.ErrInvalidRange) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		s.logger.Error("computing summary failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(Error{
			Error:   "metrics_failed",
			Message: err.Error(),
		})
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, req.CompanyID, summary); err != nil {
			s.logger.Warn("recording summary failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		}
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

// GetCachedCompanySummary returns the last recorded summary without
// recomputing it.
func (s *APIServer) GetCachedCompanySummary(c *fiber.Ctx) error {
	companyID := c.Params("companyID")
	if err := s.validate.Var(companyID, "required,max=191,printascii"); err != nil {
		return badRequest(c, err.Error())
	}
	if s.snapshots == nil {
		return notFound(c)
	}

	summary, err := s.snapshots.Latest(c.UserContext(), companyID)
	if errors.Is(err, snapshot.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		s.logger.Error("reading recorded summary failed", zap.String("company_id", companyID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(Error{
			Error:   "snapshot_failed",
			Message: err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

// parseRange turns YYYY-MM-DD bounds into an inclusive UTC range: start at
// the beginning of its day, end at the last instant of its day.
func parseRange(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startRaw != "" {
		t, err := time.ParseInLocation(dateLayout, startRaw, time.UTC)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if endRaw != "" {
		t, err := time.ParseInLocation(dateLayout, endRaw, time.UTC)
		if err != nil {
			return nil, nil, err
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		end = &t
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, metrics.ErrInvalidRange
	}
	return start, end, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: msg})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(Error{Error: "not_found", Message: "no summary recorded for this company"})
}
