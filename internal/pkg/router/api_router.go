package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/StoreMetrics/internal/api/v1"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/env"
)

type ApiRouter struct {
	server  *apiv1.APIServer
	storage fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        rateLimit(),
		Expiration: time.Minute,
		Storage:    h.storage,
	}))
	api.Get("/ping", h.server.GetPing)

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.server)
}

// NewApiRouter keeps limiter counters in storage. A nil storage falls back
// to fiber's in-memory store, which is per process.
func NewApiRouter(server *apiv1.APIServer, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{server: server, storage: storage}
}

// rateLimit reads API_RATE_LIMIT, requests per minute and client.
func rateLimit() int {
	n, err := strconv.Atoi(env.GetEnv("API_RATE_LIMIT", "60"))
	if err != nil || n <= 0 {
		return 60
	}
	return n
}
