package main

import (
	"fmt"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ManuelReschke/StoreMetrics/app/repository"
	apiv1 "github.com/ManuelReschke/StoreMetrics/internal/api/v1"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/cache"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/database"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/datasync"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/env"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/logging"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/metrics"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/router"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/snapshot"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/upstream"
)

func main() {
	foundEnv := env.SetupEnvFile()
	log := logging.NewOrNop(env.IsDev())
	defer func() { _ = log.Sync() }()
	if !foundEnv {
		log.Info("no .env file found, using process environment")
	}

	app, err := NewApplication(log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	log.Info("listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func NewApplication(log *zap.Logger) (*fiber.App, error) {
	db, err := database.SetupDatabase(log.Named("database"))
	if err != nil {
		return nil, err
	}
	repos := repository.NewRepositories(db)

	redisClient := cache.SetupCache(log.Named("cache"))
	snapshots := snapshot.NewRecorder(
		cache.New(redisClient, "storemetrics"),
		repos.MetricsCache,
		env.GetDuration("SNAPSHOT_TTL", snapshot.DefaultTTL),
		log.Named("snapshot"),
	)

	coordinator := datasync.NewCoordinator(upstream.NewClientFromEnv(), repos, datasync.Options{
		FreshnessWindow: env.GetDuration("SYNC_FRESHNESS_WINDOW", datasync.DefaultFreshnessWindow),
		Logger:          log.Named("sync"),
	})
	engine := metrics.NewEngine(repos, metrics.Options{Logger: log.Named("metrics")})

	app := fiber.New(fiber.Config{
		AppName: "StoreMetrics",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	} else {
		log.Warn("openapi document not found, docs disabled")
	}

	// ROUTER
	server := apiv1.NewAPIServer(coordinator, engine, snapshots, log.Named("api"))
	// rate limiter counters live in cache db 2
	limiterStorage, err := cache.NewFiberStorage(redisClient, 2)
	if err != nil {
		log.Warn("rate limiter falls back to in-memory counters", zap.Error(err))
	}
	router.InstallRouter(app, server, limiterStorage)

	return app, nil
}

func findOpenAPISpec() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/storemetrics to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		candidate := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
