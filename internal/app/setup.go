// Package app contains the application setup for the catalog service.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/gocatalog/internal/config"
	"github.com/abgdnv/gocatalog/internal/events"
	"github.com/abgdnv/gocatalog/internal/repository"
	"github.com/abgdnv/gocatalog/internal/service"
	"github.com/abgdnv/gocatalog/internal/store"
	"github.com/abgdnv/gocatalog/internal/transport/rest"
	pkgconfig "github.com/abgdnv/gocatalog/pkg/config"
	"github.com/abgdnv/gocatalog/pkg/messaging"
	pnats "github.com/abgdnv/gocatalog/pkg/nats"
	"github.com/abgdnv/gocatalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is used for telemetry resources, the OTel HTTP handler and gRPC health status.
const ServiceName = "catalog"

type Dependencies struct {
	CatalogService service.CatalogService
	Backend        store.Backend
	Metrics        http.Handler
	Logger         *slog.Logger
}

// SetupDependencies wires repositories and the catalog service on top of backend.
// metrics may be nil, in which case /metrics is not served.
func SetupDependencies(backend store.Backend, publisher messaging.Publisher, metrics http.Handler, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		CatalogService: NewCatalogService(backend, publisher, logger),
		Backend:        backend,
		Metrics:        metrics,
		Logger:         logger,
	}
}

// NewCatalogService builds the service stack used by both the HTTP service and catalogctl.
func NewCatalogService(backend store.Backend, publisher messaging.Publisher, logger *slog.Logger) *service.Service {
	products, categories := repository.NewRepositories(backend.Products(), backend.Categories())
	return service.NewService(products, categories, publisher, logger)
}

// SetupHttpHandler initializes the router for the catalog service.
// Used by tests to exercise the full middleware chain.
func SetupHttpHandler(deps *Dependencies, maxBodyBytes int64) http.Handler {
	mux := server.NewChiRouter(deps.Logger, maxBodyBytes)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.CatalogService, deps.Backend, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps, cfg.HTTPServer.MaxBodyBytes)
	return server.NewHTTPServer(cfg.HTTPServer, ServiceName, mux)
}

// SetupGrpcServer creates the gRPC server exposing the standard health service.
func SetupGrpcServer(reflectionEnabled bool, logger *slog.Logger) (*grpc.Server, *health.Server) {
	healthServer := health.NewServer()
	grpcServer := server.NewGRPCServer(logger, reflectionEnabled, func(s *grpc.Server) {
		grpc_health_v1.RegisterHealthServer(s, healthServer)
	})
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}

// SetupPublisher returns the event publisher selected by cfg and a function releasing its connection.
// With publishing disabled, or with an optional server that cannot be reached, it returns a NoopPublisher.
func SetupPublisher(ctx context.Context, cfg pkgconfig.NATSConfig, resilience pkgconfig.ResilienceConfig, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Enabled {
		logger.Info("Catalog event publishing is disabled")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	publisher, closeFn, err := connectPublisher(ctx, cfg, resilience, logger)
	if err != nil {
		if cfg.Required {
			return nil, nil, err
		}
		logger.Warn("Catalog event publishing is disabled, NATS is unavailable", "error", err)
		return messaging.NoopPublisher{}, func() {}, nil
	}
	return publisher, closeFn, nil
}

func connectPublisher(ctx context.Context, cfg pkgconfig.NATSConfig, resilience pkgconfig.ResilienceConfig, logger *slog.Logger) (messaging.Publisher, func(), error) {
	nc, err := pnats.NewClient(cfg.Url, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := pnats.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := pnats.EnsureStream(streamCtx, js, cfg.Stream, events.StreamSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Publishing catalog events", slog.String("url", pkgconfig.MaskURL(cfg.Url)), slog.String("stream", cfg.Stream))
	publisher := messaging.NewBreakerPublisher("catalog-events", pnats.NewNatsPublisher(js), resilience)
	closeFn := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", "error", err)
		}
	}
	return publisher, closeFn, nil
}

// WatchStorageHealth pings the backend every interval and mirrors the result into the gRPC health status.
// It returns when ctx is done.
func WatchStorageHealth(ctx context.Context, pinger rest.Pinger, healthServer *health.Server, interval, timeout time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err := pinger.Ping(pingCtx)
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		healthy := err == nil
		if healthy == serving {
			continue
		}
		serving = healthy
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if healthy {
			logger.Info("Storage is reachable again")
		} else {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			logger.Warn("Storage is unreachable", "error", err)
		}
		healthServer.SetServingStatus("", status)
		healthServer.SetServingStatus(ServiceName, status)
	}
}
