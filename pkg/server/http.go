package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/gocatalog/pkg/config"
	"github.com/abgdnv/gocatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPServer builds the server for handler from the server section of the configuration.
// Every request gets an OpenTelemetry span named after serviceName.
func NewHTTPServer(cfg config.HTTPConfig, serviceName string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(handler, serviceName),
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ReadHeaderTimeout: cfg.Timeout.ReadHeader,
		ReadTimeout:       cfg.Timeout.Read,
		WriteTimeout:      cfg.Timeout.Write,
		IdleTimeout:       cfg.Timeout.Idle,
	}
}

// NewChiRouter returns a router that tags each request with an id, logs it, recovers panics
// and, when maxBodyBytes is positive, rejects larger bodies.
func NewChiRouter(logger *slog.Logger, maxBodyBytes int64) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(web.RequestIDInjector, web.StructuredLogger(logger), web.Recoverer(logger))
	if maxBodyBytes > 0 {
		mux.Use(web.LimitBody(maxBodyBytes))
	}
	return mux
}
