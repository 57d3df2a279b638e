// Package http serves the object store, the currency engine and the
// statistics as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"nosam/internal/currency"
	"nosam/internal/facade"
	"nosam/internal/log"
	"nosam/internal/middleware/ratelimit"
	"nosam/internal/middleware/security"
	"nosam/internal/products"
	"nosam/internal/rates"
	"nosam/internal/services"
	"nosam/internal/settings"
)

const (
	maxBodySize   = 10 << 20 // 10MB
	requestHeader = "X-Request-ID"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Client    *facade.Client
	Table     *currency.Table
	Settings  *settings.Settings
	Refresher *rates.Refresher
	Catalog   *products.Catalog
	Stats     *services.StatsService
	Logger    *log.Logger
	// RequestsPerMinute per client; zero uses the limiter default.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	limiter *ratelimit.Limiter
}

func NewServer(addr string, deps Deps) *Server {
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: deps.RequestsPerMinute,
		CleanupInterval:   5 * time.Minute,
	})
	return &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps, limiter),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		limiter: limiter,
	}
}

// Shutdown stops the limiter sweep and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// NewRouter builds the route tree. limiter may be nil to disable rate
// limiting.
func NewRouter(deps Deps, limiter *ratelimit.Limiter) http.Handler {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	httpLogger := deps.Logger.WithComponent(log.ComponentHTTP)
	ips := security.NewIPResolver()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(log.Middleware(httpLogger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(requestHeader) }))
	r.Use(accessLog(log.NewStructuredLogger(httpLogger), ips))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware(ips.ClientIP))
		}

		r.Route("/objects/{type}", func(r chi.Router) {
			r.Get("/", handleListObjects(deps))
			r.Post("/", handleCreateObject(deps))
			r.Delete("/", handleClearCollection(deps))
			r.Get("/search", handleSearchObjects(deps))
			r.Post("/batch", handleBatchCreate(deps))
			r.Get("/{id}", handleGetObject(deps))
			r.Put("/{id}", handleUpdateObject(deps))
			r.Patch("/{id}", handleUpdateObject(deps))
			r.Delete("/{id}", handleDeleteObject(deps))
		})
		r.Get("/export", handleExport(deps))
		r.Post("/import", handleImport(deps))

		r.Get("/currencies", handleCurrencies(deps))
		r.Get("/convert", handleConvert(deps))
		r.Get("/settings/display-currency", handleGetDisplayCurrency(deps))
		r.Put("/settings/display-currency", handleSetDisplayCurrency(deps))
		r.Post("/rates/refresh", handleRefreshRates(deps))

		r.Get("/stats", handleStats(deps))
		r.Get("/renewals", handleRenewals(deps))

		r.Get("/products", handleActiveProducts(deps))
		r.Get("/products/search", handleSearchProducts(deps))
		r.Post("/products/seed", handleSeedProducts(deps))
		r.Get("/products/{name}", handleProductDetails(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID keeps a caller supplied X-Request-ID or assigns a new one and
// echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
			r.Header.Set(requestHeader, id)
		}
		w.Header().Set(requestHeader, id)
		next.ServeHTTP(w, r)
	})
}

func accessLog(sl *log.StructuredLogger, ips *security.IPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			sl.LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), ips.ClientIP(r))
		})
	}
}
