// Package httptransport assembles the HTTP surface: middleware chain,
// feature handlers, health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminHandler "clearledger/internal/admin/handler"
	lendingHandler "clearledger/internal/lending/handler"
	"clearledger/internal/platform/metrics"
	"clearledger/internal/platform/middleware"
	registryHandler "clearledger/internal/registry/handler"
	tokenHandler "clearledger/internal/token/handler"
	vaultHandler "clearledger/internal/vault/handler"
)

// Registrar is a feature handler that mounts its routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	Registry *registryHandler.Handler
	Token    *tokenHandler.Handler
	Vault    *vaultHandler.Handler
	Lending  *lendingHandler.Handler
	Admin    *adminHandler.Handler

	// Health reports readiness of the backing stores; nil means always ready.
	Health func(ctx context.Context) error
}

// NewRouter wires the public surface. All ledger routes sit behind bearer
// auth; health and metrics stay open.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		for _, h := range []Registrar{d.Registry, d.Token, d.Vault, d.Lending, d.Admin} {
			h.Register(r)
		}
	})

	return r
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
