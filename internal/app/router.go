package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/sentinel-auth/sentinel/internal/accounts"
	"github.com/sentinel-auth/sentinel/internal/demo"
	"github.com/sentinel-auth/sentinel/internal/grants"
	"github.com/sentinel-auth/sentinel/internal/shared"
	"github.com/sentinel-auth/sentinel/internal/verify"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	AccountsHandler *accounts.Handler
	VerifyHandler   *verify.Handler
	GrantsHandler   *grants.Handler
	DemoHandler     *demo.Handler
}

// NewRouter constructs the chi.Router with Sentinel defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		// Credential endpoints are the brute-force surface.
		r.Use(httprate.LimitByIP(20, time.Minute))
		params.AccountsHandler.MountAuthRoutes(r)
		params.VerifyHandler.MountRoutes(r)
	})

	r.Route("/profile", params.AccountsHandler.MountProfileRoutes)
	r.Route("/api", params.GrantsHandler.MountRoutes)
	r.Route("/mock", params.DemoHandler.MountRoutes)

	return r
}
