package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/barpos/barpos/internal/auth"
	"github.com/barpos/barpos/internal/balance"
	"github.com/barpos/barpos/internal/catalog"
	"github.com/barpos/barpos/internal/debtor"
	"github.com/barpos/barpos/internal/observability"
	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/transactions"
	"github.com/barpos/barpos/internal/transfers"
	"github.com/barpos/barpos/internal/users"
	"github.com/barpos/barpos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	RBACMiddleware      rbac.Middleware
	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	BalanceHandler      *balance.Handler
	DebtorHandler       *debtor.Handler
	TransfersHandler    *transfers.Handler
	TransactionsHandler *transactions.Handler
	CatalogHandler      *catalog.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.BalanceHandler != nil {
		params.BalanceHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.DebtorHandler != nil {
		params.DebtorHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.TransfersHandler != nil {
		params.TransfersHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.TransactionsHandler != nil {
		params.TransactionsHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
