package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/balcao-erp/balcao/internal/dashboard"
	"github.com/balcao-erp/balcao/internal/ledger"
	"github.com/balcao-erp/balcao/internal/masterdata/clients"
	"github.com/balcao-erp/balcao/internal/masterdata/products"
	"github.com/balcao-erp/balcao/internal/masterdata/suppliers"
	"github.com/balcao-erp/balcao/internal/observability"
	"github.com/balcao-erp/balcao/internal/platform/httpx"
	"github.com/balcao-erp/balcao/internal/purchasing"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	LedgerHandler     *ledger.Handler
	DashboardHandler  *dashboard.Handler
	ClientsHandler    *clients.Handler
	ProductsHandler   *products.Handler
	SuppliersHandler  *suppliers.Handler
	PurchasingHandler *purchasing.Handler
	RescanJob         *ledger.RescanJob
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.LedgerHandler.MountRoutes(r)
	params.DashboardHandler.MountRoutes(r)
	params.ClientsHandler.MountRoutes(r)
	params.ProductsHandler.MountRoutes(r)
	params.SuppliersHandler.MountRoutes(r)
	params.PurchasingHandler.MountRoutes(r)

	if params.RescanJob != nil {
		r.Post("/admin/rescan", func(w http.ResponseWriter, r *http.Request) {
			count, err := params.RescanJob.Run(r.Context(), time.Now())
			if err != nil {
				params.Logger.Error("manual rescan", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]int{"transitioned": count})
		})
	}

	return r
}
