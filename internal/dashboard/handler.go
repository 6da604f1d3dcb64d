package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// Handler coordinates HTTP requests for the dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard endpoints onto the router. The aggregates
// are cached, but rate limiting still guards against cache-busting bursts
// right after a version bump.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(60, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/dashboard/stats", h.handleStats)
		gr.Get("/dashboard/top-products", h.handleTopProducts)
		gr.Get("/dashboard/top-clients", h.handleTopClients)
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.GetTopProducts(r.Context())
	if err != nil {
		h.logger.Error("dashboard top products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranks)
}

func (h *Handler) handleTopClients(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.GetTopClients(r.Context())
	if err != nil {
		h.logger.Error("dashboard top clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranks)
}
