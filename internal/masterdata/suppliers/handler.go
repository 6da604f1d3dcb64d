package suppliers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// Handler exposes supplier CRUD over HTTP. Suppliers carry no derived state,
// so the handler talks to the repository directly.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs the suppliers HTTP handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers supplier endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type supplierPayload struct {
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Document *string `json:"document"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload supplierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier name is required")
		return
	}
	id, err := h.repo.Create(r.Context(), Supplier{Name: payload.Name, Email: payload.Email, Phone: payload.Phone, Document: payload.Document})
	if err != nil {
		h.logger.Error("create supplier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	created, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Supplier{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	supplier, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	var payload supplierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier name is required")
		return
	}
	if err := h.repo.Update(r.Context(), Supplier{ID: id, Name: payload.Name, Email: payload.Email, Phone: payload.Phone, Document: payload.Document}); err != nil {
		h.respondRepoError(w, id, err)
		return
	}
	updated, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondRepoError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) supplierID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondRepoError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, fmt.Errorf("supplier %d: %w", id, httpx.ErrNotFound))
		return
	}
	httpx.RespondError(w, err)
}
