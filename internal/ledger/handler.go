package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// Handler exposes the sale/payment ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.createSale)
		r.Get("/", h.listSales)
		r.Get("/{id}", h.getSale)
		r.Put("/{id}/terms", h.updateTerms)
		r.Post("/{id}/payments", h.applyPayment)
		r.Get("/{id}/payments", h.listPayments)
	})
}

type saleItemRequest struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

type paymentRequest struct {
	Amount        float64    `json:"amount" validate:"required,gt=0"`
	PaymentMethod string     `json:"paymentMethod" validate:"required"`
	Installments  int        `json:"installments" validate:"gte=0"`
	CardBrand     string     `json:"cardBrand"`
	FinancingBank string     `json:"financingBank"`
	PaymentDate   *time.Time `json:"paymentDate"`
}

type createSaleRequest struct {
	ClientID       int64             `json:"clientId" validate:"required,gt=0"`
	Items          []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	SaleDate       *time.Time        `json:"saleDate"`
	DueDate        *time.Time        `json:"dueDate"`
	Notes          string            `json:"notes"`
	InitialPayment *paymentRequest   `json:"initialPayment"`
}

type updateTermsRequest struct {
	DueDate      *time.Time        `json:"dueDate"`
	ClearDueDate bool              `json:"clearDueDate"`
	Items        []saleItemRequest `json:"items" validate:"omitempty,min=1,dive"`
	Notes        *string           `json:"notes"`
}

type saleResponse struct {
	Sale
	AmountDue float64    `json:"amountDue"`
	Items     []SaleItem `json:"items,omitempty"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateSaleInput{
		ClientID: req.ClientID,
		DueDate:  req.DueDate,
		Notes:    req.Notes,
	}
	if req.SaleDate != nil {
		input.SaleDate = *req.SaleDate
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, SaleItemInput{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	if req.InitialPayment != nil {
		p := toPaymentInput(*req.InitialPayment)
		input.InitialPayment = &p
	}

	sale, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toResponse(r, sale))
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	req := ListSalesRequest{Limit: 50}
	if v := r.URL.Query().Get("clientId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ClientID = id
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		req.Status = SaleStatus(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	sales, err := h.service.ListSales(r.Context(), req)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(r, sale))
}

func (h *Handler) updateTerms(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	var req updateTermsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := UpdateTermsInput{DueDate: req.DueDate, ClearDueDate: req.ClearDueDate, Notes: req.Notes}
	for _, it := range req.Items {
		input.Items = append(input.Items, SaleItemInput{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}

	sale, err := h.service.UpdateTerms(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update sale terms", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(r, sale))
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sale, err := h.service.ApplyPayment(r.Context(), id, toPaymentInput(req))
	if err != nil {
		h.logger.Warn("apply payment", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toResponse(r, sale))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) saleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return 0, false
	}
	return id, true
}

func (h *Handler) toResponse(r *http.Request, sale *Sale) saleResponse {
	resp := saleResponse{Sale: *sale, AmountDue: sale.AmountDue()}
	if items, err := h.service.ListSaleItems(r.Context(), sale.ID); err == nil {
		resp.Items = items
	}
	return resp
}

func toPaymentInput(req paymentRequest) PaymentInput {
	input := PaymentInput{
		Amount:        req.Amount,
		Method:        req.PaymentMethod,
		Installments:  req.Installments,
		CardBrand:     req.CardBrand,
		FinancingBank: req.FinancingBank,
	}
	if req.PaymentDate != nil {
		input.PaymentDate = *req.PaymentDate
	}
	return input
}
