package ledger

import (
	"time"
)

// SaleStatus enumerates sale statuses.
type SaleStatus string

const (
	StatusPending SaleStatus = "PENDING"
	StatusPaid    SaleStatus = "PAID"
	StatusOverdue SaleStatus = "OVERDUE"
)

// Sale model.
type Sale struct {
	ID          int64      `json:"id"`
	ClientID    int64      `json:"clientId"`
	TotalAmount float64    `json:"totalAmount"`
	PaidAmount  float64    `json:"paidAmount"`
	Status      SaleStatus `json:"status"`
	SaleDate    time.Time  `json:"saleDate"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AmountDue returns the outstanding balance of the sale.
func (s *Sale) AmountDue() float64 {
	due := s.TotalAmount - s.PaidAmount
	if due < 0 {
		return 0
	}
	return due
}

// SaleItem is one product line of a sale. Line totals are fixed at creation.
type SaleItem struct {
	ID        int64   `json:"id"`
	SaleID    int64   `json:"saleId"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Subtotal returns quantity times unit price.
func (i SaleItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Payment is an immutable record of money applied toward a sale.
// Method metadata is descriptive only and never feeds status derivation.
type Payment struct {
	ID            int64     `json:"id"`
	SaleID        int64     `json:"saleId"`
	Receipt       string    `json:"receipt"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"paymentDate"`
	Method        string    `json:"paymentMethod"`
	Installments  int       `json:"installments,omitempty"`
	CardBrand     string    `json:"cardBrand,omitempty"`
	FinancingBank string    `json:"financingBank,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateSaleInput for creating a sale with its line items.
type CreateSaleInput struct {
	ClientID       int64
	Items          []SaleItemInput
	SaleDate       time.Time
	DueDate        *time.Time
	Notes          string
	InitialPayment *PaymentInput
}

// SaleItemInput is one requested product line.
type SaleItemInput struct {
	ProductID int64
	Quantity  int
	UnitPrice float64
}

// PaymentInput for recording a payment against a sale.
type PaymentInput struct {
	Amount        float64
	PaymentDate   time.Time
	Method        string
	Installments  int
	CardBrand     string
	FinancingBank string
}

// UpdateTermsInput edits a sale's due date and, when items are given,
// rebuilds the line items and total.
type UpdateTermsInput struct {
	DueDate      *time.Time
	ClearDueDate bool
	Items        []SaleItemInput
	Notes        *string
}

// ListSalesRequest filters sale listings.
type ListSalesRequest struct {
	ClientID int64
	Status   SaleStatus
	Limit    int
	Offset   int
}
