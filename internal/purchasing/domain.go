package purchasing

import "time"

// PurchaseOrder is an amount owed to a supplier. Purchase orders feed the
// dashboard's payable total until they are settled.
type PurchaseOrder struct {
	ID          int64      `json:"id"`
	SupplierID  int64      `json:"supplierId"`
	Description string     `json:"description,omitempty"`
	TotalAmount float64    `json:"totalAmount"`
	OrderDate   time.Time  `json:"orderDate"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Paid        bool       `json:"paid"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateOrderInput for registering a purchase order.
type CreateOrderInput struct {
	SupplierID  int64
	Description string
	TotalAmount float64
	OrderDate   time.Time
	DueDate     *time.Time
}
