package products

import "time"

// Product master record. Price here is the default unit price offered when a
// sale is drafted; the price actually charged lives on the sale item.
type Product struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListProductsRequest filters product listings.
type ListProductsRequest struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
