package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Money     `json:"price"`
	Category    string    `json:"category"`
	SKU         string    `json:"sku,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductUpdate is a partial product update; nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *Money  `json:"price,omitempty"`
	Category    *string `json:"category,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil &&
		u.Category == nil && u.SKU == nil && u.ImageURL == nil
}

// Contact is a customer imported by hand, from a spreadsheet, or from a
// photographed list. The dashboard calls these "system users".
type Contact struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	Role       string    `json:"role,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Assignment links a product to a customer.
type Assignment struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"productId"`
	UserEmail  string    `json:"userEmail"`
	UserName   string    `json:"userName"`
	AssignedBy string    `json:"assignedBy"`
	AssignedAt time.Time `json:"assignedAt"`

	// Product is populated by listing queries.
	Product *Product `json:"product,omitempty"`
}

// Stats are the dashboard counters.
type Stats struct {
	TotalProducts int   `json:"totalProducts"`
	ActiveUsers   int   `json:"activeUsers"`
	PaymentLinks  int   `json:"paymentLinks"`
	Revenue       Money `json:"revenue"`
}
