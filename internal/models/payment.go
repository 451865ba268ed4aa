package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment link.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentExpired   PaymentStatus = "expired"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentExpired, PaymentCancelled:
		return true
	}
	return false
}

// PaymentLink is a hosted payment page issued to a customer for a set of
// products.
type PaymentLink struct {
	ID              uuid.UUID     `json:"id"`
	UserEmail       string        `json:"userEmail"`
	UserName        string        `json:"userName"`
	Amount          Money         `json:"amount"`
	Currency        string        `json:"currency"`
	Status          PaymentStatus `json:"status"`
	ProcessorLinkID string        `json:"stripePaymentLinkId,omitempty"`
	URL             string        `json:"stripePaymentLinkUrl,omitempty"`
	DueDate         *time.Time    `json:"dueDate,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	ProductIDs      []uuid.UUID   `json:"productIds"`
	CreatedAt       time.Time     `json:"createdAt"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
}

// PaymentLinkUpdate is a partial payment link update.
type PaymentLinkUpdate struct {
	Status  *PaymentStatus `json:"status,omitempty"`
	DueDate *time.Time     `json:"dueDate,omitempty"`
	Notes   *string        `json:"notes,omitempty"`
}
