// Package payments issues hosted payment links and interprets the payment
// processor's webhook notifications.
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/shopdesk/catalog-service/internal/models"
)

var (
	// ErrNotConfigured is returned when no processor secret key is set.
	ErrNotConfigured = errors.New("payment processor is not configured")
	// ErrInvalidSignature is returned for webhook payloads that fail
	// signature verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrNoLineItems is returned for a link request without items.
	ErrNoLineItems = errors.New("payment link needs at least one line item")
)

// LineItem is one product sold through a payment link.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  models.Money
	ImageURL    string
	Quantity    int64
}

// LinkRequest describes a payment link to create.
type LinkRequest struct {
	Currency string
	Items    []LineItem
	Metadata map[string]string
}

// Link is a created hosted payment link.
type Link struct {
	ID  string
	URL string
}

// Event is a webhook notification reduced to what the catalog acts on.
// PaymentLinkID is empty for events not tied to a payment link.
type Event struct {
	ID            string
	Type          string
	PaymentLinkID string
	OccurredAt    time.Time
}

// Completed reports whether the event marks a finished checkout.
func (e *Event) Completed() bool {
	return e.Type == EventCheckoutCompleted || e.Type == EventAsyncPaymentSucceeded
}

// Processor is a hosted payment page provider.
type Processor interface {
	CreatePaymentLink(ctx context.Context, req LinkRequest) (*Link, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// Disabled is the Processor used when no secret key is configured. Every
// call fails with ErrNotConfigured.
type Disabled struct{}

func (Disabled) CreatePaymentLink(context.Context, LinkRequest) (*Link, error) {
	return nil, ErrNotConfigured
}

func (Disabled) ParseWebhook([]byte, string) (*Event, error) {
	return nil, ErrNotConfigured
}
