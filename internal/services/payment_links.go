package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/payments"
)

// ErrMissingFields is returned for a payment link request without a
// customer or products.
var ErrMissingFields = errors.New("missing required fields")

// PaymentStore is the persistence the payment link workflow needs.
type PaymentStore interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	CreatePaymentLink(ctx context.Context, l *models.PaymentLink) error
	MarkPaymentLinkPaid(ctx context.Context, processorLinkID string, paidAt time.Time) (*models.PaymentLink, error)
}

// PaymentLinkRequest asks for a payment link covering a set of products.
type PaymentLinkRequest struct {
	UserEmail  string      `json:"userEmail"`
	UserName   string      `json:"userName"`
	ProductIDs []uuid.UUID `json:"productIds"`
	Currency   string      `json:"currency"`
	DueDate    *time.Time  `json:"dueDate"`
	Notes      string      `json:"notes"`
}

// PaymentLinkService issues payment links through the processor and tracks
// their status.
type PaymentLinkService struct {
	store     PaymentStore
	processor payments.Processor
	currency  string
	logger    zerolog.Logger
}

// NewPaymentLinkService creates the service. currency is used when a request
// does not name one.
func NewPaymentLinkService(store PaymentStore, processor payments.Processor, currency string, logger zerolog.Logger) *PaymentLinkService {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentLinkService{
		store:     store,
		processor: processor,
		currency:  strings.ToLower(currency),
		logger:    logger.With().Str("component", "payment_links").Logger(),
	}
}

// Create prices the requested products, issues a hosted link with one line
// item per product and stores it as pending. Unknown product ids are
// skipped; the link fails only when none is known.
func (s *PaymentLinkService) Create(ctx context.Context, req PaymentLinkRequest) (*models.PaymentLink, error) {
	req.UserEmail = strings.TrimSpace(req.UserEmail)
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserEmail == "" || req.UserName == "" || len(req.ProductIDs) == 0 {
		return nil, ErrMissingFields
	}

	products, err := s.store.GetProductsByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNoValidProducts
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	total := decimal.Zero
	ids := make([]uuid.UUID, 0, len(products))
	items := make([]payments.LineItem, 0, len(products))
	for _, p := range products {
		total = total.Add(p.Price.Decimal)
		ids = append(ids, p.ID)
		items = append(items, payments.LineItem{
			Name:        p.Name,
			Description: p.Description,
			UnitAmount:  p.Price,
			ImageURL:    publicImage(p.ImageURL),
			Quantity:    1,
		})
	}

	link, err := s.processor.CreatePaymentLink(ctx, payments.LinkRequest{
		Currency: currency,
		Items:    items,
		Metadata: map[string]string{"customer_email": req.UserEmail},
	})
	if err != nil {
		return nil, err
	}

	pl := &models.PaymentLink{
		UserEmail:       req.UserEmail,
		UserName:        req.UserName,
		Amount:          models.NewMoney(total),
		Currency:        currency,
		Status:          models.PaymentPending,
		ProcessorLinkID: link.ID,
		URL:             link.URL,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
		ProductIDs:      ids,
	}
	if err := s.store.CreatePaymentLink(ctx, pl); err != nil {
		return nil, fmt.Errorf("store payment link: %w", err)
	}

	s.logger.Info().
		Str("payment_link", pl.ID.String()).
		Str("processor_link", link.ID).
		Str("amount", pl.Amount.StringFixed(2)).
		Str("currency", currency).
		Int("products", len(ids)).
		Msg("payment link issued")
	return pl, nil
}

// HandleWebhook verifies a processor notification and marks the matching
// link paid when a checkout completed. It returns nil for events that do not
// concern a stored link.
func (s *PaymentLinkService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.PaymentLink, error) {
	evt, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if !evt.Completed() || evt.PaymentLinkID == "" {
		s.logger.Debug().Str("event", evt.ID).Str("type", evt.Type).Msg("webhook ignored")
		return nil, nil
	}

	paidAt := evt.OccurredAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	pl, err := s.store.MarkPaymentLinkPaid(ctx, evt.PaymentLinkID, paidAt)
	if errors.Is(err, db.ErrNotFound) {
		s.logger.Warn().Str("processor_link", evt.PaymentLinkID).Msg("webhook for unknown payment link")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark payment link paid: %w", err)
	}

	s.logger.Info().Str("payment_link", pl.ID.String()).Str("event", evt.ID).Msg("payment link paid")
	return pl, nil
}

// publicImage drops archive paths, which the processor cannot fetch.
func publicImage(url string) string {
	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") {
		return url
	}
	return ""
}
