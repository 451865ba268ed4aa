package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/shopdesk/catalog-service/internal/config"
)

// Webhook event types acted on.
const (
	EventCheckoutCompleted     = string(stripe.EventTypeCheckoutSessionCompleted)
	EventAsyncPaymentSucceeded = string(stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded)
)

// Stripe creates payment links through the Stripe API. Each line item gets
// its own Stripe product and one-off price.
type Stripe struct {
	api           *client.API
	webhookSecret string
	currency      string
	countries     []string
	logger        zerolog.Logger
}

// NewStripe returns Disabled when no secret key is configured.
func NewStripe(cfg config.PaymentsConfig, logger zerolog.Logger) Processor {
	if cfg.StripeSecretKey == "" {
		return Disabled{}
	}
	return newStripe(cfg, logger, nil)
}

func newStripe(cfg config.PaymentsConfig, logger zerolog.Logger, backends *stripe.Backends) *Stripe {
	logger = logger.With().Str("component", "stripe").Logger()
	if backends == nil {
		backend := func(t stripe.SupportedBackend) stripe.Backend {
			return stripe.GetBackendWithConfig(t, &stripe.BackendConfig{LeveledLogger: stripeLogger{logger}})
		}
		backends = &stripe.Backends{
			API:     backend(stripe.APIBackend),
			Connect: backend(stripe.ConnectBackend),
			Uploads: backend(stripe.UploadsBackend),
		}
	}

	api := &client.API{}
	api.Init(cfg.StripeSecretKey, backends)

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "usd"
	}

	return &Stripe{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		countries:     cfg.AllowedCountries,
		logger:        logger,
	}
}

func (s *Stripe) CreatePaymentLink(ctx context.Context, req LinkRequest) (*Link, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoLineItems
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.currency
	}

	lineItems := make([]*stripe.PaymentLinkLineItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		priceID, err := s.createPrice(ctx, item, currency)
		if err != nil {
			return nil, fmt.Errorf("line item %d (%s): %w", i, item.Name, err)
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineItems = append(lineItems, &stripe.PaymentLinkLineItemParams{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(qty),
		})
	}

	params := &stripe.PaymentLinkParams{
		LineItems:                lineItems,
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String("required"),
	}
	params.Context = ctx
	if len(s.countries) > 0 {
		params.ShippingAddressCollection = &stripe.PaymentLinkShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.countries),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pl, err := s.api.PaymentLinks.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	s.logger.Info().
		Str("payment_link", pl.ID).
		Int("items", len(lineItems)).
		Str("currency", currency).
		Msg("payment link created")

	return &Link{ID: pl.ID, URL: pl.URL}, nil
}

func (s *Stripe) createPrice(ctx context.Context, item LineItem, currency string) (string, error) {
	productParams := &stripe.ProductParams{Name: stripe.String(item.Name)}
	productParams.Context = ctx
	if item.Description != "" {
		productParams.Description = stripe.String(item.Description)
	}
	if item.ImageURL != "" {
		productParams.Images = stripe.StringSlice([]string{item.ImageURL})
	}

	product, err := s.api.Products.New(productParams)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(currency),
		Product:    stripe.String(product.ID),
		UnitAmount: stripe.Int64(item.UnitAmount.Cents()),
	}
	priceParams.Context = ctx

	price, err := s.api.Prices.New(priceParams)
	if err != nil {
		return "", fmt.Errorf("create price: %w", err)
	}
	return price.ID, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the payment
// link of checkout session events.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("webhook secret: %w", ErrNotConfigured)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		ID:         evt.ID,
		Type:       string(evt.Type),
		OccurredAt: time.Unix(evt.Created, 0).UTC(),
	}

	if strings.HasPrefix(out.Type, "checkout.session.") && evt.Data != nil {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if session.PaymentLink != nil {
			out.PaymentLinkID = session.PaymentLink.ID
		}
	}
	return out, nil
}

// stripeLogger routes stripe-go's leveled logging into zerolog.
type stripeLogger struct {
	logger zerolog.Logger
}

func (l stripeLogger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }
func (l stripeLogger) Infof(format string, v ...interface{})  { l.logger.Debug().Msgf(format, v...) }
func (l stripeLogger) Warnf(format string, v ...interface{})  { l.logger.Warn().Msgf(format, v...) }
func (l stripeLogger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }
