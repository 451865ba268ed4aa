package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/payments"
	"github.com/shopdesk/catalog-service/internal/services"
)

// maxWebhookBody is the largest webhook payload accepted.
const maxWebhookBody = 64 << 10

func (h *Handler) GetPaymentLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.store.ListPaymentLinks(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list payment links", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(links))
}

// CreatePaymentLink issues a hosted payment page for a customer's products.
func (h *Handler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	var req services.PaymentLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.payments.Create(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		h.sendError(w, http.StatusBadRequest, "Missing required fields")
		return
	case errors.Is(err, services.ErrNoValidProducts):
		h.sendError(w, http.StatusBadRequest, "No valid products found")
		return
	case errors.Is(err, payments.ErrNotConfigured):
		h.sendError(w, http.StatusServiceUnavailable, "payments not configured")
		return
	case err != nil:
		h.serverError(w, r, "failed to create payment link", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Payment link created successfully",
		"paymentLink": link,
		"stripeUrl":   link.URL,
	})
}

func (h *Handler) UpdatePaymentLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var u models.PaymentLinkUpdate
	if err := decodeJSON(r, &u); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if u.Status != nil && !u.Status.Valid() {
		h.sendError(w, http.StatusBadRequest, "invalid status")
		return
	}

	link, err := h.store.UpdatePaymentLink(r.Context(), id, u)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Payment link not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to update payment link", err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) DeletePaymentLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	err := h.store.DeletePaymentLink(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Payment link not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to delete payment link", err)
		return
	}
	writeMessage(w, http.StatusOK, "Payment link deleted successfully")
}

// StripeWebhook receives processor events. Signature failures are 400 so
// the processor does not retry them.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.sendError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	_, err = h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		requestLogger(r, h.logger).Warn().Err(err).Msg("webhook rejected")
		h.sendError(w, http.StatusBadRequest, "Webhook Error: invalid signature")
		return
	case errors.Is(err, payments.ErrNotConfigured):
		h.sendError(w, http.StatusServiceUnavailable, "payments not configured")
		return
	case err != nil:
		h.serverError(w, r, "failed to process webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
