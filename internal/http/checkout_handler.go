package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/checkout"
	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

type CheckoutHandler struct {
	service checkout.CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(service checkout.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

type CardDTO struct {
	Number     string `json:"number"`
	Holder     string `json:"holder"`
	ExpiryDate string `json:"expiry_date"`
}

type CheckoutRequestDTO struct {
	IdempotencyKey string   `json:"idempotency_key"`
	Card           *CardDTO `json:"card,omitempty"`
}

type CheckoutResponseDTO struct {
	CheckoutID string   `json:"checkout_id"`
	Status     string   `json:"status"`
	OrderIDs   []string `json:"order_ids,omitempty"`
}

// Checkout is deliberately synchronous: the buyer's surface disables the
// action while the request is in flight, and the idempotency key makes a
// resubmitted request safe.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := sessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.IdempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "idempotency_key is required")
		return
	}

	request := &domain.CheckoutRequest{
		BuyerEmail:     session.Email,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.Card != nil {
		request.Card = &domain.CardDetails{
			Number:     req.Card.Number,
			Holder:     req.Card.Holder,
			ExpiryDate: req.Card.ExpiryDate,
		}
	}

	resp, err := h.service.InitiateCheckout(ctx, request)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		CheckoutID: resp.CheckoutID,
		Status:     resp.Status.String(),
		OrderIDs:   resp.OrderIDs,
	})
}
