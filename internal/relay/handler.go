// Package relay is the thin payment-gateway relay: it owns the provider
// credentials so the client never sees them, creating provider orders and
// capturing them on the buyer's behalf.
package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
)

// Provider is the slice of the payment gateway the relay needs.
type Provider interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (orderID, approvalURL string, err error)
	CaptureOrder(ctx context.Context, orderID string) (status string, raw json.RawMessage, err error)
}

type Handler struct {
	provider Provider
	currency string
}

func NewHandler(provider Provider, currency string) *Handler {
	return &Handler{
		provider: provider,
		currency: currency,
	}
}

type createPaymentRequest struct {
	Amount *float64 `json:"amount"`
}

type createPaymentResponse struct {
	PaymentID   string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}
	if req.Amount == nil || *req.Amount <= 0 {
		log.Printf("create-payment: invalid amount %v", req.Amount)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}

	orderID, approvalURL, err := h.provider.CreateOrder(r.Context(), *req.Amount, h.currency)
	if err != nil {
		log.Printf("create-payment: provider error: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	log.Printf("create-payment: order %s created", orderID)
	respondJSON(w, http.StatusOK, createPaymentResponse{
		PaymentID:   orderID,
		ApprovalURL: approvalURL,
	})
}

type executePaymentRequest struct {
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
}

type executePaymentResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (h *Handler) ExecutePayment(w http.ResponseWriter, r *http.Request) {
	var req executePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.PaymentID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "missing paymentId"})
		return
	}

	status, raw, err := h.provider.CaptureOrder(r.Context(), req.PaymentID)
	if err != nil {
		log.Printf("execute-payment: provider error: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	log.Printf("execute-payment: order %s captured with status %s", req.PaymentID, status)
	respondJSON(w, http.StatusOK, executePaymentResponse{
		Success: status == "COMPLETED",
		Data:    raw,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
