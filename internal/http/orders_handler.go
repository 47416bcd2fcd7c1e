package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/AlanMedina53232/RawConnect/internal/repository"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	repo    repository.OrderRepository
	timeout time.Duration
}

func NewOrdersHandler(repo repository.OrderRepository, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		repo:    repo,
		timeout: timeout,
	}
}

// ListOrders returns the caller's orders: purchases for buyers, received
// orders for vendors.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := sessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var orders []domain.Order
	var err error
	if session.Role == "vendor" {
		orders, err = h.repo.ListOrdersByVendor(ctx, session.Email)
	} else {
		orders, err = h.repo.ListOrdersByBuyer(ctx, session.Email)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := sessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	order, err := h.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// Orders are only visible to their buyer and their vendor.
	if order.BuyerEmail != session.Email && order.VendorEmail != session.Email {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// UpdateStatus is the vendor-side workflow's single entry point: accept,
// ship, deliver, finalize or reject an order.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := sessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !domain.ValidOrderStatus(status) {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	order, err := h.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order.VendorEmail != session.Email {
		respondError(w, http.StatusForbidden, "forbidden", "only the vendor may update order status")
		return
	}

	if err := h.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": req.Status})
}
