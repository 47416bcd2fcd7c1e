package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/AlanMedina53232/RawConnect/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ProductsHandler struct {
	repo    repository.ProductRepository
	timeout time.Duration
}

func NewProductsHandler(repo repository.ProductRepository, timeout time.Duration) *ProductsHandler {
	return &ProductsHandler{
		repo:    repo,
		timeout: timeout,
	}
}

func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	category := r.URL.Query().Get("category")
	products, err := h.repo.ListProducts(ctx, category)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	product, err := h.repo.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

type PaymentMethodHandler struct {
	repo    repository.PaymentMethodRepository
	timeout time.Duration
}

func NewPaymentMethodHandler(repo repository.PaymentMethodRepository, timeout time.Duration) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		repo:    repo,
		timeout: timeout,
	}
}

type savedCardDTO struct {
	CardNumber string `json:"card_number"`
	CardHolder string `json:"card_holder"`
	ExpiryDate string `json:"expiry_date"`
	LastFour   string `json:"last_four"`
}

// GetPaymentMethod returns the buyer's stored card with the number masked.
// A buyer with no stored card gets an empty object, not an error, so the
// checkout surface can prefill unconditionally.
func (h *PaymentMethodHandler) GetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := sessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	method, err := h.repo.GetPaymentMethod(ctx, session.Email)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			respondJSON(w, http.StatusOK, savedCardDTO{})
			return
		}
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, savedCardDTO{
		CardNumber: domain.MaskCardNumber(method.CardNumber),
		CardHolder: method.CardHolder,
		ExpiryDate: method.ExpiryDate,
		LastFour:   method.LastFour,
	})
}
