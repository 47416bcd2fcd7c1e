package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/AlanMedina53232/RawConnect/internal/cart"
	"github.com/AlanMedina53232/RawConnect/internal/checkout"
	"github.com/AlanMedina53232/RawConnect/internal/repository"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain and repository errors onto HTTP statuses.
func handleServiceError(w http.ResponseWriter, err error) {
	var validation *checkout.ValidationError
	switch {
	case errors.Is(err, repository.ErrLineNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrPaymentMethodNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrStockExceeded):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrCaptureNotConfirmed):
		respondError(w, http.StatusPaymentRequired, "capture_failed", err.Error())
	case errors.Is(err, repository.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.As(err, &validation):
		respondValidation(w, validation)
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

type lineErrorDTO struct {
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// respondValidation surfaces per-line stock errors so the client can mark
// exactly the lines that block checkout.
func respondValidation(w http.ResponseWriter, v *checkout.ValidationError) {
	lines := make([]lineErrorDTO, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = lineErrorDTO{
			LineID:    l.LineID,
			ProductID: l.ProductID,
			Requested: l.Requested,
			Available: l.Available,
		}
	}
	respondJSON(w, http.StatusConflict, map[string]interface{}{
		"error": "some cart lines exceed available stock",
		"code":  "stock_validation",
		"lines": lines,
	})
}
