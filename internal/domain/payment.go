package domain

import (
	"strings"
	"time"
)

// SavedPaymentMethod is a buyer's stored card, keyed by the owner's email.
// One per buyer, overwritten on each checkout that supplies a new card.
// The CVV is never persisted.
type SavedPaymentMethod struct {
	OwnerEmail string    `bson:"_id" json:"owner_email"`
	CardNumber string    `bson:"card_number" json:"card_number"`
	CardHolder string    `bson:"card_holder" json:"card_holder"`
	ExpiryDate string    `bson:"expiry_date" json:"expiry_date"`
	LastFour   string    `bson:"last_four" json:"last_four"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// CardDetails is the card input collected at checkout. CVV is validated
// upstream and intentionally absent here.
type CardDetails struct {
	Number     string `json:"number"`
	Holder     string `json:"holder"`
	ExpiryDate string `json:"expiry_date"`
}

// LastFour returns the final four digits of a card number, ignoring
// formatting spaces.
func LastFour(cardNumber string) string {
	digits := strings.ReplaceAll(cardNumber, " ", "")
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// MaskCardNumber hides all but the last four digits.
func MaskCardNumber(cardNumber string) string {
	last := LastFour(cardNumber)
	if last == "" {
		return ""
	}
	return "**** **** **** " + last
}

// CaptureResult is the outcome of a payment capture attempt. Success=false
// means the checkout must abort; callers never retry a capture.
type CaptureResult struct {
	Success         bool   `json:"success"`
	ProviderDetails string `json:"provider_details,omitempty"`
	Reason          string `json:"reason,omitempty"`
}
