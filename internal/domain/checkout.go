package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusInitiated        CheckoutStatus = "INITIATED"
	CheckoutStatusStockReserved    CheckoutStatus = "STOCK_RESERVED"
	CheckoutStatusPaymentPending   CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusPaymentCompleted CheckoutStatus = "PAYMENT_COMPLETED"
	CheckoutStatusCompleted        CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed           CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:        {CheckoutStatusStockReserved, CheckoutStatusFailed},
	CheckoutStatusStockReserved:    {CheckoutStatusPaymentPending, CheckoutStatusFailed},
	CheckoutStatusPaymentPending:   {CheckoutStatusPaymentCompleted, CheckoutStatusFailed},
	CheckoutStatusPaymentCompleted: {CheckoutStatusCompleted, CheckoutStatusFailed},
}

// CanTransitionTo reports whether moving from -> to is a legal step of the
// checkout state machine. Terminal states allow no further transitions.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CartSnapshotItem struct {
	LineID       string  `json:"line_id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	UnitMeasure  string  `json:"unit_measure"`
	VendorEmail  string  `json:"vendor_email"`
	Subtotal     float64 `json:"subtotal"`
	CurrentStock int     `json:"current_stock"`
}

// CartSnapshot captures the full cart state at checkout time, with prices
// and stock re-read from the product documents rather than the add-time
// snapshots on the cart lines.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

type CheckoutRequest struct {
	BuyerEmail     string
	IdempotencyKey string
	Card           *CardDetails
}

type CheckoutResponse struct {
	CheckoutID string
	Status     CheckoutStatus
	OrderIDs   []string
}
