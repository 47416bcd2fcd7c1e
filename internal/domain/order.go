package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusFinalized OrderStatus = "finalized"
	OrderStatusRejected  OrderStatus = "rejected"
)

// ValidOrderStatus reports whether s is one of the statuses the vendor
// workflow may set.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusFinalized, OrderStatusRejected:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID   string  `bson:"product_id" json:"product_id"`
	ProductName string  `bson:"product_name" json:"product_name"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	Price       float64 `bson:"price" json:"price"`
	UnitMeasure string  `bson:"unit_measure" json:"unit_measure"`
}

// PaymentSummary is the only card data an order may carry: the masked
// last four digits and the holder name. Full card numbers never reach the
// orders collection.
type PaymentSummary struct {
	CardLast4  string `bson:"card_last4" json:"card_last4"`
	CardHolder string `bson:"card_holder" json:"card_holder"`
}

// Order is a vendor-scoped purchase record created at checkout. The item
// list is denormalized and immutable once created; only Status is mutated
// afterwards, by the vendor workflow.
type Order struct {
	ID             string         `bson:"_id,omitempty" json:"id"`
	BuyerEmail     string         `bson:"buyer_email" json:"buyer_email"`
	VendorEmail    string         `bson:"vendor_email" json:"vendor_email"`
	Items          []OrderItem    `bson:"items" json:"items"`
	TotalAmount    float64        `bson:"total_amount" json:"total_amount"`
	Status         OrderStatus    `bson:"status" json:"status"`
	PaymentMethod  string         `bson:"payment_method" json:"payment_method"`
	PaymentDetails PaymentSummary `bson:"payment_details" json:"payment_details"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
}
