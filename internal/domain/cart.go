package domain

import "time"

// CartLine is one product+quantity entry in a buyer's cart. Lines are stored
// as individual documents keyed by the buyer's email, matching the store's
// query-by-field access pattern. ProductStock is the stock snapshot taken
// when the line was added; live stock is re-read at checkout.
type CartLine struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	UserEmail    string    `bson:"user_email" json:"user_email"`
	ProductID    string    `bson:"product_id" json:"product_id"`
	ProductName  string    `bson:"product_name" json:"product_name"`
	Price        float64   `bson:"price" json:"price"`
	Quantity     int       `bson:"quantity" json:"quantity"`
	UnitMeasure  string    `bson:"unit_measure" json:"unit_measure"`
	ImageURL     string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VendorEmail  string    `bson:"vendor_email" json:"vendor_email"`
	ProductStock int       `bson:"product_stock" json:"product_stock"`
	AddedAt      time.Time `bson:"added_at" json:"added_at"`
}

// Subtotal is the line's contribution to the cart total.
func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}
