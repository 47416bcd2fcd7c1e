package domain

import "time"

// Product is a vendor listing. Quantity is the available stock and is the
// only field the checkout flow mutates.
type Product struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Price       float64   `bson:"price" json:"price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	UnitMeasure string    `bson:"unit_measure" json:"unit_measure"`
	ImageURL    string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VendorEmail string    `bson:"vendor_email" json:"vendor_email"`
	Category    string    `bson:"category" json:"category"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
