package repository

import (
	"context"
	"errors"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

var (
	ErrLineNotFound          = errors.New("cart line not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrInsufficientStock     = errors.New("insufficient product stock")
)

// CartRepository defines the interface for cart line operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	LinesByUser(ctx context.Context, userEmail string) ([]domain.CartLine, error)
	GetLine(ctx context.Context, lineID string) (*domain.CartLine, error)
	InsertLine(ctx context.Context, line *domain.CartLine) (string, error)
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteLine(ctx context.Context, lineID string) error
	DeleteLinesByUser(ctx context.Context, userEmail string) error
}

type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	DecrementStock(ctx context.Context, productID string, quantity int) error
	IncrementStock(ctx context.Context, productID string, quantity int) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) (string, error)
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerEmail string) ([]domain.Order, error)
	ListOrdersByVendor(ctx context.Context, vendorEmail string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type PaymentMethodRepository interface {
	GetPaymentMethod(ctx context.Context, ownerEmail string) (*domain.SavedPaymentMethod, error)
	UpsertPaymentMethod(ctx context.Context, method *domain.SavedPaymentMethod) error
}
