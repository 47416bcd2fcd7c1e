package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

type orderDoc struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty"`
	BuyerEmail     string                `bson:"buyer_email"`
	VendorEmail    string                `bson:"vendor_email"`
	Items          []domain.OrderItem    `bson:"items"`
	TotalAmount    float64               `bson:"total_amount"`
	Status         domain.OrderStatus    `bson:"status"`
	PaymentMethod  string                `bson:"payment_method"`
	PaymentDetails domain.PaymentSummary `bson:"payment_details"`
	CreatedAt      time.Time             `bson:"created_at"`
}

func (d orderDoc) toDomain() domain.Order {
	return domain.Order{
		ID:             d.ID.Hex(),
		BuyerEmail:     d.BuyerEmail,
		VendorEmail:    d.VendorEmail,
		Items:          d.Items,
		TotalAmount:    d.TotalAmount,
		Status:         d.Status,
		PaymentMethod:  d.PaymentMethod,
		PaymentDetails: d.PaymentDetails,
		CreatedAt:      d.CreatedAt,
	}
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) (string, error) {
	doc := orderDoc{
		BuyerEmail:     order.BuyerEmail,
		VendorEmail:    order.VendorEmail,
		Items:          order.Items,
		TotalAmount:    order.TotalAmount,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		PaymentDetails: order.PaymentDetails,
		CreatedAt:      order.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	result, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert order: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	var doc orderDoc
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	order := doc.toDomain()
	return &order, nil
}

func (m *mongoOrderRepository) ListOrdersByBuyer(ctx context.Context, buyerEmail string) ([]domain.Order, error) {
	return m.listOrders(ctx, bson.M{"buyer_email": buyerEmail})
}

func (m *mongoOrderRepository) ListOrdersByVendor(ctx context.Context, vendorEmail string) ([]domain.Order, error) {
	return m.listOrders(ctx, bson.M{"vendor_email": vendorEmail})
}

func (m *mongoOrderRepository) listOrders(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]domain.Order, len(docs))
	for i, d := range docs {
		orders[i] = d.toDomain()
	}
	return orders, nil
}

func (m *mongoOrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrOrderNotFound
	}

	update := bson.M{"$set": bson.M{"status": status}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DeleteOrder exists for checkout compensation only; vendor-visible orders
// are never deleted through the API.
func (m *mongoOrderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrOrderNotFound
	}

	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}
