package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Quantity    int                `bson:"quantity"`
	UnitMeasure string             `bson:"unit_measure"`
	ImageURL    string             `bson:"image_url,omitempty"`
	VendorEmail string             `bson:"vendor_email"`
	Category    string             `bson:"category"`
}

func (d productDoc) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       d.Price,
		Quantity:    d.Quantity,
		UnitMeasure: d.UnitMeasure,
		ImageURL:    d.ImageURL,
		VendorEmail: d.VendorEmail,
		Category:    d.Category,
	}
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	var doc productDoc
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	product := doc.toDomain()
	return &product, nil
}

func (m *mongoProductRepository) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]domain.Product, len(docs))
	for i, d := range docs {
		products[i] = d.toDomain()
	}
	return products, nil
}

// DecrementStock subtracts quantity from the product's stock only when
// enough stock remains. The filter makes the check-and-decrement a single
// conditional write, so two concurrent checkouts cannot drive stock
// negative; the losing writer gets ErrInsufficientStock.
func (m *mongoProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return ErrProductNotFound
	}

	filter := bson.M{
		"_id":      oid,
		"quantity": bson.M{"$gte": quantity},
	}
	update := bson.M{"$inc": bson.M{"quantity": -quantity}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing product from a stock shortfall.
		count, countErr := m.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return fmt.Errorf("failed to check product existence: %w", countErr)
		}
		if count == 0 {
			return ErrProductNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (m *mongoProductRepository) IncrementStock(ctx context.Context, productID string, quantity int) error {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return ErrProductNotFound
	}

	update := bson.M{"$inc": bson.M{"quantity": quantity}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
