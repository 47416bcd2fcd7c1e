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

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("cart"),
	}
}

// cartLineDoc mirrors domain.CartLine with a native ObjectID so the store
// can assign identifiers on insert.
type cartLineDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserEmail    string             `bson:"user_email"`
	ProductID    string             `bson:"product_id"`
	ProductName  string             `bson:"product_name"`
	Price        float64            `bson:"price"`
	Quantity     int                `bson:"quantity"`
	UnitMeasure  string             `bson:"unit_measure"`
	ImageURL     string             `bson:"image_url,omitempty"`
	VendorEmail  string             `bson:"vendor_email"`
	ProductStock int                `bson:"product_stock"`
	AddedAt      time.Time          `bson:"added_at"`
}

func (d cartLineDoc) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:           d.ID.Hex(),
		UserEmail:    d.UserEmail,
		ProductID:    d.ProductID,
		ProductName:  d.ProductName,
		Price:        d.Price,
		Quantity:     d.Quantity,
		UnitMeasure:  d.UnitMeasure,
		ImageURL:     d.ImageURL,
		VendorEmail:  d.VendorEmail,
		ProductStock: d.ProductStock,
		AddedAt:      d.AddedAt,
	}
}

func (m *mongoCartRepository) LinesByUser(ctx context.Context, userEmail string) ([]domain.CartLine, error) {
	filter := bson.M{"user_email": userEmail}
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []cartLineDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}

	lines := make([]domain.CartLine, len(docs))
	for i, d := range docs {
		lines[i] = d.toDomain()
	}
	return lines, nil
}

func (m *mongoCartRepository) GetLine(ctx context.Context, lineID string) (*domain.CartLine, error) {
	oid, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return nil, ErrLineNotFound
	}

	var doc cartLineDoc
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}

	line := doc.toDomain()
	return &line, nil
}

func (m *mongoCartRepository) InsertLine(ctx context.Context, line *domain.CartLine) (string, error) {
	doc := cartLineDoc{
		UserEmail:    line.UserEmail,
		ProductID:    line.ProductID,
		ProductName:  line.ProductName,
		Price:        line.Price,
		Quantity:     line.Quantity,
		UnitMeasure:  line.UnitMeasure,
		ImageURL:     line.ImageURL,
		VendorEmail:  line.VendorEmail,
		ProductStock: line.ProductStock,
		AddedAt:      line.AddedAt,
	}
	if doc.AddedAt.IsZero() {
		doc.AddedAt = time.Now()
	}

	result, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert cart line: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoCartRepository) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	oid, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return ErrLineNotFound
	}

	update := bson.M{"$set": bson.M{"quantity": quantity}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

// DeleteLine is idempotent: deleting an absent line is not an error.
func (m *mongoCartRepository) DeleteLine(ctx context.Context, lineID string) error {
	oid, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return nil
	}

	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) DeleteLinesByUser(ctx context.Context, userEmail string) error {
	if _, err := m.collection.DeleteMany(ctx, bson.M{"user_email": userEmail}); err != nil {
		return fmt.Errorf("failed to delete cart lines: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_email", Value: 1}, {Key: "product_id", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}
