package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPaymentMethodRepository struct {
	collection *mongo.Collection
}

func NewMongoPaymentMethodRepository(db *mongo.Database) PaymentMethodRepository {
	return &mongoPaymentMethodRepository{
		collection: db.Collection("userPaymentMethods"),
	}
}

func (m *mongoPaymentMethodRepository) GetPaymentMethod(ctx context.Context, ownerEmail string) (*domain.SavedPaymentMethod, error) {
	var method domain.SavedPaymentMethod
	err := m.collection.FindOne(ctx, bson.M{"_id": ownerEmail}).Decode(&method)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return &method, nil
}

// UpsertPaymentMethod overwrites the buyer's single stored card. The owner
// email is the document key, so each buyer keeps exactly one.
func (m *mongoPaymentMethodRepository) UpsertPaymentMethod(ctx context.Context, method *domain.SavedPaymentMethod) error {
	method.UpdatedAt = time.Now()

	filter := bson.M{"_id": method.OwnerEmail}
	update := bson.M{"$set": method}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert payment method: %w", err)
	}
	return nil
}
