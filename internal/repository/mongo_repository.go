package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxUpsertAttempts bounds retries after losing the unique user_id race to a
// concurrent writer creating the same list.
const maxUpsertAttempts = 3

type MongoRepository struct {
	kind       domain.ListKind
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database, kind domain.ListKind) *MongoRepository {
	return &MongoRepository{
		kind:       kind,
		collection: db.Collection(collectionName(kind)),
	}
}

func collectionName(kind domain.ListKind) string {
	if kind == domain.KindWishlist {
		return "wishlists"
	}
	return "carts"
}

func (m *MongoRepository) Kind() domain.ListKind {
	return m.kind
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFoundFor(m.kind)
		}
		return nil, fmt.Errorf("failed to get %s: %w", m.kind, err)
	}

	return &cart, nil
}

// AddItem merges quantity into the line for productID, appending a new line
// (and creating the list) when there is none. Each attempt is two single
// document updates, so no read-modify-write window exists.
func (m *MongoRepository) AddItem(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		cart, err := m.addItemOnce(ctx, userID, productID, quantity)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		return cart, err
	}
	return nil, fmt.Errorf("failed to add item to %s after %d attempts", m.kind, maxUpsertAttempts)
}

func (m *MongoRepository) addItemOnce(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	now := time.Now().UTC()
	var cart domain.Cart

	// Existing line: increment in place
	mergeFilter := bson.M{"user_id": userID, "items.product_id": productID}
	merge := bson.M{
		"$inc": bson.M{"items.$.quantity": quantity, "version": 1},
		"$set": bson.M{"updated_at": now},
	}
	err := m.collection.FindOneAndUpdate(ctx, mergeFilter, merge,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&cart)
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to merge item: %w", err)
	}

	// No line for the product: push one, creating the list if needed
	item := domain.CartItem{
		ID:        primitive.NewObjectID(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   now,
	}
	err = m.collection.FindOneAndUpdate(ctx, appendFilter(userID, productID), appendUpdate(item, now),
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)).Decode(&cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add new item: %w", err)
	}

	return &cart, nil
}

// AddIfAbsent appends a line for productID unless one exists. It reports
// whether a line was added; an existing line is left untouched.
func (m *MongoRepository) AddIfAbsent(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) (bool, error) {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		present, err := m.collection.CountDocuments(ctx, bson.M{"user_id": userID, "items.product_id": productID})
		if err != nil {
			return false, fmt.Errorf("failed to check %s: %w", m.kind, err)
		}
		if present > 0 {
			return false, nil
		}

		now := time.Now().UTC()
		item := domain.CartItem{
			ID:        primitive.NewObjectID(),
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   now,
		}
		_, err = m.collection.UpdateOne(ctx, appendFilter(userID, productID), appendUpdate(item, now),
			options.Update().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to add new item: %w", err)
		}
		return true, nil
	}
	return false, fmt.Errorf("failed to add item to %s after %d attempts", m.kind, maxUpsertAttempts)
}

func appendFilter(userID string, productID primitive.ObjectID) bson.M {
	return bson.M{
		"user_id":          userID,
		"items.product_id": bson.M{"$ne": productID},
	}
}

func appendUpdate(item domain.CartItem, now time.Time) bson.M {
	return bson.M{
		"$push":        bson.M{"items": item},
		"$inc":         bson.M{"version": 1},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
}

func (m *MongoRepository) UpdateItemQuantity(ctx context.Context, userID string, itemID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	filter := bson.M{
		"user_id":   userID,
		"items._id": itemID,
	}

	update := bson.M{
		"$set": bson.M{
			"items.$.quantity": quantity,
			"updated_at":       time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	var cart domain.Cart
	err := m.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item quantity: %w", err)
	}

	return &cart, nil
}

// RemoveItem pulls the owner's item and returns the list as it is afterwards.
func (m *MongoRepository) RemoveItem(ctx context.Context, userID string, itemID primitive.ObjectID) (*domain.Cart, error) {
	filter := bson.M{"user_id": userID, "items._id": itemID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"_id": itemID},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}

	var cart domain.Cart
	err := m.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to remove item: %w", err)
	}

	return &cart, nil
}

func (m *MongoRepository) RemoveProduct(ctx context.Context, userID string, productID primitive.ObjectID) error {
	filter := bson.M{"user_id": userID, "items.product_id": productID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product_id": productID},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrProductNotInList
	}

	return nil
}

// CreateIndexes must run before serving: AddItem relies on the unique user_id
// index to turn a concurrent list creation into a retry.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "items._id", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
