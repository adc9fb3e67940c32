package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListKind names the collection a Cart document lives in. Carts and wishlists
// share one document shape and differ only in where they are stored.
type ListKind string

const (
	KindCart     ListKind = "cart"
	KindWishlist ListKind = "wishlist"
)

// Other returns the opposite list, the destination of a transfer.
func (k ListKind) Other() ListKind {
	if k == KindCart {
		return KindWishlist
	}
	return KindCart
}

// Cart is the stored list document. Version is bumped by every write, so a
// copy with a lower version is older.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewerThan reports whether c is a later revision than other.
func (c *Cart) NewerThan(other *Cart) bool {
	if other == nil {
		return true
	}
	return c.Version > other.Version
}

// CartItem is one line of a cart or wishlist. A list holds at most one item per product.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	AddedAt   time.Time          `bson:"added_at" json:"added_at"`
}

// FindProduct returns the item for productID, or nil.
func (c *Cart) FindProduct(productID primitive.ObjectID) *CartItem {
	if c == nil {
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// CartLine is a CartItem with its product resolved from the catalog.
// Product is nil when the referenced product no longer exists.
type CartLine struct {
	ID        primitive.ObjectID `json:"_id"`
	ProductID primitive.ObjectID `json:"product_id"`
	Product   *Product           `json:"product"`
	Quantity  int                `json:"quantity"`
}

// TransferResult reports what a transfer between cart and wishlist did.
type TransferResult struct {
	Product        primitive.ObjectID `json:"product_id"`
	Quantity       int                `json:"quantity"`
	AlreadyPresent bool               `json:"already_present"`
	SourceRemoved  bool               `json:"source_removed"`
}
