package repository

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartRepository stores one list document per user. The same implementation
// backs both carts and wishlists.
type CartRepository interface {
	Kind() domain.ListKind
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error)
	AddIfAbsent(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) (bool, error)
	UpdateItemQuantity(ctx context.Context, userID string, itemID primitive.ObjectID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, itemID primitive.ObjectID) (*domain.Cart, error)
	RemoveProduct(ctx context.Context, userID string, productID primitive.ObjectID) error
}

// ProductCatalog resolves product references for listings. Missing ids are
// simply absent from the result.
type ProductCatalog interface {
	GetProducts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or aborts together.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
