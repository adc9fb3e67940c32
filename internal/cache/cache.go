package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// CartCache holds raw list documents (carts and wishlists) by owner. Set must
// not replace a cached list that has a higher Version.
type CartCache interface {
	Get(ctx context.Context, kind domain.ListKind, userID string) (*domain.Cart, error)
	Set(ctx context.Context, kind domain.ListKind, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, kind domain.ListKind, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
