package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// CartService implements the cart and wishlist stores. Every operation takes
// the list kind it works on; both kinds follow the same contract.
type CartService struct {
	carts     repository.CartRepository
	wishlists repository.CartRepository
	catalog   repository.ProductCatalog
	cache     cache.CartCache
	tx        repository.Transactor
	log       *slog.Logger
	sfg       singleflight.Group // Prevents cache stampede
}

func NewCartService(
	carts, wishlists repository.CartRepository,
	catalog repository.ProductCatalog,
	cache cache.CartCache,
	tx repository.Transactor,
	log *slog.Logger,
) *CartService {
	return &CartService{
		carts:     carts,
		wishlists: wishlists,
		catalog:   catalog,
		cache:     cache,
		tx:        tx,
		log:       log,
	}
}

func (s *CartService) repo(kind domain.ListKind) repository.CartRepository {
	if kind == domain.KindWishlist {
		return s.wishlists
	}
	return s.carts
}

// Add merges quantity into the owner's line for productID, creating the list
// and the line as needed. The product is not checked against the catalog.
func (s *CartService) Add(ctx context.Context, kind domain.ListKind, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.repo(kind).AddItem(ctx, userID, productID, quantity)
	if err != nil {
		s.log.ErrorContext(ctx, "repo add item error", "kind", kind, "user_id", userID, "error", err)
		return nil, err
	}

	s.writeThrough(kind, userID, cart)
	return cart, nil
}

// List returns the owner's lines joined with the catalog. A missing list is an
// empty result. Lines whose product was deleted carry a nil Product.
func (s *CartService) List(ctx context.Context, kind domain.ListKind, userID string) ([]domain.CartLine, error) {
	cart, err := s.getCart(ctx, kind, userID)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(cart.Items))
	if len(cart.Items) == 0 {
		return lines, nil
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}

	for _, item := range cart.Items {
		lines = append(lines, domain.CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Product:   products[item.ProductID],
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

func (s *CartService) getCart(ctx context.Context, kind domain.ListKind, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(string(kind)+":"+userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, kind, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "kind", kind, "error", err) // log cache error but continue
		}

		cart, errGet := s.repo(kind).GetCart(ctx, userID)
		if errors.Is(errGet, domain.ErrNotFound) {
			return &domain.Cart{UserID: userID}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// Set keeps a newer cached version, so a fill that lands after a
		// concurrent write is dropped.
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, kind, userID, cart); errSet != nil {
				s.log.Warn("cache set error", "kind", kind, "error", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// UpdateQuantity sets the quantity of the owner's item. Items are addressed by
// (owner, item id), so another owner's item id is not found.
func (s *CartService) UpdateQuantity(ctx context.Context, kind domain.ListKind, userID string, itemID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.repo(kind).UpdateItemQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		s.log.ErrorContext(ctx, "repo update item quantity error", "kind", kind, "user_id", userID, "error", err)
		return nil, err
	}

	s.writeThrough(kind, userID, cart)
	return cart, nil
}

func (s *CartService) Remove(ctx context.Context, kind domain.ListKind, userID string, itemID primitive.ObjectID) error {
	cart, err := s.repo(kind).RemoveItem(ctx, userID, itemID)
	if err != nil {
		s.log.ErrorContext(ctx, "repo remove item error", "kind", kind, "user_id", userID, "error", err)
		return err
	}

	s.writeThrough(kind, userID, cart)
	return nil
}

// writeThrough stores the list a mutation produced. A nil cart is reloaded
// from the repository. When the fresh list cannot be cached the entry is
// dropped instead.
func (s *CartService) writeThrough(kind domain.ListKind, userID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if cart == nil {
		var err error
		cart, err = s.repo(kind).GetCart(ctx, userID)
		if err != nil {
			s.log.Warn("cache reload error", "kind", kind, "user_id", userID, "error", err)
			s.invalidateCache(ctx, kind, userID)
			return
		}
	}

	if err := s.cache.Set(ctx, kind, userID, cart); err != nil {
		s.log.Warn("cache write-through error", "kind", kind, "user_id", userID, "error", err)
		s.invalidateCache(ctx, kind, userID)
	}
}

func (s *CartService) invalidateCache(ctx context.Context, kind domain.ListKind, userID string) {
	if err := s.cache.Delete(ctx, kind, userID); err != nil {
		s.log.Warn("cache invalidate error", "kind", kind, "user_id", userID, "error", err)
	}
}

// RemovePurchased drops productIDs from the owner's cart and reports how many
// lines went away. Products that are no longer in the cart are skipped.
func (s *CartService) RemovePurchased(ctx context.Context, userID string, productIDs []primitive.ObjectID) (int, error) {
	removed := 0
	for _, productID := range productIDs {
		err := s.carts.RemoveProduct(ctx, userID, productID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			if removed > 0 {
				s.writeThrough(domain.KindCart, userID, nil)
			}
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.writeThrough(domain.KindCart, userID, nil)
	}
	return removed, nil
}
