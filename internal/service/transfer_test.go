package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCheckoutScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pA, pB := f.product("A"), f.product("B")

	_, err := f.sut.Add(ctx, domain.KindCart, "u1", pA, 2)
	require.NoError(t, err)
	_, err = f.sut.Add(ctx, domain.KindCart, "u1", pB, 1)
	require.NoError(t, err)

	lines, err := f.sut.List(ctx, domain.KindCart, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, pA, lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, pB, lines[1].ProductID)
	assert.Equal(t, 1, lines[1].Quantity)

	_, err = f.sut.UpdateQuantity(ctx, domain.KindCart, "u1", lines[0].ID, 5)
	require.NoError(t, err)

	lines, err = f.sut.List(ctx, domain.KindCart, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)

	result, err := f.sut.Transfer(ctx, domain.KindCart, "u1", pA, false)
	require.NoError(t, err)
	assert.False(t, result.AlreadyPresent)
	assert.False(t, result.SourceRemoved)
	assert.Equal(t, 5, result.Quantity)

	wishlist, err := f.sut.List(ctx, domain.KindWishlist, "u1")
	require.NoError(t, err)
	require.Len(t, wishlist, 1)
	assert.Equal(t, pA, wishlist[0].ProductID)
	assert.Equal(t, 5, wishlist[0].Quantity)

	cart := f.carts.items("u1")
	require.Len(t, cart, 2)
	assert.Equal(t, 5, cart[0].Quantity)
	assert.Zero(t, f.tx.used)
}

func TestTransfer_ProductNotInSource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.sut.Add(ctx, domain.KindCart, "u1", primitive.NewObjectID(), 1)
	require.NoError(t, err)
	_, err = f.sut.Add(ctx, domain.KindWishlist, "u1", primitive.NewObjectID(), 4)
	require.NoError(t, err)
	before := f.wishlists.items("u1")

	_, err = f.sut.Transfer(ctx, domain.KindCart, "u1", primitive.NewObjectID(), false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrProductNotInList)
	assert.Equal(t, before, f.wishlists.items("u1"))
}

func TestTransfer_SourceMissing(t *testing.T) {
	f := newFixture()

	_, err := f.sut.Transfer(context.Background(), domain.KindWishlist, "u1", primitive.NewObjectID(), false)
	assert.ErrorIs(t, err, domain.ErrWishlistNotFound)
	assert.Nil(t, f.carts.items("u1"))
}

func TestTransfer_AlreadyPresentIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := primitive.NewObjectID()
	_, err := f.sut.Add(ctx, domain.KindWishlist, "u1", p, 3)
	require.NoError(t, err)
	_, err = f.sut.Add(ctx, domain.KindCart, "u1", p, 1)
	require.NoError(t, err)

	result, err := f.sut.Transfer(ctx, domain.KindWishlist, "u1", p, false)
	require.NoError(t, err)
	assert.True(t, result.AlreadyPresent)

	cart := f.carts.items("u1")
	require.Len(t, cart, 1)
	assert.Equal(t, 1, cart[0].Quantity)
}

func TestTransfer_RemoveSourceUsesTransaction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := primitive.NewObjectID()
	_, err := f.sut.Add(ctx, domain.KindWishlist, "u1", p, 2)
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(ctx, domain.KindWishlist, "u1", &domain.Cart{}))
	require.NoError(t, f.cache.Set(ctx, domain.KindCart, "u1", &domain.Cart{}))

	result, err := f.sut.Transfer(ctx, domain.KindWishlist, "u1", p, true)
	require.NoError(t, err)
	assert.True(t, result.SourceRemoved)
	assert.Equal(t, 1, f.tx.used)

	assert.Empty(t, f.wishlists.items("u1"))
	cart := f.carts.items("u1")
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Quantity)

	cachedCart := f.cache.entry(domain.KindCart, "u1")
	require.NotNil(t, cachedCart)
	require.Len(t, cachedCart.Items, 1)
	assert.Equal(t, 2, cachedCart.Items[0].Quantity)

	cachedWishlist := f.cache.entry(domain.KindWishlist, "u1")
	require.NotNil(t, cachedWishlist)
	assert.Empty(t, cachedWishlist.Items)
}

func TestTransfer_KeepsSourceCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := primitive.NewObjectID()
	_, err := f.sut.Add(ctx, domain.KindCart, "u1", p, 2)
	require.NoError(t, err)
	f.cache.entries["cart:u1"] = &domain.Cart{UserID: "u1"}

	_, err = f.sut.Transfer(ctx, domain.KindCart, "u1", p, false)
	require.NoError(t, err)

	// Source entry is untouched while the destination is written through
	assert.Zero(t, f.cache.entry(domain.KindCart, "u1").Version)
	cached := f.cache.entry(domain.KindWishlist, "u1")
	require.NotNil(t, cached)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, p, cached.Items[0].ProductID)
}

func TestTransfer_RemoveSourceWithoutTransactor(t *testing.T) {
	f := newFixture()
	sut := NewCartService(f.carts, f.wishlists, f.catalog, f.cache, nil, logger.Discard())

	_, err := sut.Transfer(context.Background(), domain.KindCart, "u1", primitive.NewObjectID(), true)
	assert.ErrorIs(t, err, errNoTransactor)
}

func TestTransfer_DestinationError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := primitive.NewObjectID()
	_, err := f.sut.Add(ctx, domain.KindCart, "u1", p, 1)
	require.NoError(t, err)
	f.wishlists.err = errors.New("database error")

	_, err = f.sut.Transfer(ctx, domain.KindCart, "u1", p, false)
	require.ErrorContains(t, err, "database error")
}
