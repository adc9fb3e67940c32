package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every concrete error below wraps exactly one of them, so the
// transport layer classifies with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
)

var (
	ErrCartNotFound      = fmt.Errorf("cart %w", ErrNotFound)
	ErrWishlistNotFound  = fmt.Errorf("wishlist %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("item %w", ErrNotFound)
	ErrProductNotInList  = fmt.Errorf("product %w in list", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidArgument)
	ErrInvalidID         = fmt.Errorf("%w: malformed identifier", ErrInvalidArgument)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be greater than 0", ErrInvalidArgument)
	ErrAmountTooLarge    = fmt.Errorf("%w: amount is too large", ErrInvalidArgument)
	ErrMissingOrderField = fmt.Errorf("%w: missing required order details", ErrInvalidArgument)
	ErrEmptyOrder        = fmt.Errorf("%w: order has no items", ErrInvalidArgument)
	ErrSignatureMismatch = fmt.Errorf("%w: payment signature does not match", ErrInvalidArgument)
	ErrDuplicateOrder    = fmt.Errorf("%w: order for this gateway order already exists", ErrConflict)
	ErrGatewayRejected   = fmt.Errorf("%w: payment gateway rejected the request", ErrInvalidArgument)
	ErrGatewayFailed     = fmt.Errorf("payment gateway %w", ErrUnavailable)
)

// NotFoundFor returns the list-level not found error for kind.
func NotFoundFor(kind ListKind) error {
	if kind == KindWishlist {
		return ErrWishlistNotFound
	}
	return ErrCartNotFound
}
