package service

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errNoTransactor = errors.New("transfer with source removal needs a transactor")

// Transfer copies the owner's line for productID from the `from` list into the
// other list, carrying its quantity. A product already in the destination is
// left as is and reported via AlreadyPresent; quantities are not merged here,
// unlike Add.
//
// Without removeSource the source line stays put and the client removes it
// with a separate call. With removeSource the insert and the removal commit in
// one transaction.
func (s *CartService) Transfer(ctx context.Context, from domain.ListKind, userID string, productID primitive.ObjectID, removeSource bool) (*domain.TransferResult, error) {
	var result *domain.TransferResult
	var err error

	if removeSource {
		if s.tx == nil {
			return nil, errNoTransactor
		}
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			var errRun error
			result, errRun = s.transfer(ctx, from, userID, productID, true)
			return errRun
		})
	} else {
		result, err = s.transfer(ctx, from, userID, productID, false)
	}

	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.ErrorContext(ctx, "transfer error", "from", from, "user_id", userID, "error", err)
		}
		return nil, err
	}

	if !result.AlreadyPresent {
		s.writeThrough(from.Other(), userID, nil)
	}
	if result.SourceRemoved {
		s.writeThrough(from, userID, nil)
	}
	return result, nil
}

func (s *CartService) transfer(ctx context.Context, from domain.ListKind, userID string, productID primitive.ObjectID, removeSource bool) (*domain.TransferResult, error) {
	src, dst := s.repo(from), s.repo(from.Other())

	list, err := src.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := list.FindProduct(productID)
	if item == nil {
		return nil, domain.ErrProductNotInList
	}

	quantity := item.Quantity
	if quantity < 1 {
		quantity = 1
	}

	added, err := dst.AddIfAbsent(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	result := &domain.TransferResult{
		Product:        productID,
		Quantity:       quantity,
		AlreadyPresent: !added,
	}

	if removeSource {
		if err := src.RemoveProduct(ctx, userID, productID); err != nil {
			return nil, err
		}
		result.SourceRemoved = true
	}

	return result, nil
}
