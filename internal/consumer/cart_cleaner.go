package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageReader is the part of *kafka.Reader the cleaner uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type PurchasedRemover interface {
	RemovePurchased(ctx context.Context, userID string, productIDs []primitive.ObjectID) (int, error)
}

// CartCleaner consumes order paid events and drops the purchased products
// from the buyer's cart. Wishlists are left alone.
type CartCleaner struct {
	reader     MessageReader
	carts      PurchasedRemover
	log        *slog.Logger
	retryDelay time.Duration
}

const defaultRetryDelay = time.Second

func NewCartCleaner(carts PurchasedRemover, log *slog.Logger, topic, groupID string, brokers ...string) *CartCleaner {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewCartCleanerWithReader(reader, carts, log)
}

func NewCartCleanerWithReader(reader MessageReader, carts PurchasedRemover, log *slog.Logger) *CartCleaner {
	return &CartCleaner{reader: reader, carts: carts, log: log, retryDelay: defaultRetryDelay}
}

// Run consumes until ctx is done. After a failed read it waits retryDelay
// before reading again.
func (c *CartCleaner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.processMessage(ctx); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *CartCleaner) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing kafka reader", "error", err)
	}
}

// processMessage handles one message. Only a failed read is returned; bad
// messages are logged and skipped.
func (c *CartCleaner) processMessage(ctx context.Context) error {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}
		c.log.ErrorContext(ctx, "error reading message", "error", err)
		return err
	}

	if !isOrderPaid(m) {
		return nil
	}

	var event domain.OrderPaidEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.ErrorContext(ctx, "error parsing message", "offset", m.Offset, "error", err)
		return nil
	}
	if event.UserID == "" {
		c.log.WarnContext(ctx, "order paid event without user_id", "order_id", event.OrderID)
		return nil
	}

	productIDs := make([]primitive.ObjectID, 0, len(event.Items))
	for _, item := range event.Items {
		id, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			c.log.WarnContext(ctx, "skipping item with malformed product id", "order_id", event.OrderID, "product_id", item.ProductID)
			continue
		}
		productIDs = append(productIDs, id)
	}

	removed, err := c.carts.RemovePurchased(ctx, event.UserID, productIDs)
	if err != nil {
		c.log.ErrorContext(ctx, "failed to clear purchased items", "order_id", event.OrderID, "user_id", event.UserID, "error", err)
		return nil
	}

	c.log.InfoContext(ctx, "purchased items removed from cart", "order_id", event.OrderID, "user_id", event.UserID, "removed", removed)
	return nil
}

// isOrderPaid treats a message without an event_type header as an order paid event.
func isOrderPaid(m kafka.Message) bool {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value) == domain.EventTypeOrderPaid
		}
	}
	return true
}
