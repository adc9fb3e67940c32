package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

// OrderStatusPaid is the only state an order can be in: it is created paid and never changes.
const OrderStatusPaid OrderStatus = "paid"

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           string          `json:"user_id"`
	Items            []OrderItem     `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
	GatewaySignature string          `json:"gateway_signature"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// GatewayOrder is the provider-side order handle. When Raw holds the body the
// provider sent, the handle encodes to exactly that body, fields unknown to
// this struct included.
type GatewayOrder struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	AmountDue  int64           `json:"amount_due"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	OfferID    *string         `json:"offer_id"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	Notes      json.RawMessage `json:"notes,omitempty"`
	CreatedAt  int64           `json:"created_at"`

	Raw json.RawMessage `json:"-"`
}

func (o GatewayOrder) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	type plain GatewayOrder
	return json.Marshal(plain(o))
}

// EventTypeOrderPaid is the event_type header of an OrderPaidEvent message.
const EventTypeOrderPaid = "order.paid"

// OrderPaidEvent is published after an order has been recorded.
type OrderPaidEvent struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	Items          []OrderItem     `json:"items"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	GatewayOrderID string          `json:"gateway_order_id"`
	PaidAt         time.Time       `json:"paid_at"`
}
