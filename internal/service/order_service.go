package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGateway creates provider-side orders. Payment capture itself happens
// between the client and the provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*domain.GatewayOrder, error)
}

type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, event domain.OrderPaidEvent) error
}

var (
	minorUnitsPerMajor = decimal.NewFromInt(100)
	maxMinorAmount     = decimal.NewFromInt(math.MaxInt64)
)

type SaveOrderRequest struct {
	UserID           string
	Items            []domain.OrderItem
	TotalAmount      decimal.Decimal
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
}

type OrderService struct {
	repo     orders.OrderRepository
	gateway  PaymentGateway
	verifier SignatureVerifier
	events   EventPublisher
	currency string
	log      *slog.Logger
	now      func() time.Time
}

// NewOrderService wires the order recorder. A nil verifier records orders
// without checking the gateway signature.
func NewOrderService(
	repo orders.OrderRepository,
	gateway PaymentGateway,
	verifier SignatureVerifier,
	events EventPublisher,
	currency string,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		repo:     repo,
		gateway:  gateway,
		verifier: verifier,
		events:   events,
		currency: currency,
		log:      log,
		now:      time.Now,
	}
}

// CreateGatewayOrder asks the gateway for an order of amount major units in
// the configured currency. Nothing is stored locally.
func (s *OrderService) CreateGatewayOrder(ctx context.Context, amount decimal.Decimal) (*domain.GatewayOrder, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	minorDec := amount.Mul(minorUnitsPerMajor).Round(0)
	if !minorDec.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if minorDec.GreaterThan(maxMinorAmount) {
		return nil, domain.ErrAmountTooLarge
	}
	minor := minorDec.IntPart()

	receipt := fmt.Sprintf("receipt_order_%d", s.now().UnixNano())
	order, err := s.gateway.CreateOrder(ctx, minor, s.currency, receipt)
	if err != nil {
		s.log.ErrorContext(ctx, "gateway create order error", "amount_minor", minor, "error", err)
		return nil, err
	}

	s.log.InfoContext(ctx, "gateway order created", "gateway_order_id", order.ID, "amount_minor", minor)
	return order, nil
}

// SaveOrder records a paid order reported by the client after checkout.
func (s *OrderService) SaveOrder(ctx context.Context, req SaveOrderRequest) (*domain.Order, error) {
	if err := validateSaveOrder(req); err != nil {
		return nil, err
	}

	if s.verifier != nil {
		if !s.verifier.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
			s.log.WarnContext(ctx, "payment signature mismatch",
				"user_id", req.UserID, "gateway_order_id", req.GatewayOrderID)
			return nil, domain.ErrSignatureMismatch
		}
	} else {
		s.log.WarnContext(ctx, "recording order without signature verification",
			"user_id", req.UserID, "gateway_order_id", req.GatewayOrderID)
	}

	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		Items:            req.Items,
		TotalAmount:      req.TotalAmount,
		Currency:         s.currency,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
		Status:           domain.OrderStatusPaid,
		CreatedAt:        s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.log.ErrorContext(ctx, "repo create order error", "user_id", req.UserID, "error", err)
		return nil, err
	}

	// The order is committed; a lost event must not fail the request
	event := domain.OrderPaidEvent{
		OrderID:        order.ID.String(),
		UserID:         order.UserID,
		Items:          order.Items,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		GatewayOrderID: order.GatewayOrderID,
		PaidAt:         order.CreatedAt,
	}
	if err := s.events.PublishOrderPaid(ctx, event); err != nil {
		s.log.ErrorContext(ctx, "publish order paid error", "order_id", order.ID, "error", err)
	}

	return order, nil
}

func validateSaveOrder(req SaveOrderRequest) error {
	if strings.TrimSpace(req.UserID) == "" ||
		req.GatewayOrderID == "" ||
		req.GatewayPaymentID == "" ||
		req.GatewaySignature == "" ||
		!req.TotalAmount.IsPositive() {
		return domain.ErrMissingOrderField
	}
	if len(req.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return fmt.Errorf("%w: each item needs a product, a quantity of at least 1 and a non-negative price",
				domain.ErrInvalidArgument)
		}
	}
	return nil
}

// ListOrders returns the owner's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

// GetOrder returns one order, hiding orders that belong to someone else.
func (s *OrderService) GetOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}
