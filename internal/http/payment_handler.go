package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRecorder is the order service as the payment handlers use it.
type OrderRecorder interface {
	CreateGatewayOrder(ctx context.Context, amount decimal.Decimal) (*domain.GatewayOrder, error)
	SaveOrder(ctx context.Context, req service.SaveOrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error)
}

type PaymentHandler struct {
	orders  OrderRecorder
	timeout time.Duration
	log     *slog.Logger
}

func NewPaymentHandler(orders OrderRecorder, timeout time.Duration, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		orders:  orders,
		timeout: timeout,
		log:     log,
	}
}

type CreateOrderRequestDTO struct {
	Amount decimal.Decimal `json:"amount"`
}

type OrderItemDTO struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type SaveOrderRequestDTO struct {
	UserID            string          `json:"userId"`
	Items             []OrderItemDTO  `json:"items"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	RazorpayOrderID   string          `json:"razorpayOrderId"`
	RazorpayPaymentID string          `json:"razorpayPaymentId"`
	RazorpaySignature string          `json:"razorpaySignature"`
}

type SaveOrderResponseDTO struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

type OrdersResponseDTO struct {
	Orders []*domain.Order `json:"orders"`
}

// CreateOrder handles POST /payment/create-order. The gateway's order is
// returned as is.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, ok := requireSession(w, r); !ok {
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.CreateGatewayOrder(ctx, req.Amount)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// SaveOrder handles POST /payment/save-order.
func (h *PaymentHandler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req SaveOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID != "" && req.UserID != session.UserID {
		respondError(w, http.StatusForbidden, "permission_denied", "cannot record an order for another user")
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.orders.SaveOrder(ctx, service.SaveOrderRequest{
		UserID:           session.UserID,
		Items:            items,
		TotalAmount:      req.TotalAmount,
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		GatewaySignature: req.RazorpaySignature,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, SaveOrderResponseDTO{
		Message: "Order saved successfully",
		Order:   order,
	})
}

// ListOrders handles GET /payment/orders/{userId}.
func (h *PaymentHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireOwner(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(ctx, session.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, OrdersResponseDTO{Orders: orders})
}

// GetOrder handles GET /payment/order/{orderId}.
func (h *PaymentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		handleServiceError(w, r, h.log, domain.ErrInvalidID)
		return
	}

	order, err := h.orders.GetOrder(ctx, session.UserID, orderID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
