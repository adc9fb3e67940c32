package http

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testSecret = []byte("test-secret")

type storeCall struct {
	op           string
	kind         domain.ListKind
	userID       string
	id           primitive.ObjectID
	quantity     int
	removeSource bool
}

type mockStore struct {
	m        sync.Mutex
	calls    []storeCall
	cart     *domain.Cart
	lines    []domain.CartLine
	transfer *domain.TransferResult
	err      error
}

func (m *mockStore) record(c storeCall) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockStore) last() storeCall {
	m.m.Lock()
	defer m.m.Unlock()
	if len(m.calls) == 0 {
		return storeCall{}
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockStore) Add(_ context.Context, kind domain.ListKind, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	m.record(storeCall{op: "add", kind: kind, userID: userID, id: productID, quantity: quantity})
	return m.cart, m.err
}

func (m *mockStore) List(_ context.Context, kind domain.ListKind, userID string) ([]domain.CartLine, error) {
	m.record(storeCall{op: "list", kind: kind, userID: userID})
	if m.err != nil {
		return nil, m.err
	}
	return m.lines, nil
}

func (m *mockStore) UpdateQuantity(_ context.Context, kind domain.ListKind, userID string, itemID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	m.record(storeCall{op: "update", kind: kind, userID: userID, id: itemID, quantity: quantity})
	return m.cart, m.err
}

func (m *mockStore) Remove(_ context.Context, kind domain.ListKind, userID string, itemID primitive.ObjectID) error {
	m.record(storeCall{op: "remove", kind: kind, userID: userID, id: itemID})
	return m.err
}

func (m *mockStore) Transfer(_ context.Context, from domain.ListKind, userID string, productID primitive.ObjectID, removeSource bool) (*domain.TransferResult, error) {
	m.record(storeCall{op: "transfer", kind: from, userID: userID, id: productID, removeSource: removeSource})
	return m.transfer, m.err
}

type mockOrders struct {
	gatewayOrder *domain.GatewayOrder
	order        *domain.Order
	orders       []*domain.Order
	saved        *service.SaveOrderRequest
	amount       decimal.Decimal
	err          error
}

func (m *mockOrders) CreateGatewayOrder(_ context.Context, amount decimal.Decimal) (*domain.GatewayOrder, error) {
	m.amount = amount
	return m.gatewayOrder, m.err
}

func (m *mockOrders) SaveOrder(_ context.Context, req service.SaveOrderRequest) (*domain.Order, error) {
	m.saved = &req
	return m.order, m.err
}

func (m *mockOrders) ListOrders(_ context.Context, _ string) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *mockOrders) GetOrder(_ context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.order == nil || m.order.ID != id || m.order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return m.order, nil
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func bearer(t *testing.T, userID string) string {
	return "Bearer " + signToken(t, jwt.MapClaims{"id": userID, "name": "Test", "role": "user"})
}

var discardLog = logger.Discard()
