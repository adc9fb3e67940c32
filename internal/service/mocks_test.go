package service

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mockRepository is an in-memory CartRepository with the same merge and
// lookup rules as the Mongo implementation.
type mockRepository struct {
	m     sync.RWMutex
	kind  domain.ListKind
	lists map[string]*domain.Cart
	err   error
	calls int
}

func newMockRepository(kind domain.ListKind) *mockRepository {
	return &mockRepository{kind: kind, lists: map[string]*domain.Cart{}}
}

func (m *mockRepository) Kind() domain.ListKind { return m.kind }

func (m *mockRepository) copyOf(userID string) *domain.Cart {
	c := *m.lists[userID]
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return &c
}

func (m *mockRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.lists[userID]; !ok {
		return nil, domain.NotFoundFor(m.kind)
	}
	return m.copyOf(userID), nil
}

func (m *mockRepository) AddItem(_ context.Context, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.lists[userID]
	if !ok {
		list = &domain.Cart{ID: primitive.NewObjectID(), UserID: userID}
		m.lists[userID] = list
	}
	if item := list.FindProduct(productID); item != nil {
		item.Quantity += quantity
	} else {
		list.Items = append(list.Items, domain.CartItem{ID: primitive.NewObjectID(), ProductID: productID, Quantity: quantity})
	}
	list.Version++
	return m.copyOf(userID), nil
}

func (m *mockRepository) AddIfAbsent(_ context.Context, userID string, productID primitive.ObjectID, quantity int) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	list, ok := m.lists[userID]
	if !ok {
		list = &domain.Cart{ID: primitive.NewObjectID(), UserID: userID}
		m.lists[userID] = list
	}
	if list.FindProduct(productID) != nil {
		return false, nil
	}
	list.Items = append(list.Items, domain.CartItem{ID: primitive.NewObjectID(), ProductID: productID, Quantity: quantity})
	list.Version++
	return true, nil
}

func (m *mockRepository) UpdateItemQuantity(_ context.Context, userID string, itemID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.lists[userID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].Quantity = quantity
			list.Version++
			return m.copyOf(userID), nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (m *mockRepository) RemoveItem(_ context.Context, userID string, itemID primitive.ObjectID) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.lists[userID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	for i, item := range list.Items {
		if item.ID == itemID {
			list.Items = append(list.Items[:i], list.Items[i+1:]...)
			list.Version++
			return m.copyOf(userID), nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (m *mockRepository) RemoveProduct(_ context.Context, userID string, productID primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	list, ok := m.lists[userID]
	if !ok {
		return domain.ErrProductNotInList
	}
	for i, item := range list.Items {
		if item.ProductID == productID {
			list.Items = append(list.Items[:i], list.Items[i+1:]...)
			list.Version++
			return nil
		}
	}
	return domain.ErrProductNotInList
}

func (m *mockRepository) items(userID string) []domain.CartItem {
	m.m.RLock()
	defer m.m.RUnlock()
	if list, ok := m.lists[userID]; ok {
		return append([]domain.CartItem(nil), list.Items...)
	}
	return nil
}

// mockCache keeps the newer version on Set, like RedisCache.
type mockCache struct {
	m       sync.RWMutex
	entries map[string]*domain.Cart
	deletes int
	err     error
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]*domain.Cart{}}
}

func (m *mockCache) Get(_ context.Context, kind domain.ListKind, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.entries[string(kind)+":"+userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, kind domain.ListKind, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	key := string(kind) + ":" + userID
	if cached, ok := m.entries[key]; ok && cached.NewerThan(cart) {
		return nil
	}
	c := *cart
	c.Items = append([]domain.CartItem(nil), cart.Items...)
	m.entries[key] = &c
	return nil
}

func (m *mockCache) Delete(_ context.Context, kind domain.ListKind, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.entries, string(kind)+":"+userID)
	m.deletes++
	return m.err
}

func (m *mockCache) has(kind domain.ListKind, userID string) bool {
	return m.entry(kind, userID) != nil
}

func (m *mockCache) entry(kind domain.ListKind, userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.entries[string(kind)+":"+userID]
}

type mockCatalog struct {
	products map[primitive.ObjectID]*domain.Product
	err      error
}

func (m *mockCatalog) GetProducts(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[primitive.ObjectID]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// mockTransactor runs fn directly and records that it was used.
type mockTransactor struct {
	used int
}

func (m *mockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.used++
	return fn(ctx)
}

type mockOrderRepository struct {
	m      sync.Mutex
	orders []*domain.Order
	err    error
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, o := range m.orders {
		if o.GatewayOrderID == order.GatewayOrderID {
			return domain.ErrDuplicateOrder
		}
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *mockOrderRepository) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.orders)
}

type mockGateway struct {
	amountMinor int64
	currency    string
	receipt     string
	calls       int
	err         error
}

func (m *mockGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*domain.GatewayOrder, error) {
	m.calls++
	m.amountMinor, m.currency, m.receipt = amountMinor, currency, receipt
	if m.err != nil {
		return nil, m.err
	}
	return &domain.GatewayOrder{ID: "order_test", Entity: "order", Amount: amountMinor, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

type staticVerifier bool

func (v staticVerifier) Verify(string, string, string) bool { return bool(v) }

type mockPublisher struct {
	m      sync.Mutex
	events []domain.OrderPaidEvent
	err    error
}

func (m *mockPublisher) PublishOrderPaid(_ context.Context, event domain.OrderPaidEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
