package checkout

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/AlanMedina53232/RawConnect/internal/repository"
)

// mockSessionRepo implements RepoInterface for testing
type mockSessionRepo struct {
	m             sync.RWMutex
	sessions      map[string]*Session // by id
	byKey         map[string]*Session // by idempotency key
	completed     map[string][]byte   // session id -> event payload
	failedReasons map[string]string   // session id -> failure reason
	createErr     error
	completeErr   error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions:      make(map[string]*Session),
		byKey:         make(map[string]*Session),
		completed:     make(map[string][]byte),
		failedReasons: make(map[string]string),
	}
}

func (m *mockSessionRepo) CreateSession(_ context.Context, session *Session) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copied := *session
	m.sessions[session.ID] = &copied
	m.byKey[session.IdempotencyKey] = &copied
	return nil
}

func (m *mockSessionRepo) GetSessionByIdempotencyKey(_ context.Context, key string) (*Session, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	session, ok := m.byKey[key]
	if !ok {
		return nil, ErrIdempotencyKeyNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionRepo) UpdateSessionStatus(_ context.Context, id string, status domain.CheckoutStatus) error {
	m.m.Lock()
	defer m.m.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	session.Status = status
	return nil
}

func (m *mockSessionRepo) FailSession(_ context.Context, id string, reason string) error {
	m.m.Lock()
	defer m.m.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	session.Status = domain.CheckoutStatusFailed
	m.failedReasons[id] = reason
	return nil
}

func (m *mockSessionRepo) CompleteSession(_ context.Context, id string, eventPayload []byte) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	session.Status = domain.CheckoutStatusCompleted
	m.completed[id] = eventPayload
	return nil
}

func (m *mockSessionRepo) GetUnprocessedEvents(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (m *mockSessionRepo) MarkEventAsProcessed(context.Context, int64) error { return nil }

func (m *mockSessionRepo) GetAbandonedSessions(context.Context, time.Duration) ([]*Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) RunMigrations(*Credentials) error { return nil }
func (m *mockSessionRepo) Close() error                     { return nil }

func (m *mockSessionRepo) status(id string) domain.CheckoutStatus {
	m.m.RLock()
	defer m.m.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.Status
	}
	return ""
}

// mockCart implements CartAccessor for testing
type mockCart struct {
	m         sync.RWMutex
	lines     []domain.CartLine
	removed   []string
	loadErr   error
	removeErr error
}

func (m *mockCart) LoadCart(_ context.Context, _ string) ([]domain.CartLine, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.lines, nil
}

func (m *mockCart) RemoveLine(_ context.Context, _ string, lineID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, lineID)
	return nil
}

// mockProducts implements ProductStore for testing
type mockProducts struct {
	m            sync.RWMutex
	products     map[string]*domain.Product
	decremented  []string
	incremented  []string
	decrementErr map[string]error // per product id
}

func newMockProducts(products ...*domain.Product) *mockProducts {
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProducts{products: byID, decrementErr: make(map[string]error)}
}

func (m *mockProducts) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProducts) DecrementStock(_ context.Context, productID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if err := m.decrementErr[productID]; err != nil {
		return err
	}
	p, ok := m.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.Quantity < quantity {
		return repository.ErrInsufficientStock
	}
	p.Quantity -= quantity
	m.decremented = append(m.decremented, productID)
	return nil
}

func (m *mockProducts) IncrementStock(_ context.Context, productID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Quantity += quantity
	m.incremented = append(m.incremented, productID)
	return nil
}

func (m *mockProducts) stock(productID string) int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.products[productID].Quantity
}

// mockOrders implements OrderStore for testing
type mockOrders struct {
	m         sync.RWMutex
	created   []*domain.Order
	deleted   []string
	nextID    int
	failAfter int // fail CreateOrder once this many orders exist; 0 = never
	deleteErr error
}

func (m *mockOrders) CreateOrder(_ context.Context, order *domain.Order) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.failAfter > 0 && len(m.created) >= m.failAfter {
		return "", errors.New("order store unavailable")
	}
	m.nextID++
	id := "order-" + strconv.Itoa(m.nextID)
	copied := *order
	copied.ID = id
	m.created = append(m.created, &copied)
	return id, nil
}

func (m *mockOrders) DeleteOrder(_ context.Context, orderID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, orderID)
	return nil
}

// mockCards implements CardStore for testing
type mockCards struct {
	m     sync.RWMutex
	saved *domain.SavedPaymentMethod
	err   error
}

func (m *mockCards) UpsertPaymentMethod(_ context.Context, method *domain.SavedPaymentMethod) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = method
	return nil
}

// mockCapture implements payment.CaptureAdapter for testing
type mockCapture struct {
	m       sync.Mutex
	result  *domain.CaptureResult
	err     error
	calls   int
	amounts []float64
}

func (m *mockCapture) Initiate(_ context.Context, amount float64) (*domain.CaptureResult, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	m.amounts = append(m.amounts, amount)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockNotifier implements Notifier for testing
type mockNotifier struct {
	m      sync.Mutex
	orders []*domain.Order
}

func (m *mockNotifier) OrderPlaced(_ context.Context, order *domain.Order) {
	m.m.Lock()
	defer m.m.Unlock()
	m.orders = append(m.orders, order)
}

// newTestCheckoutService creates a fully wired Service for testing
func newTestCheckoutService(
	repo *mockSessionRepo,
	cart *mockCart,
	products *mockProducts,
	orders *mockOrders,
	cards *mockCards,
	capture *mockCapture,
	notifier *mockNotifier,
) *Service {
	return NewService(repo, cart, products, orders, cards, capture, notifier)
}
