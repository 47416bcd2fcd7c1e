package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/AlanMedina53232/RawConnect/internal/payment"
	"github.com/google/uuid"
)

// CartAccessor is the slice of the cart service the checkout flow needs.
type CartAccessor interface {
	LoadCart(ctx context.Context, userEmail string) ([]domain.CartLine, error)
	RemoveLine(ctx context.Context, userEmail, lineID string) error
}

// ProductStore reads live products and adjusts stock.
type ProductStore interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	DecrementStock(ctx context.Context, productID string, quantity int) error
	IncrementStock(ctx context.Context, productID string, quantity int) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) (string, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

type CardStore interface {
	UpsertPaymentMethod(ctx context.Context, method *domain.SavedPaymentMethod) error
}

// Notifier is told about each created order. Implementations must not
// fail the checkout; errors stay on their side of the boundary.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *domain.Order)
}

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, request *domain.CheckoutRequest) (*domain.CheckoutResponse, error)
}

type Service struct {
	repo     RepoInterface
	cart     CartAccessor
	products ProductStore
	orders   OrderStore
	cards    CardStore
	capture  payment.CaptureAdapter
	notifier Notifier
	currency string
}

func NewService(
	repo RepoInterface,
	cart CartAccessor,
	products ProductStore,
	orders OrderStore,
	cards CardStore,
	capture payment.CaptureAdapter,
	notifier Notifier,
) *Service {
	return &Service{
		repo:     repo,
		cart:     cart,
		products: products,
		orders:   orders,
		cards:    cards,
		capture:  capture,
		notifier: notifier,
		currency: "MXN",
	}
}

// InitiateCheckout drives the whole checkout saga: idempotency check, cart
// snapshot with live-stock validation, stock reservation, payment capture,
// per-vendor order materialization and cart clearing. Every destructive
// step before completion has a compensation, so a failed checkout leaves
// the store as it found it (or reports exactly what it could not undo).
func (s *Service) InitiateCheckout(ctx context.Context, request *domain.CheckoutRequest) (*domain.CheckoutResponse, error) {

	// check session by idempotency key from repository
	existing, err := s.repo.GetSessionByIdempotencyKey(ctx, request.IdempotencyKey)
	if err != nil && !errors.Is(err, ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		// This checkout already exists; return the cached result
		// (could be COMPLETED, FAILED, or still in progress).
		log.Printf("duplicate request detected idempotency_key = %v with checkout_id = %v and status = %v",
			request.IdempotencyKey, existing.ID, existing.Status)
		return &domain.CheckoutResponse{
			CheckoutID: existing.ID,
			Status:     existing.Status,
		}, nil
	}

	lines, err := s.cart.LoadCart(ctx, request.BuyerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	snapshot, snapshotJSON, err := s.buildSnapshot(ctx, lines)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:             uuid.New().String(),
		BuyerEmail:     request.BuyerEmail,
		IdempotencyKey: request.IdempotencyKey,
		Status:         domain.CheckoutStatusInitiated,
		CartSnapshot:   snapshotJSON,
		TotalAmount:    snapshot.TotalAmount,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	reserved, err := s.reserveStock(ctx, session, snapshot)
	if err != nil {
		s.restock(ctx, reserved)
		s.failSession(ctx, session.ID, err)
		return nil, err
	}

	if err := s.processPayment(ctx, session, snapshot.TotalAmount); err != nil {
		s.restock(ctx, reserved)
		s.failSession(ctx, session.ID, err)
		return nil, err
	}

	orderIDs, err := s.PlaceOrder(ctx, request.BuyerEmail, snapshot,
		&domain.CaptureResult{Success: true}, request.Card)
	if err != nil {
		var partial *PartialOrderError
		if errors.As(err, &partial) {
			partial.CheckoutID = session.ID
			// The store is inconsistent; do not restock blindly on top.
			s.failSession(ctx, session.ID, err)
			return nil, err
		}
		s.restock(ctx, reserved)
		s.failSession(ctx, session.ID, err)
		return nil, err
	}

	payload, err := completedEventPayload(session, snapshot, orderIDs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CompleteSession(ctx, session.ID, payload); err != nil {
		// Orders exist and the cart is cleared; only the session record
		// lags. The poller will fail it for reconciliation, but the
		// buyer's checkout succeeded.
		log.Printf("failed to complete session %s: %v", session.ID, err)
	}

	return &domain.CheckoutResponse{
		CheckoutID: session.ID,
		Status:     domain.CheckoutStatusCompleted,
		OrderIDs:   orderIDs,
	}, nil
}

func (s *Service) failSession(ctx context.Context, id string, cause error) {
	if err := s.repo.FailSession(ctx, id, cause.Error()); err != nil {
		log.Printf("failed to mark session %s failed: %v", id, err)
	}
}

// transition moves the session to next, enforcing the state machine.
func (s *Service) transition(ctx context.Context, session *Session, next domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(session.Status, next) {
		return ErrIllegalTransition
	}
	if err := s.repo.UpdateSessionStatus(ctx, session.ID, next); err != nil {
		return err
	}
	session.Status = next
	return nil
}
