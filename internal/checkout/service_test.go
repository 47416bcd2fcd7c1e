package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

const buyerEmail = "buyer@test.mx"

// twoVendorCart is a cart spanning two vendors: vendor A sells prod-1 and
// prod-2 (subtotal 25), vendor B sells prod-3 (subtotal 20).
func twoVendorCart() ([]domain.CartLine, []*domain.Product) {
	lines := []domain.CartLine{
		{ID: "line-1", UserEmail: buyerEmail, ProductID: "prod-1", Quantity: 2, VendorEmail: "vendor-a@farm.mx"},
		{ID: "line-2", UserEmail: buyerEmail, ProductID: "prod-2", Quantity: 1, VendorEmail: "vendor-a@farm.mx"},
		{ID: "line-3", UserEmail: buyerEmail, ProductID: "prod-3", Quantity: 2, VendorEmail: "vendor-b@farm.mx"},
	}
	products := []*domain.Product{
		{ID: "prod-1", Name: "Tomatoes", Price: 10.0, Quantity: 10, VendorEmail: "vendor-a@farm.mx"},
		{ID: "prod-2", Name: "Onions", Price: 5.0, Quantity: 10, VendorEmail: "vendor-a@farm.mx"},
		{ID: "prod-3", Name: "Cheese", Price: 10.0, Quantity: 10, VendorEmail: "vendor-b@farm.mx"},
	}
	return lines, products
}

func okCapture() *mockCapture {
	return &mockCapture{result: &domain.CaptureResult{Success: true, ProviderDetails: "PAY-1"}}
}

func testCard() *domain.CardDetails {
	return &domain.CardDetails{
		Number:     "4111 1111 1111 1234",
		Holder:     "MARIA LOPEZ",
		ExpiryDate: "12/27",
	}
}

func TestInitiateCheckout_TwoVendors(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	cart := &mockCart{lines: lines}
	store := newMockProducts(products...)
	orders := &mockOrders{}
	cards := &mockCards{}
	capture := okCapture()
	notifier := &mockNotifier{}
	svc := newTestCheckoutService(repo, cart, store, orders, cards, capture, notifier)

	resp, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
		Card:           testCard(),
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, domain.CheckoutStatusCompleted, resp.Status)
	require.Len(t, resp.OrderIDs, 2)

	// one order per vendor, vendor subtotals intact
	require.Len(t, orders.created, 2)
	assert.Equal(t, "vendor-a@farm.mx", orders.created[0].VendorEmail)
	assert.Equal(t, 25.0, orders.created[0].TotalAmount)
	assert.Len(t, orders.created[0].Items, 2)
	assert.Equal(t, "vendor-b@farm.mx", orders.created[1].VendorEmail)
	assert.Equal(t, 20.0, orders.created[1].TotalAmount)

	// capture was asked for the full cart total, once
	assert.Equal(t, 1, capture.calls)
	assert.Equal(t, []float64{45.0}, capture.amounts)

	// stock reserved
	assert.Equal(t, 8, store.stock("prod-1"))
	assert.Equal(t, 9, store.stock("prod-2"))
	assert.Equal(t, 8, store.stock("prod-3"))

	// every processed line cleared
	assert.ElementsMatch(t, []string{"line-1", "line-2", "line-3"}, cart.removed)

	// session completed with an outbox payload
	assert.Equal(t, domain.CheckoutStatusCompleted, repo.status(resp.CheckoutID))
	assert.NotEmpty(t, repo.completed[resp.CheckoutID])

	// vendor notified per order
	assert.Len(t, notifier.orders, 2)

	// card stored without CVV, orders carry only the summary
	require.NotNil(t, cards.saved)
	assert.Equal(t, "1234", cards.saved.LastFour)
	assert.Equal(t, "Credit Card", orders.created[0].PaymentMethod)
	assert.Equal(t, "1234", orders.created[0].PaymentDetails.CardLast4)
	assert.Equal(t, "MARIA LOPEZ", orders.created[0].PaymentDetails.CardHolder)
}

func TestInitiateCheckout_EmptyCart(t *testing.T) {
	repo := newMockSessionRepo()
	capture := okCapture()
	svc := newTestCheckoutService(repo, &mockCart{}, newMockProducts(), &mockOrders{}, &mockCards{}, capture, &mockNotifier{})

	resp, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, resp)
	// provider never contacted, no session created
	assert.Equal(t, 0, capture.calls)
	assert.Empty(t, repo.sessions)
}

func TestInitiateCheckout_DuplicateRequest(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	cart := &mockCart{lines: lines}
	store := newMockProducts(products...)
	orders := &mockOrders{}
	capture := okCapture()
	svc := newTestCheckoutService(repo, cart, store, orders, &mockCards{}, capture, &mockNotifier{})

	first, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "same-key",
	})
	require.NoError(t, err)

	second, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "same-key",
	})
	require.NoError(t, err)

	assert.Equal(t, first.CheckoutID, second.CheckoutID)
	// no second capture, no extra orders
	assert.Equal(t, 1, capture.calls)
	assert.Len(t, orders.created, 2)
}

func TestInitiateCheckout_CartLoadError(t *testing.T) {
	repo := newMockSessionRepo()
	svc := newTestCheckoutService(repo, &mockCart{loadErr: errors.New("cart down")},
		newMockProducts(), &mockOrders{}, &mockCards{}, okCapture(), &mockNotifier{})

	_, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load cart")
}

func TestInitiateCheckout_StaleLineFailsValidation(t *testing.T) {
	lines, products := twoVendorCart()
	products[0].Quantity = 1 // line-1 wants 2
	repo := newMockSessionRepo()
	store := newMockProducts(products...)
	capture := okCapture()
	svc := newTestCheckoutService(repo, &mockCart{lines: lines}, store, &mockOrders{}, &mockCards{}, capture, &mockNotifier{})

	_, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation.Lines, 1)
	assert.Equal(t, "line-1", validation.Lines[0].LineID)
	assert.Equal(t, 2, validation.Lines[0].Requested)
	assert.Equal(t, 1, validation.Lines[0].Available)

	// nothing moved
	assert.Equal(t, 0, capture.calls)
	assert.Empty(t, store.decremented)
}

func TestInitiateCheckout_CaptureDeclined(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	store := newMockProducts(products...)
	orders := &mockOrders{}
	cart := &mockCart{lines: lines}
	capture := &mockCapture{result: &domain.CaptureResult{Success: false, Reason: "payment cancelled by user"}}
	svc := newTestCheckoutService(repo, cart, store, orders, &mockCards{}, capture, &mockNotifier{})

	resp, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
		Card:           testCard(),
	})

	assert.ErrorIs(t, err, ErrCaptureNotConfirmed)
	assert.Nil(t, resp)

	// no orders, reserved stock restored, cart untouched
	assert.Empty(t, orders.created)
	assert.Equal(t, 10, store.stock("prod-1"))
	assert.Equal(t, 10, store.stock("prod-2"))
	assert.Equal(t, 10, store.stock("prod-3"))
	assert.Empty(t, cart.removed)

	// session failed with the capture reason
	require.Len(t, repo.sessions, 1)
	for id := range repo.sessions {
		assert.Equal(t, domain.CheckoutStatusFailed, repo.status(id))
		assert.Contains(t, repo.failedReasons[id], "payment cancelled by user")
	}
}

func TestInitiateCheckout_ReservationConflict(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	store := newMockProducts(products...)
	// second product loses the conditional decrement race
	store.decrementErr["prod-2"] = errors.New("insufficient stock")
	capture := okCapture()
	svc := newTestCheckoutService(repo, &mockCart{lines: lines}, store, &mockOrders{}, &mockCards{}, capture, &mockNotifier{})

	_, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	require.Error(t, err)
	assert.Equal(t, 0, capture.calls)

	// the decrement that did land was rolled back
	assert.Equal(t, []string{"prod-1"}, store.decremented)
	assert.Equal(t, []string{"prod-1"}, store.incremented)
	assert.Equal(t, 10, store.stock("prod-1"))
}

func TestInitiateCheckout_OrderCreationFailureRollsBack(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	store := newMockProducts(products...)
	orders := &mockOrders{failAfter: 1} // second vendor's order fails
	cart := &mockCart{lines: lines}
	svc := newTestCheckoutService(repo, cart, store, orders, &mockCards{}, okCapture(), &mockNotifier{})

	_, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	require.Error(t, err)

	// the first vendor's order was compensated and stock restored
	assert.Equal(t, []string{"order-1"}, orders.deleted)
	assert.Equal(t, 10, store.stock("prod-1"))
	assert.Equal(t, 10, store.stock("prod-3"))
	assert.Empty(t, cart.removed)
}

func TestInitiateCheckout_OrderRollbackFailureReportsPartialState(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	store := newMockProducts(products...)
	orders := &mockOrders{failAfter: 1, deleteErr: errors.New("delete refused")}
	svc := newTestCheckoutService(repo, &mockCart{lines: lines}, store, orders, &mockCards{}, okCapture(), &mockNotifier{})

	_, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	var partial *PartialOrderError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"order-1"}, partial.OrphanedOrderIDs)
	assert.NotEmpty(t, partial.CheckoutID)

	// the store is known-inconsistent: no blind restock on top
	assert.Empty(t, store.incremented)
	assert.Equal(t, domain.CheckoutStatusFailed, repo.status(partial.CheckoutID))
}

func TestInitiateCheckout_PayPalWithoutCard(t *testing.T) {
	lines, products := twoVendorCart()
	orders := &mockOrders{}
	cards := &mockCards{}
	svc := newTestCheckoutService(newMockSessionRepo(), &mockCart{lines: lines},
		newMockProducts(products...), orders, cards, okCapture(), &mockNotifier{})

	_, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	require.NoError(t, err)
	assert.Nil(t, cards.saved)
	assert.Equal(t, "PayPal", orders.created[0].PaymentMethod)
	assert.Empty(t, orders.created[0].PaymentDetails.CardLast4)
}

func TestInitiateCheckout_CompleteSessionFailureStillSucceeds(t *testing.T) {
	lines, products := twoVendorCart()
	repo := newMockSessionRepo()
	repo.completeErr = errors.New("db gone")
	svc := newTestCheckoutService(repo, &mockCart{lines: lines},
		newMockProducts(products...), &mockOrders{}, &mockCards{}, okCapture(), &mockNotifier{})

	resp, err := svc.InitiateCheckout(context.Background(), &domain.CheckoutRequest{
		BuyerEmail:     buyerEmail,
		IdempotencyKey: "key-1",
	})

	// orders exist and the cart is cleared; the lagging session record is
	// left for the recovery sweep
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, resp.Status)
	assert.Len(t, resp.OrderIDs, 2)
}

func TestTransition_IllegalStepRejected(t *testing.T) {
	repo := newMockSessionRepo()
	svc := newTestCheckoutService(repo, &mockCart{}, newMockProducts(), &mockOrders{}, &mockCards{}, okCapture(), &mockNotifier{})

	session := &Session{ID: "s-1", Status: domain.CheckoutStatusInitiated}
	require.NoError(t, repo.CreateSession(context.Background(), session))

	err := svc.transition(context.Background(), session, domain.CheckoutStatusCompleted)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	err = svc.transition(context.Background(), session, domain.CheckoutStatusStockReserved)
	assert.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusStockReserved, session.Status)
}
