package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// VendorGroup is one vendor's share of a checkout: their lines and the
// subtotal that becomes the order's total amount.
type VendorGroup struct {
	VendorEmail string
	Items       []domain.CartSnapshotItem
	Subtotal    float64
}

// GroupByVendor partitions snapshot items by vendor, preserving the order
// of first appearance. Every input item lands in exactly one group.
func GroupByVendor(items []domain.CartSnapshotItem) []VendorGroup {
	index := make(map[string]int, len(items))
	groups := make([]VendorGroup, 0, len(items))

	for _, item := range items {
		i, ok := index[item.VendorEmail]
		if !ok {
			i = len(groups)
			index[item.VendorEmail] = i
			groups = append(groups, VendorGroup{VendorEmail: item.VendorEmail})
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].Subtotal += item.UnitPrice * float64(item.Quantity)
	}
	return groups
}

// PlaceOrder materializes one pending order per vendor from the snapshot,
// stores the buyer's card when one was supplied, and clears the processed
// cart lines. Stock is not touched here; it was reserved before capture.
//
// On a mid-sequence failure every order created so far is deleted again.
// If that compensation itself fails, the returned PartialOrderError lists
// what was left behind.
func (s *Service) PlaceOrder(ctx context.Context, buyerEmail string, snapshot *domain.CartSnapshot, capture *domain.CaptureResult, card *domain.CardDetails) ([]string, error) {
	if snapshot == nil || len(snapshot.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if capture == nil || !capture.Success {
		reason := "no capture result"
		if capture != nil {
			reason = capture.Reason
		}
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotConfirmed, reason)
	}

	paymentMethod := "PayPal"
	summary := domain.PaymentSummary{}
	if card != nil {
		paymentMethod = "Credit Card"
		summary = domain.PaymentSummary{
			CardLast4:  domain.LastFour(card.Number),
			CardHolder: card.Holder,
		}
		if err := s.saveCard(ctx, buyerEmail, card); err != nil {
			// A failed card save never blocks the order; the card is a
			// convenience copy, not part of the purchase.
			log.Printf("failed to save card for %s: %v", buyerEmail, err)
		}
	}

	groups := GroupByVendor(snapshot.Items)
	createdIDs := make([]string, 0, len(groups))

	for _, group := range groups {
		items := make([]domain.OrderItem, len(group.Items))
		for i, item := range group.Items {
			items[i] = domain.OrderItem{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				Price:       item.UnitPrice,
				UnitMeasure: item.UnitMeasure,
			}
		}

		order := &domain.Order{
			BuyerEmail:     buyerEmail,
			VendorEmail:    group.VendorEmail,
			Items:          items,
			TotalAmount:    group.Subtotal,
			Status:         domain.OrderStatusPending,
			PaymentMethod:  paymentMethod,
			PaymentDetails: summary,
			CreatedAt:      time.Now(),
		}

		id, err := s.orders.CreateOrder(ctx, order)
		if err != nil {
			return nil, s.rollbackOrders(ctx, createdIDs, snapshot,
				fmt.Errorf("failed to create order for vendor %s: %w", group.VendorEmail, err))
		}
		createdIDs = append(createdIDs, id)
		order.ID = id

		if s.notifier != nil {
			s.notifier.OrderPlaced(ctx, order)
		}
	}

	// Clear the processed lines. An order must never coexist with the
	// cart line it came from, so a failed delete rolls the orders back.
	for _, item := range snapshot.Items {
		if err := s.cart.RemoveLine(ctx, buyerEmail, item.LineID); err != nil {
			return nil, s.rollbackOrders(ctx, createdIDs, snapshot,
				fmt.Errorf("failed to clear cart line %s: %w", item.LineID, err))
		}
	}

	return createdIDs, nil
}

func (s *Service) saveCard(ctx context.Context, buyerEmail string, card *domain.CardDetails) error {
	return s.cards.UpsertPaymentMethod(ctx, &domain.SavedPaymentMethod{
		OwnerEmail: buyerEmail,
		CardNumber: card.Number,
		CardHolder: card.Holder,
		ExpiryDate: card.ExpiryDate,
		LastFour:   domain.LastFour(card.Number),
	})
}
