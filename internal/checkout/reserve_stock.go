package checkout

import (
	"context"
	"fmt"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// reservedLine records one stock decrement so it can be undone.
type reservedLine struct {
	productID string
	quantity  int
}

// reserveStock decrements stock for every snapshot line. The decrement is
// conditional on enough stock remaining, so concurrent checkouts against
// the same product cannot oversell; the losing checkout fails here and is
// compensated. Returns the decrements applied so far, including on error,
// so the caller can restock them.
func (s *Service) reserveStock(ctx context.Context, session *Session, snapshot *domain.CartSnapshot) ([]reservedLine, error) {
	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusStockReserved) {
		return nil, ErrIllegalTransition
	}

	reserved := make([]reservedLine, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return reserved, fmt.Errorf("failed to reserve %d of product %s: %w",
				item.Quantity, item.ProductID, err)
		}
		reserved = append(reserved, reservedLine{productID: item.ProductID, quantity: item.Quantity})
	}

	if err := s.transition(ctx, session, domain.CheckoutStatusStockReserved); err != nil {
		return reserved, err
	}
	return reserved, nil
}
