package checkout

import (
	"context"
	"log"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// restock undoes stock reservations. Failures are logged and collected
// rather than aborting, so one bad product does not strand the rest.
func (s *Service) restock(ctx context.Context, reserved []reservedLine) []string {
	var failed []string
	for _, r := range reserved {
		if err := s.products.IncrementStock(ctx, r.productID, r.quantity); err != nil {
			log.Printf("failed to restock %d of product %s: %v", r.quantity, r.productID, err)
			failed = append(failed, r.productID)
		}
	}
	return failed
}

// rollbackOrders deletes the orders created before the failure. When every
// delete succeeds the original cause is returned unchanged; otherwise the
// result is a PartialOrderError naming the orders that survived.
func (s *Service) rollbackOrders(ctx context.Context, createdIDs []string, snapshot *domain.CartSnapshot, cause error) error {
	var orphaned []string
	var compErr error
	for _, id := range createdIDs {
		if err := s.orders.DeleteOrder(ctx, id); err != nil {
			log.Printf("failed to roll back order %s: %v", id, err)
			orphaned = append(orphaned, id)
			compErr = err
		}
	}

	if len(orphaned) == 0 {
		return cause
	}

	lineIDs := make([]string, len(snapshot.Items))
	for i, item := range snapshot.Items {
		lineIDs[i] = item.LineID
	}
	return &PartialOrderError{
		Cause:             cause,
		OrphanedOrderIDs:  orphaned,
		UnrestockedLines:  lineIDs,
		CompensationError: compErr,
	}
}
