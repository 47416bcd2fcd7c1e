package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// ComputeTotal sums price*quantity over all lines. Pure function; money
// stays in native floating point throughout the system.
func ComputeTotal(lines []domain.CartLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// buildSnapshot re-reads each product and captures prices and live stock
// at checkout time. A line whose quantity exceeds the live stock fails
// validation: the add-time snapshot is stale and the live stock wins.
func (s *Service) buildSnapshot(ctx context.Context, lines []domain.CartLine) (*domain.CartSnapshot, []byte, error) {
	snapshot := &domain.CartSnapshot{
		Items:      make([]domain.CartSnapshotItem, 0, len(lines)),
		Currency:   s.currency,
		CapturedAt: time.Now(),
	}

	var totalAmount float64
	var invalid []*LineValidationError

	for _, line := range lines {
		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get product %s: %w", line.ProductID, err)
		}

		if line.Quantity > product.Quantity {
			invalid = append(invalid, &LineValidationError{
				LineID:      line.ID,
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.Quantity,
			})
			continue
		}

		subtotal := product.Price * float64(line.Quantity)
		snapshot.Items = append(snapshot.Items, domain.CartSnapshotItem{
			LineID:       line.ID,
			ProductID:    line.ProductID,
			ProductName:  product.Name,
			Quantity:     line.Quantity,
			UnitPrice:    product.Price,
			UnitMeasure:  line.UnitMeasure,
			VendorEmail:  line.VendorEmail,
			Subtotal:     subtotal,
			CurrentStock: product.Quantity,
		})
		totalAmount += subtotal
	}

	if len(invalid) > 0 {
		return nil, nil, &ValidationError{Lines: invalid}
	}

	snapshot.TotalAmount = totalAmount

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	return snapshot, snapshotJSON, nil
}

func completedEventPayload(session *Session, snapshot *domain.CartSnapshot, orderIDs []string) ([]byte, error) {
	payload := map[string]interface{}{
		"checkout_id":  session.ID,
		"buyer_email":  session.BuyerEmail,
		"order_ids":    orderIDs,
		"items":        snapshot.Items,
		"total_amount": snapshot.TotalAmount,
		"currency":     snapshot.Currency,
		"completed_at": time.Now(),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout payload: %w", err)
	}
	return payloadJSON, nil
}
