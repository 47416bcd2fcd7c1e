package checkout

import (
	"context"
	"fmt"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// processPayment runs the capture adapter for the snapshot total. A result
// with Success=false aborts the checkout; the adapter is never re-invoked
// for the same session.
func (s *Service) processPayment(ctx context.Context, session *Session, amount float64) error {
	if err := s.transition(ctx, session, domain.CheckoutStatusPaymentPending); err != nil {
		return err
	}

	result, err := s.capture.Initiate(ctx, amount)
	if err != nil {
		return fmt.Errorf("payment capture error: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrCaptureNotConfirmed, result.Reason)
	}

	return s.transition(ctx, session, domain.CheckoutStatusPaymentCompleted)
}
