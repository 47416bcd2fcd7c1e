package payment

import (
	"context"
	"errors"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// CaptureAdapter obtains payer authorization and final capture for a
// checkout amount. A result with Success=false means the checkout must
// abort; callers never retry a capture on their own.
type CaptureAdapter interface {
	Initiate(ctx context.Context, amount float64) (*domain.CaptureResult, error)
}

var (
	ErrCaptureTimeout   = errors.New("payment capture timed out")
	ErrCaptureCancelled = errors.New("payment cancelled by buyer")
)
