package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrCaptureNotConfirmed = errors.New("payment capture not confirmed")
	ErrIllegalTransition   = errors.New("illegal transition of checkout status")
)

// LineValidationError reports one cart line whose requested quantity
// exceeds the live product stock.
type LineValidationError struct {
	LineID      string
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *LineValidationError) Error() string {
	return fmt.Sprintf("line %s: requested %d of %q but only %d available",
		e.LineID, e.Requested, e.ProductName, e.Available)
}

// ValidationError aggregates every failing line so the caller can surface
// per-line errors in one pass.
type ValidationError struct {
	Lines []*LineValidationError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		msgs[i] = l.Error()
	}
	return "checkout validation failed: " + strings.Join(msgs, "; ")
}

// PartialOrderError is raised when the order-materialization sequence
// failed partway and a compensating write also failed, leaving the store
// inconsistent. It records exactly what was left behind.
type PartialOrderError struct {
	CheckoutID        string
	Cause             error
	OrphanedOrderIDs  []string
	UnrestockedLines  []string
	CompensationError error
}

func (e *PartialOrderError) Error() string {
	return fmt.Sprintf("checkout %s left partial state (orders=%v, unrestocked=%v): %v (compensation: %v)",
		e.CheckoutID, e.OrphanedOrderIDs, e.UnrestockedLines, e.Cause, e.CompensationError)
}

func (e *PartialOrderError) Unwrap() error {
	return e.Cause
}
