package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// RelayState is the lifecycle of one approval flow. Terminal states are
// one-shot: the first terminal transition wins and later navigation events
// are ignored.
type RelayState string

const (
	StateIdle                RelayState = "IDLE"
	StateAwaitingApprovalURL RelayState = "AWAITING_APPROVAL_URL"
	StateRedirected          RelayState = "REDIRECTED"
	StateSucceeded           RelayState = "SUCCEEDED"
	StateCancelled           RelayState = "CANCELLED"
	StateTimedOut            RelayState = "TIMED_OUT"
	StateFailed              RelayState = "FAILED"
)

func (s RelayState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateCancelled, StateTimedOut, StateFailed:
		return true
	}
	return false
}

var (
	successMarkers = []string{"/checkout/complete", "success", "capture"}
	cancelMarkers  = []string{"/checkout/error", "cancel"}
)

// PaymentCreator is the relay endpoint: it creates a provider-side order
// for the amount and returns the payer-facing approval URL.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, amount float64) (paymentID, approvalURL string, err error)
}

// NavigationSource is the embedded browser surface. Navigate opens the
// approval URL and streams every subsequent navigation's URL.
type NavigationSource interface {
	Navigate(ctx context.Context, approvalURL string) (<-chan string, error)
}

// PaymentExecutor captures an approved payment. When the creator also
// implements it, a success navigation triggers the capture call before the
// adapter reports success; approval alone does not move money.
type PaymentExecutor interface {
	ExecutePayment(ctx context.Context, paymentID, payerID string) (bool, json.RawMessage, error)
}

// RelayCapture is the server-relay capture variant: the relay creates the
// provider order, the buyer approves in an embedded browser, and the
// adapter classifies navigation URLs until a terminal state or the
// wall-clock timeout. Each Initiate call runs an independent flow, so a
// single adapter serves concurrent checkouts.
type RelayCapture struct {
	creator PaymentCreator
	nav     NavigationSource
	timeout time.Duration

	mu   sync.Mutex
	last *relayFlow
}

// relayFlow is the mutable state of one approval flow.
type relayFlow struct {
	mu    sync.Mutex
	state RelayState
}

func (f *relayFlow) current() RelayState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// setTerminal moves to a terminal state exactly once. Returns false when a
// terminal state was already reached, so late navigation events and a
// racing timer cannot double-handle the outcome.
func (f *relayFlow) setTerminal(s RelayState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.IsTerminal() {
		return false
	}
	f.state = s
	return true
}

func (f *relayFlow) set(s RelayState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.IsTerminal() {
		f.state = s
	}
}

func NewRelayCapture(creator PaymentCreator, nav NavigationSource) *RelayCapture {
	return &RelayCapture{
		creator: creator,
		nav:     nav,
		timeout: 45 * time.Second,
	}
}

// State reports the state of the most recently started flow.
func (r *RelayCapture) State() RelayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return StateIdle
	}
	return r.last.current()
}

func (r *RelayCapture) Initiate(ctx context.Context, amount float64) (*domain.CaptureResult, error) {
	flow := &relayFlow{state: StateAwaitingApprovalURL}
	r.mu.Lock()
	r.last = flow
	r.mu.Unlock()

	// The timeout covers the whole approval flow, starting before the
	// relay call so a hung relay cannot stall checkout indefinitely.
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	paymentID, approvalURL, err := r.creator.CreatePayment(ctx, amount)
	if err != nil {
		flow.setTerminal(StateFailed)
		return &domain.CaptureResult{
			Success: false,
			Reason:  fmt.Sprintf("create payment: %v", err),
		}, nil
	}

	events, err := r.nav.Navigate(ctx, approvalURL)
	if err != nil {
		flow.setTerminal(StateFailed)
		return &domain.CaptureResult{
			Success: false,
			Reason:  fmt.Sprintf("open approval url: %v", err),
		}, nil
	}
	flow.set(StateRedirected)

	for {
		select {
		case url, ok := <-events:
			if !ok {
				if flow.setTerminal(StateFailed) {
					return &domain.CaptureResult{Success: false, Reason: "approval surface closed"}, nil
				}
				return resultForState(flow, paymentID), nil
			}
			switch classifyNavigation(url) {
			case StateSucceeded:
				return r.finalize(ctx, flow, paymentID, url), nil
			case StateCancelled:
				if flow.setTerminal(StateCancelled) {
					return &domain.CaptureResult{Success: false, Reason: ErrCaptureCancelled.Error()}, nil
				}
				return resultForState(flow, paymentID), nil
			default:
				// intermediate navigation, keep watching
			}
		case <-timer.C:
			if flow.setTerminal(StateTimedOut) {
				return &domain.CaptureResult{Success: false, Reason: ErrCaptureTimeout.Error()}, nil
			}
			return resultForState(flow, paymentID), nil
		case <-ctx.Done():
			flow.setTerminal(StateFailed)
			return nil, ctx.Err()
		}
	}
}

// finalize runs after a success navigation. Approval only authorizes the
// payment; the capture itself happens here when the creator can execute.
func (r *RelayCapture) finalize(ctx context.Context, flow *relayFlow, paymentID, navURL string) *domain.CaptureResult {
	executor, ok := r.creator.(PaymentExecutor)
	if !ok {
		if flow.setTerminal(StateSucceeded) {
			return &domain.CaptureResult{Success: true, ProviderDetails: paymentID}
		}
		return resultForState(flow, paymentID)
	}

	success, raw, err := executor.ExecutePayment(ctx, paymentID, payerIDFromURL(navURL))
	if err != nil {
		if flow.setTerminal(StateFailed) {
			return &domain.CaptureResult{Success: false, Reason: fmt.Sprintf("execute payment: %v", err)}
		}
		return resultForState(flow, paymentID)
	}
	if !success {
		if flow.setTerminal(StateFailed) {
			return &domain.CaptureResult{Success: false, Reason: "provider declined capture"}
		}
		return resultForState(flow, paymentID)
	}

	if flow.setTerminal(StateSucceeded) {
		details := paymentID
		if len(raw) > 0 {
			details = string(raw)
		}
		return &domain.CaptureResult{Success: true, ProviderDetails: details}
	}
	return resultForState(flow, paymentID)
}

func payerIDFromURL(navURL string) string {
	parsed, err := url.Parse(navURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("PayerID")
}

func resultForState(flow *relayFlow, paymentID string) *domain.CaptureResult {
	switch flow.current() {
	case StateSucceeded:
		return &domain.CaptureResult{Success: true, ProviderDetails: paymentID}
	case StateCancelled:
		return &domain.CaptureResult{Success: false, Reason: ErrCaptureCancelled.Error()}
	case StateTimedOut:
		return &domain.CaptureResult{Success: false, Reason: ErrCaptureTimeout.Error()}
	default:
		return &domain.CaptureResult{Success: false, Reason: "capture failed"}
	}
}

// classifyNavigation maps a navigation URL to a terminal state, or returns
// StateRedirected for intermediate hops. Success markers are checked
// before cancellation markers, matching the redirect URLs the provider
// uses for each outcome.
func classifyNavigation(url string) RelayState {
	lower := strings.ToLower(url)
	for _, marker := range successMarkers {
		if strings.Contains(lower, marker) {
			return StateSucceeded
		}
	}
	for _, marker := range cancelMarkers {
		if strings.Contains(lower, marker) {
			return StateCancelled
		}
	}
	return StateRedirected
}
