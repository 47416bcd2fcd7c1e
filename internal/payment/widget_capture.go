package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// WidgetMessage is the one-shot payload the embedded button widget posts
// back after the client-side capture call returns.
type WidgetMessage struct {
	Status  string          `json:"status"`
	Details json.RawMessage `json:"details,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// MessageSource mounts the embedded widget for the given amount and
// returns the channel its completion message arrives on.
type MessageSource interface {
	Mount(ctx context.Context, amount float64) (<-chan []byte, error)
}

// WidgetCapture is the embedded-widget capture variant: the widget talks
// to the provider's client-side SDK directly and reports the capture
// outcome through a single message. The reported status is trusted as-is;
// there is no server-side verification of the capture in this variant.
type WidgetCapture struct {
	source MessageSource
}

func NewWidgetCapture(source MessageSource) *WidgetCapture {
	return &WidgetCapture{source: source}
}

func (w *WidgetCapture) Initiate(ctx context.Context, amount float64) (*domain.CaptureResult, error) {
	messages, err := w.source.Mount(ctx, amount)
	if err != nil {
		return &domain.CaptureResult{
			Success: false,
			Reason:  fmt.Sprintf("mount widget: %v", err),
		}, nil
	}

	select {
	case raw, ok := <-messages:
		if !ok {
			return &domain.CaptureResult{Success: false, Reason: "widget closed before completion"}, nil
		}

		var msg WidgetMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return &domain.CaptureResult{
				Success: false,
				Reason:  fmt.Sprintf("malformed widget payload: %v", err),
			}, nil
		}

		if msg.Status == "success" || msg.Status == "COMPLETED" {
			return &domain.CaptureResult{
				Success:         true,
				ProviderDetails: string(msg.Details),
			}, nil
		}

		reason := "payment not completed: " + msg.Status
		if len(msg.Error) > 0 {
			reason = fmt.Sprintf("%s: %s", reason, msg.Error)
		}
		return &domain.CaptureResult{Success: false, Reason: reason}, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
