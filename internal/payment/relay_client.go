package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RelayClient calls the payment relay server over HTTP. It implements
// PaymentCreator for the RelayCapture adapter.
type RelayClient struct {
	baseURL string
	client  *http.Client
}

func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type createPaymentRequest struct {
	Amount float64 `json:"amount"`
}

type createPaymentResponse struct {
	PaymentID   string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
	Error       string `json:"error,omitempty"`
}

func (c *RelayClient) CreatePayment(ctx context.Context, amount float64) (string, string, error) {
	body, err := json.Marshal(createPaymentRequest{Amount: amount})
	if err != nil {
		return "", "", fmt.Errorf("marshal create-payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-payment", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build create-payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("call relay: %w", err)
	}
	defer resp.Body.Close()

	var out createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", "", fmt.Errorf("relay returned %d: %s", resp.StatusCode, out.Error)
		}
		return "", "", fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	return out.PaymentID, out.ApprovalURL, nil
}

type executePaymentRequest struct {
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
}

type executePaymentResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ExecutePayment asks the relay to capture an approved provider order.
func (c *RelayClient) ExecutePayment(ctx context.Context, paymentID, payerID string) (bool, json.RawMessage, error) {
	body, err := json.Marshal(executePaymentRequest{PaymentID: paymentID, PayerID: payerID})
	if err != nil {
		return false, nil, fmt.Errorf("marshal execute-payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute-payment", bytes.NewReader(body))
	if err != nil {
		return false, nil, fmt.Errorf("build execute-payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, nil, fmt.Errorf("call relay: %w", err)
	}
	defer resp.Body.Close()

	var out executePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, nil, fmt.Errorf("decode relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return false, nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, out.Error)
		}
		return false, nil, fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	return out.Success, out.Data, nil
}
