// Package paypal is a minimal client for the provider capabilities the
// relay needs: a client-credentials bearer token, order creation with an
// amount and currency, and order capture.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const SandboxBaseURL = "https://api-m.sandbox.paypal.com"

type Client struct {
	baseURL   string
	clientID  string
	secret    string
	returnURL string
	cancelURL string
	http      *http.Client
}

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SetRedirectURLs configures where the provider sends the buyer's browser
// after approval or cancellation.
func (c *Client) SetRedirectURLs(returnURL, cancelURL string) {
	c.returnURL = returnURL
	c.cancelURL = cancelURL
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken exchanges the client credentials for a short-lived bearer
// token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, body)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return out.AccessToken, nil
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount orderAmount `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type createOrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []purchaseUnit      `json:"purchase_units"`
	ApplicationContext *applicationContext `json:"application_context,omitempty"`
}

type orderLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Links  []orderLink `json:"links"`
}

// CreateOrder creates a provider order with intent CAPTURE and returns the
// order id and the payer-facing approval URL.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency string) (orderID, approvalURL string, err error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: orderAmount{
				CurrencyCode: currency,
				Value:        fmt.Sprintf("%.2f", amount),
			},
		}},
	}
	if c.returnURL != "" || c.cancelURL != "" {
		payload.ApplicationContext = &applicationContext{
			ReturnURL: c.returnURL,
			CancelURL: c.cancelURL,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("create order returned %d: %s", resp.StatusCode, raw)
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode order response: %w", err)
	}

	for _, link := range out.Links {
		if link.Rel == "approve" {
			return out.ID, link.Href, nil
		}
	}
	return "", "", fmt.Errorf("order %s has no approval link", out.ID)
}

// CaptureOrder captures an approved order and returns the provider's
// response body verbatim along with the reported status.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (status string, raw json.RawMessage, err error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders/"+orderID+"/capture", bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", nil, fmt.Errorf("build capture request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("capture order: %w", err)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read capture response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", nil, fmt.Errorf("capture returned %d: %s", resp.StatusCode, raw)
	}

	var out orderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", nil, fmt.Errorf("decode capture response: %w", err)
	}
	return out.Status, raw, nil
}
