// Package yookassa is a client for the YooKassa payments REST API.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cardgen/internal/models"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.yookassa.ru/v3"

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("yookassa: status %d, code %q: %s", e.StatusCode, e.Code, e.Description)
}

// Client talks to the YooKassa API using basic auth shopId:secretKey.
type Client struct {
	baseURL    string
	shopID     string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a YooKassa API client.
func NewClient(baseURL, shopID, secretKey string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:   trimmed,
		shopID:    shopID,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// MethodType converts our payment method name to the gateway's type.
// Unknown methods fall back to bank cards.
func MethodType(method string) string {
	switch method {
	case "card":
		return "bank_card"
	case "sbp":
		return "sbp"
	case "yoomoney":
		return "yoo_money"
	default:
		return "bank_card"
	}
}

// CreatePayment creates a redirect-confirmation payment with immediate
// capture. The Idempotence-Key header makes retries safe.
func (c *Client) CreatePayment(
	ctx context.Context,
	amount decimal.Decimal,
	description, returnURL, methodType string,
	metadata map[string]string,
) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", amount)
	}

	reqBody := CreatePaymentRequest{
		Amount: Amount{
			Value:    amount.StringFixed(2),
			Currency: models.Currency,
		},
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: returnURL,
		},
		Capture:     true,
		Description: description,
		Metadata:    metadata,
	}
	if methodType != "" {
		reqBody.PaymentMethodData = &PaymentMethodData{Type: methodType}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(c.shopID, c.secretKey)

	return c.do(req)
}

// GetPayment fetches the current state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Payment, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &GatewayError{StatusCode: resp.StatusCode}
		var body apiError
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			gwErr.Code = body.Code
			gwErr.Description = body.Description
		}
		return nil, gwErr
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if payment.ID == "" {
		return nil, fmt.Errorf("gateway response missing payment id")
	}
	return &payment, nil
}
