package yookassa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		var gotReq CreatePaymentRequest
		var gotIdemKey string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/payments", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "shop-1", user)
			assert.Equal(t, "secret-1", pass)

			gotIdemKey = r.Header.Get("Idempotence-Key")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(Payment{
				ID:     "2e8b1c7a-000f-5000-9000-1a2b3c4d5e6f",
				Status: StatusPending,
				Amount: Amount{Value: "509.00", Currency: "RUB"},
				Confirmation: &Confirmation{
					Type:            "redirect",
					ConfirmationURL: "https://yoomoney.ru/checkout/payments/v2/contract?orderId=abc",
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "shop-1", "secret-1", 5*time.Second)
		payment, err := client.CreatePayment(
			context.Background(),
			decimal.NewFromInt(509),
			"Plan 30 requests",
			"https://t.me/cardgen_bot",
			"bank_card",
			map[string]string{"payment_id": "42"},
		)

		require.NoError(t, err)
		assert.Equal(t, "2e8b1c7a-000f-5000-9000-1a2b3c4d5e6f", payment.ID)
		assert.Equal(t, StatusPending, payment.Status)
		require.NotNil(t, payment.Confirmation)
		assert.Contains(t, payment.Confirmation.ConfirmationURL, "yoomoney.ru")

		assert.NotEmpty(t, gotIdemKey)
		assert.Equal(t, "509.00", gotReq.Amount.Value)
		assert.Equal(t, "RUB", gotReq.Amount.Currency)
		assert.True(t, gotReq.Capture)
		assert.Equal(t, "redirect", gotReq.Confirmation.Type)
		assert.Equal(t, "https://t.me/cardgen_bot", gotReq.Confirmation.ReturnURL)
		require.NotNil(t, gotReq.PaymentMethodData)
		assert.Equal(t, "bank_card", gotReq.PaymentMethodData.Type)
		assert.Equal(t, "42", gotReq.Metadata["payment_id"])
	})

	t.Run("amount formatted to two decimals", func(t *testing.T) {
		var gotReq CreatePaymentRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			_ = json.NewEncoder(w).Encode(Payment{ID: "p1", Status: StatusPending})
		}))
		defer server.Close()

		client := NewClient(server.URL, "shop-1", "secret-1", 5*time.Second)
		_, err := client.CreatePayment(context.Background(), decimal.NewFromFloat(180.5), "one-time", "https://t.me/b", "", nil)

		require.NoError(t, err)
		assert.Equal(t, "180.50", gotReq.Amount.Value)
		assert.Nil(t, gotReq.PaymentMethodData)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		client := NewClient("http://localhost:1", "shop-1", "secret-1", time.Second)
		_, err := client.CreatePayment(context.Background(), decimal.Zero, "d", "u", "bank_card", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "positive")
	})

	t.Run("gateway error decoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(apiError{
				Type:        "error",
				Code:        "invalid_credentials",
				Description: "Basic auth failed",
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "shop-1", "wrong", 5*time.Second)
		_, err := client.CreatePayment(context.Background(), decimal.NewFromInt(20), "d", "u", "sbp", nil)

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
		assert.Equal(t, "invalid_credentials", gwErr.Code)
		assert.Contains(t, gwErr.Error(), "Basic auth failed")
	})
}

func TestGetPayment(t *testing.T) {
	t.Run("returns payment state", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/payments/p-123", r.URL.Path)

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "shop-1", user)
			assert.Equal(t, "secret-1", pass)

			_ = json.NewEncoder(w).Encode(Payment{
				ID:     "p-123",
				Status: StatusSucceeded,
				Paid:   true,
				Amount: Amount{Value: "20.00", Currency: "RUB"},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "shop-1", "secret-1", 5*time.Second)
		payment, err := client.GetPayment(context.Background(), "p-123")

		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, payment.Status)
		assert.True(t, payment.Paid)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		client := NewClient("http://localhost:1", "shop-1", "secret-1", time.Second)
		_, err := client.GetPayment(context.Background(), "")
		require.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(apiError{Code: "not_found", Description: "Payment not found"})
		}))
		defer server.Close()

		client := NewClient(server.URL, "shop-1", "secret-1", 5*time.Second)
		_, err := client.GetPayment(context.Background(), "missing")

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewClient(server.URL, "shop-1", "secret-1", 5*time.Second)
		_, err := client.GetPayment(context.Background(), "p-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}

func TestMethodType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bank_card", MethodType("card"))
	assert.Equal(t, "sbp", MethodType("sbp"))
	assert.Equal(t, "yoo_money", MethodType("yoomoney"))
	assert.Equal(t, "bank_card", MethodType("paypal"))
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient("  https://api.yookassa.ru/v3/  ", "s", "k", 0)
	assert.Equal(t, "https://api.yookassa.ru/v3", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	client = NewClient("", "s", "k", time.Second)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}
