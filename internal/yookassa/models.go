package yookassa

// Payment statuses reported by the gateway.
const (
	StatusPending           = "pending"
	StatusWaitingForCapture = "waiting_for_capture"
	StatusSucceeded         = "succeeded"
	StatusCanceled          = "canceled"
)

// Amount is a money value on the wire: a 2-decimal string plus currency.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Confirmation describes how the payer completes the payment. We only use
// the redirect type: the gateway hosts the checkout page.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// PaymentMethodData selects the payment instrument at creation time.
type PaymentMethodData struct {
	Type string `json:"type"`
}

// CreatePaymentRequest is the POST /payments body.
type CreatePaymentRequest struct {
	Amount            Amount             `json:"amount"`
	Confirmation      Confirmation       `json:"confirmation"`
	Capture           bool               `json:"capture"`
	Description       string             `json:"description"`
	PaymentMethodData *PaymentMethodData `json:"payment_method_data,omitempty"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
}

// Payment is the gateway's payment object, trimmed to the fields we read.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

// apiError is the gateway's error body.
type apiError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}
