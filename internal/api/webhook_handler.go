package api

import (
	"encoding/json"
	"net/http"

	"cardgen/internal/logger"
)

// Webhook event types the gateway delivers.
const (
	eventPaymentSucceeded = "payment.succeeded"
	eventPaymentCanceled  = "payment.canceled"
)

// webhookNotification is the gateway's notification body.
type webhookNotification struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"object"`
}

// handleWebhook processes payment gateway notifications. It always
// acknowledges known-shape requests with {"status":"ok"} so the gateway
// stops retrying; processing failures are logged and left to the
// reconciliation poller.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.payments == nil {
		Error(w, http.StatusServiceUnavailable, "PAYMENTS_DISABLED", "payment processing is not configured")
		return
	}

	var n webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		BadRequest(w, "invalid notification body")
		return
	}
	if n.Object.ID == "" {
		BadRequest(w, "notification is missing the payment id")
		return
	}

	webhookEventsTotal.WithLabelValues(n.Event).Inc()

	ctx := r.Context()
	var err error
	switch n.Event {
	case eventPaymentSucceeded:
		err = s.payments.Confirm(ctx, n.Object.ID)
	case eventPaymentCanceled:
		err = s.payments.Cancel(ctx, n.Object.ID)
	default:
		logger.Log.Debug().
			Str("event", n.Event).
			Str("gateway_id", logger.MaskPaymentID(n.Object.ID)).
			Msg("Ignoring webhook event")
	}

	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("event", n.Event).
			Str("gateway_id", logger.MaskPaymentID(n.Object.ID)).
			Msg("Webhook processing failed")
	}

	OK(w)
}
