// Package api serves the card generation HTTP API and the payment
// gateway webhook.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardgen/internal/config"
	"cardgen/internal/models"
	"cardgen/internal/ratelimit"
)

// RequestsPerMinute is the per-IP limit on API calls.
const RequestsPerMinute = 60

// CardGenerator produces product cards from text, an image, or both.
type CardGenerator interface {
	GenerateFromText(ctx context.Context, text string) (*models.Card, error)
	GenerateFromImage(ctx context.Context, imageBytes []byte, mimeType string) (*models.Card, error)
	GenerateFromBoth(ctx context.Context, imageBytes []byte, mimeType, text string) (*models.Card, error)
}

// PaymentProcessor applies gateway webhook outcomes. Nil disables the
// webhook endpoint.
type PaymentProcessor interface {
	Confirm(ctx context.Context, gatewayID string) error
	Cancel(ctx context.Context, gatewayID string) error
}

// Server is the HTTP API.
type Server struct {
	cfg       *config.Config
	generator CardGenerator
	payments  PaymentProcessor
	limiter   *ratelimit.Limiter
	version   string
}

// NewServer creates the API server. The version string is reported by the
// health endpoint.
func NewServer(cfg *config.Config, generator CardGenerator, payments PaymentProcessor, version string) *Server {
	return &Server{
		cfg:       cfg,
		generator: generator,
		payments:  payments,
		limiter:   ratelimit.New(RequestsPerMinute, time.Minute),
		version:   version,
	}
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	chain := Chain(
		Recovery(),
		Logging(),
		RateLimit(s.limiter),
	)

	mux := http.NewServeMux()
	mux.Handle("GET /health", chain(http.HandlerFunc(s.handleHealth)))
	mux.Handle("POST /generate", chain(http.HandlerFunc(s.handleGenerate)))
	mux.Handle("POST /webhook/yoomoney", chain(http.HandlerFunc(s.handleWebhook)))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
