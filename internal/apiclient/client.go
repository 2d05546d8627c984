// Package apiclient is the bot's HTTP client for the card generation API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cardgen/internal/models"
)

// APIError is a non-2xx answer from the generation API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d, code %q: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the card generation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Health checks the API's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// GenerateFromText requests a card from a text description.
func (c *Client) GenerateFromText(ctx context.Context, text string) (*models.Card, error) {
	return c.generate(ctx, models.ContentTypeTextOnly, nil, "", text)
}

// GenerateFromImage requests a card from a product photo.
func (c *Client) GenerateFromImage(ctx context.Context, image []byte, filename string) (*models.Card, error) {
	return c.generate(ctx, models.ContentTypeImageOnly, image, filename, "")
}

// GenerateFromBoth requests a card from a photo plus a description.
func (c *Client) GenerateFromBoth(ctx context.Context, image []byte, filename, text string) (*models.Card, error) {
	return c.generate(ctx, models.ContentTypeBoth, image, filename, text)
}

func (c *Client) generate(ctx context.Context, contentType models.ContentType, image []byte, filename, text string) (*models.Card, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("type", string(contentType)); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if text != "" {
		if err := mw.WriteField("text", text); err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	}
	if image != nil {
		if filename == "" {
			filename = "photo.jpg"
		}
		fw, err := mw.CreateFormFile("image", filename)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		if _, err := fw.Write(image); err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var card models.Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode card: %w", err)
	}
	return &card, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
