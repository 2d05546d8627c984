package gencontent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"cardgen/internal/logger"
	"cardgen/internal/models"
)

// GenerateTimeout is the timeout for a single Gemini API call.
const GenerateTimeout = 30 * time.Second

// maxAttempts bounds retries for transient failures and low-quality output.
const maxAttempts = 3

// retryDelay is the pause between generation attempts.
const retryDelay = time.Second

// ErrGenerateTimeout indicates the Gemini API call timed out.
var ErrGenerateTimeout = errors.New("card generation timed out")

// ErrLowQuality indicates every attempt produced a card below the
// quality threshold.
var ErrLowQuality = errors.New("generated card quality below threshold")

// GenerateFromText builds a product card from a text description only.
func (c *Client) GenerateFromText(ctx context.Context, text string) (*models.Card, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("product description is required")
	}

	parts := []*genai.Part{
		{Text: buildCardPrompt("the product description below", text)},
	}
	return c.generateWithRetry(ctx, parts, models.ContentTypeTextOnly)
}

// GenerateFromImage builds a product card from a product photo only.
func (c *Client) GenerateFromImage(ctx context.Context, imageBytes []byte, mimeType string) (*models.Card, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
		{Text: buildCardPrompt("the product photo above", "")},
	}
	return c.generateWithRetry(ctx, parts, models.ContentTypeImageOnly)
}

// GenerateFromBoth builds a product card from a photo plus a description.
// The text takes precedence where it conflicts with the image.
func (c *Client) GenerateFromBoth(ctx context.Context, imageBytes []byte, mimeType, text string) (*models.Card, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("product description is required")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
		{Text: buildCardPrompt("the product photo above combined with the description below; the description wins on conflicts", text)},
	}
	return c.generateWithRetry(ctx, parts, models.ContentTypeBoth)
}

// generateWithRetry runs up to maxAttempts generation rounds, keeping the
// first card that clears the quality threshold. Transient API errors and
// low-quality output both trigger a retry; timeouts do not.
func (c *Client) generateWithRetry(ctx context.Context, parts []*genai.Part, contentType models.ContentType) (*models.Card, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		card, err := c.generateOnce(ctx, parts)
		if err != nil {
			if errors.Is(err, ErrGenerateTimeout) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.Log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("content_type", string(contentType)).
				Msg("Card generation attempt failed")
			lastErr = err
			continue
		}

		score := QualityScore(card)
		if score < QualityThreshold {
			logger.Log.Warn().
				Float64("score", score).
				Int("attempt", attempt).
				Str("content_type", string(contentType)).
				Msg("Generated card below quality threshold")
			lastErr = fmt.Errorf("%w: score %.2f", ErrLowQuality, score)
			continue
		}

		logger.Log.Debug().
			Float64("score", score).
			Int("attempt", attempt).
			Str("content_type", string(contentType)).
			Msg("Card generated")
		return card, nil
	}

	return nil, fmt.Errorf("card generation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, parts []*genai.Part) (*models.Card, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, []*genai.Content{
		{Parts: parts},
	}, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrGenerateTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var textContent string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textContent += part.Text
		}
	}

	if textContent == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	return parseCardResponse(textContent)
}

func buildCardPrompt(source, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert marketplace copywriter. Create a selling product card based on %s.
Write all output in Russian. Return ONLY a JSON object with no additional text or markdown formatting.

Required fields:
- title: catchy product title, at most 100 characters
- short_description: 2-3 selling sentences
- detailed_description: full description with benefits, at least 500 characters
- features: array of 5-7 key product characteristics
- seo_keywords: array of 8-10 search keywords
- target_audience: array of 2-3 audience segments this product is for

Example response:
{"title": "...", "short_description": "...", "detailed_description": "...", "features": ["..."], "seo_keywords": ["..."], "target_audience": ["..."]}`, source)

	if text != "" {
		fmt.Fprintf(&b, "\n\nProduct description:\n%s", text)
	}
	return b.String()
}

func parseCardResponse(response string) (*models.Card, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var card models.Card
	if err := json.Unmarshal([]byte(response), &card); err != nil {
		return nil, fmt.Errorf("failed to parse card response: %w", err)
	}
	return &card, nil
}
