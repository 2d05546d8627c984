package gencontent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// mockGenerator implements ContentGenerator with scripted responses. Each
// call pops the next response; the last one repeats.
type mockGenerator struct {
	responses []mockResponse
	calls     int
}

type mockResponse struct {
	text string
	err  error
}

func (m *mockGenerator) GenerateContent(
	_ context.Context,
	_ string,
	_ []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++

	r := m.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: r.text}}}},
		},
	}, nil
}

const goodCardJSON = `{
	"title": "Беспроводные наушники AirSound Pro",
	"short_description": "Кристально чистый звук и 30 часов работы без подзарядки. Идеальны для спорта и работы.",
	"detailed_description": "Наушники AirSound Pro созданы для тех, кто ценит качество звука в любой ситуации. Активное шумоподавление отсекает шум транспорта и офиса, а прозрачный режим позволяет оставаться на связи с окружением. Аккумулятор держит до 30 часов с кейсом, быстрая зарядка даёт 2 часа музыки за 10 минут. Защита IPX5 выдерживает дождь и интенсивные тренировки.",
	"features": ["Активное шумоподавление", "30 часов автономности", "Bluetooth 5.3", "Защита IPX5", "Быстрая зарядка"],
	"seo_keywords": ["наушники беспроводные", "tws наушники", "наушники с шумоподавлением", "наушники для спорта", "bluetooth наушники", "наушники airsound"],
	"target_audience": ["Активные люди 20-40 лет", "Спортсмены", "Офисные работники"]
}`

const poorCardJSON = `{"title": "", "short_description": "", "detailed_description": "x", "features": [], "seo_keywords": [], "target_audience": []}`

func TestGenerateFromText(t *testing.T) {
	t.Run("returns card on first good attempt", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{{text: goodCardJSON}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromText(context.Background(), "беспроводные наушники")
		require.NoError(t, err)
		require.Equal(t, "Беспроводные наушники AirSound Pro", card.Title)
		require.Len(t, card.Features, 5)
		require.GreaterOrEqual(t, len(card.SEOKeywords), 5)
		require.Equal(t, 1, gen.calls)
	})

	t.Run("markdown fenced response accepted", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{{text: "```json\n" + goodCardJSON + "\n```"}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromText(context.Background(), "наушники")
		require.NoError(t, err)
		require.NotEmpty(t, card.Title)
	})

	t.Run("empty text rejected without API call", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{{text: goodCardJSON}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		_, err := client.GenerateFromText(context.Background(), "   ")
		require.Error(t, err)
		require.Equal(t, 0, gen.calls)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{
			{err: errors.New("503 service unavailable")},
			{text: goodCardJSON},
		}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromText(context.Background(), "наушники")
		require.NoError(t, err)
		require.NotEmpty(t, card.Title)
		require.Equal(t, 2, gen.calls)
	})

	t.Run("retries low quality output then gives up", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{{text: poorCardJSON}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		_, err := client.GenerateFromText(context.Background(), "наушники")
		require.ErrorIs(t, err, ErrLowQuality)
		require.Equal(t, maxAttempts, gen.calls)
	})

	t.Run("low quality then good", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{
			{text: poorCardJSON},
			{text: goodCardJSON},
		}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromText(context.Background(), "наушники")
		require.NoError(t, err)
		require.NotEmpty(t, card.Title)
		require.Equal(t, 2, gen.calls)
	})

	t.Run("malformed json retried", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{
			{text: "not json at all"},
			{text: goodCardJSON},
		}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromText(context.Background(), "наушники")
		require.NoError(t, err)
		require.NotEmpty(t, card.Title)
	})

	t.Run("canceled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		gen := &mockGenerator{responses: []mockResponse{{err: errors.New("boom")}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		_, err := client.GenerateFromText(ctx, "наушники")
		require.Error(t, err)
	})
}

func TestGenerateFromImage(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{{text: goodCardJSON}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
		require.NoError(t, err)
		require.NotEmpty(t, card.DetailedDescription)
	})

	t.Run("empty image rejected", func(t *testing.T) {
		client := NewClientWithGenerator(&mockGenerator{responses: []mockResponse{{text: goodCardJSON}}}, "gemini-2.5-flash")
		_, err := client.GenerateFromImage(context.Background(), nil, "image/jpeg")
		require.Error(t, err)
	})
}

func TestGenerateFromBoth(t *testing.T) {
	t.Run("requires both inputs", func(t *testing.T) {
		client := NewClientWithGenerator(&mockGenerator{responses: []mockResponse{{text: goodCardJSON}}}, "gemini-2.5-flash")

		_, err := client.GenerateFromBoth(context.Background(), nil, "image/png", "наушники")
		require.Error(t, err)

		_, err = client.GenerateFromBoth(context.Background(), []byte{1}, "image/png", "")
		require.Error(t, err)
	})

	t.Run("successful generation", func(t *testing.T) {
		gen := &mockGenerator{responses: []mockResponse{{text: goodCardJSON}}}
		client := NewClientWithGenerator(gen, "gemini-2.5-flash")

		card, err := client.GenerateFromBoth(context.Background(), []byte{0x89, 0x50}, "image/png", "наушники")
		require.NoError(t, err)
		require.NotEmpty(t, card.TargetAudience)
	})
}

func TestBuildCardPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildCardPrompt("the product photo above", "")
	require.Contains(t, prompt, "title")
	require.Contains(t, prompt, "short_description")
	require.Contains(t, prompt, "detailed_description")
	require.Contains(t, prompt, "features")
	require.Contains(t, prompt, "seo_keywords")
	require.Contains(t, prompt, "target_audience")
	require.NotContains(t, prompt, "Product description:")

	withText := buildCardPrompt("the product description below", "красные кроссовки")
	require.Contains(t, withText, "красные кроссовки")
}

func TestParseCardResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		wantErr  bool
	}{
		{name: "plain json", response: goodCardJSON},
		{name: "fenced json", response: "```json\n" + goodCardJSON + "\n```"},
		{name: "fenced without language", response: "```\n" + goodCardJSON + "\n```"},
		{name: "invalid json", response: "oops", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card, err := parseCardResponse(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, card.Title)
		})
	}
}
