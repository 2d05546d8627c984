package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardJSON() string {
	return `{"title":"Термос стальной 1 л","short_description":"Держит тепло сутки.","detailed_description":"Описание.","features":["Сталь","1 литр"],"seo_keywords":["термос"],"target_audience":["Туристы"]}`
}

func TestGenerateFromText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "text_only", r.FormValue("type"))
		assert.Equal(t, "термос стальной", r.FormValue("text"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cardJSON()))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	card, err := client.GenerateFromText(context.Background(), "термос стальной")

	require.NoError(t, err)
	assert.Equal(t, "Термос стальной 1 л", card.Title)
	assert.Equal(t, []string{"Сталь", "1 литр"}, card.Features)
}

func TestGenerateFromImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "image_only", r.FormValue("type"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "product.png", header.Filename)

		_, _ = w.Write([]byte(cardJSON()))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	card, err := client.GenerateFromImage(context.Background(), []byte{0x89, 0x50}, "product.png")

	require.NoError(t, err)
	assert.NotEmpty(t, card.Title)
}

func TestGenerateFromBoth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "both", r.FormValue("type"))
		assert.Equal(t, "термос", r.FormValue("text"))

		_, _, err := r.FormFile("image")
		require.NoError(t, err)

		_, _ = w.Write([]byte(cardJSON()))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.GenerateFromBoth(context.Background(), []byte{0xFF, 0xD8}, "", "термос")
	require.NoError(t, err)
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST", "message": "text is required"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.GenerateFromText(context.Background(), "x")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "text is required")
}

func TestGenerateMalformedCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.GenerateFromText(context.Background(), "x")
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		require.NoError(t, client.Health(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		require.Error(t, client.Health(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", time.Second)
		require.Error(t, client.Health(context.Background()))
	})
}
