package bot

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/internal/apiclient"
	"cardgen/internal/bot/mocks"
	appmodels "cardgen/internal/models"
)

// imageServer serves the given bytes for photo download tests.
func imageServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleText(t *testing.T) {
	tb := setupTestBot(t)
	tb.seedUser(t, 5)
	mock := mocks.NewMockBot()
	ctx := context.Background()

	t.Run("generates card and charges quota", func(t *testing.T) {
		tb.bot.handleTextCore(ctx, mock, mocks.MessageUpdate(10, 5, "Тёплый флисовый плед"))

		require.Equal(t, 1, tb.api.textCalls)
		assert.Equal(t, "Тёплый флисовый плед", tb.api.gotText)

		require.GreaterOrEqual(t, mock.SentMessageCount(), 2)
		assert.Contains(t, mock.SentMessages[0].Text, "Составляю карточку")
		assert.Contains(t, mock.LastSentMessage().Text, "Плед флисовый 150x200")

		sub, err := tb.quota.Status(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, appmodels.FreeRequests-1, sub.FreeLeft())
	})

	t.Run("commands are ignored", func(t *testing.T) {
		mock.Reset()
		tb.bot.handleTextCore(ctx, mock, mocks.MessageUpdate(10, 5, "/start"))

		require.Zero(t, mock.SentMessageCount())
		require.Equal(t, 1, tb.api.textCalls)
	})

	t.Run("rejects overlong description", func(t *testing.T) {
		mock.Reset()
		long := strings.Repeat("я", tb.bot.cfg.MaxTextLength+1)
		tb.bot.handleTextCore(ctx, mock, mocks.MessageUpdate(10, 5, long))

		require.Equal(t, 1, mock.SentMessageCount())
		assert.Contains(t, mock.LastSentMessage().Text, "слишком длинное")
		require.Equal(t, 1, tb.api.textCalls)
	})

	t.Run("generation failure does not charge quota", func(t *testing.T) {
		mock.Reset()
		tb.api.err = errors.New("backend down")

		tb.bot.handleTextCore(ctx, mock, mocks.MessageUpdate(10, 5, "Чайник"))

		assert.Contains(t, mock.LastSentMessage().Text, "временно недоступен")

		sub, err := tb.quota.Status(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, appmodels.FreeRequests-1, sub.FreeLeft())
		tb.api.err = nil
	})
}

func TestHandleTextQuotaExhausted(t *testing.T) {
	tb := setupTestBot(t)
	tb.seedUser(t, 6)
	mock := mocks.NewMockBot()
	ctx := context.Background()

	for i := 0; i < appmodels.FreeRequests; i++ {
		require.NoError(t, tb.quota.Consume(ctx, 6))
	}

	tb.bot.handleTextCore(ctx, mock, mocks.MessageUpdate(10, 6, "Чайник"))

	require.Equal(t, 1, mock.SentMessageCount())
	assert.Contains(t, mock.LastSentMessage().Text, "Генерации закончились")
	require.Zero(t, tb.api.textCalls)
}

func TestFinishGenerationDeliversCardOnQuotaRace(t *testing.T) {
	tb := setupTestBot(t)
	tb.seedUser(t, 7)
	mock := mocks.NewMockBot()
	ctx := context.Background()

	// Quota drained after checkQuota passed, as a concurrent request would.
	for i := 0; i < appmodels.FreeRequests; i++ {
		require.NoError(t, tb.quota.Consume(ctx, 7))
	}

	tb.bot.finishGeneration(ctx, mock, 10, 7, tb.api.card, nil)

	// The finished card is delivered anyway; the work is already done.
	require.Equal(t, 1, mock.SentMessageCount())
	assert.Contains(t, mock.LastSentMessage().Text, "Плед флисовый 150x200")
}

func TestHandlePhoto(t *testing.T) {
	tb := setupTestBot(t)
	tb.seedUser(t, 8)
	ctx := context.Background()

	srv := imageServer(t, []byte("jpeg-bytes"))

	t.Run("photo alone generates from image", func(t *testing.T) {
		mock := mocks.NewMockBot()
		mock.FileDownloadLinkToReturn = srv.URL + "/photos/test.jpg"

		tb.bot.handlePhotoCore(ctx, mock, mocks.PhotoUpdate(10, 8, "file-1"))

		require.Equal(t, 1, tb.api.imageCalls)
		assert.Contains(t, mock.LastSentMessage().Text, "Плед флисовый 150x200")
	})

	t.Run("caption switches to combined generation", func(t *testing.T) {
		mock := mocks.NewMockBot()
		mock.FileDownloadLinkToReturn = srv.URL + "/photos/test.jpg"

		update := mocks.NewUpdateBuilder().
			WithMessage(10, 8, "").
			WithPhoto("file-2").
			WithCaption("Плед из флиса").
			Build()
		tb.bot.handlePhotoCore(ctx, mock, update)

		require.Equal(t, 1, tb.api.bothCalls)
		assert.Equal(t, "Плед из флиса", tb.api.gotText)
	})

	t.Run("download failure reported without charge", func(t *testing.T) {
		mock := mocks.NewMockBot()
		mock.GetFileError = errors.New("telegram unavailable")

		before, err := tb.quota.Status(ctx, 8)
		require.NoError(t, err)

		tb.bot.handlePhotoCore(ctx, mock, mocks.PhotoUpdate(10, 8, "file-3"))

		assert.Contains(t, mock.LastSentMessage().Text, "Не удалось загрузить фото")

		after, err := tb.quota.Status(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, before.Remaining(), after.Remaining())
	})

	t.Run("oversized file rejected", func(t *testing.T) {
		big := imageServer(t, bytes.Repeat([]byte("x"), int(tb.bot.cfg.MaxFileSize)+1))
		mock := mocks.NewMockBot()
		mock.FileDownloadLinkToReturn = big.URL + "/photos/test.jpg"

		calls := tb.api.imageCalls
		tb.bot.handlePhotoCore(ctx, mock, mocks.PhotoUpdate(10, 8, "file-4"))

		assert.Contains(t, mock.LastSentMessage().Text, "Не удалось загрузить фото")
		require.Equal(t, calls, tb.api.imageCalls)
	})
}

func TestCombinedFlowParksPhoto(t *testing.T) {
	tb := setupTestBot(t)
	tb.seedUser(t, 9)
	ctx := context.Background()

	srv := imageServer(t, []byte("jpeg-bytes"))
	mock := mocks.NewMockBot()
	mock.FileDownloadLinkToReturn = srv.URL + "/photos/test.jpg"

	tb.bot.sessions.SetMode(9, appmodels.ContentTypeBoth)

	// Photo without a caption is parked until the description arrives.
	tb.bot.handlePhotoCore(ctx, mock, mocks.PhotoUpdate(10, 9, "file-9"))

	require.Zero(t, tb.api.imageCalls)
	require.Zero(t, tb.api.bothCalls)
	assert.Contains(t, mock.LastSentMessage().Text, "пришлите описание")

	sess := tb.bot.sessions.Get(9)
	require.NotNil(t, sess)
	require.NotEmpty(t, sess.PhotoFileID)

	tb.bot.handleTextCore(ctx, mock, mocks.MessageUpdate(10, 9, "Плед из флиса"))

	require.Equal(t, 1, tb.api.bothCalls)
	assert.Equal(t, "Плед из флиса", tb.api.gotText)
	assert.Contains(t, mock.LastSentMessage().Text, "Плед флисовый 150x200")

	// The session is cleared once the card is delivered.
	require.Nil(t, tb.bot.sessions.Get(9))
}

func TestGenerationErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "timeout",
			err:  &apiclient.APIError{StatusCode: http.StatusGatewayTimeout, Code: "GENERATION_TIMEOUT"},
			want: "слишком много времени",
		},
		{
			name: "low quality",
			err:  &apiclient.APIError{StatusCode: http.StatusBadGateway, Code: "GENERATION_FAILED"},
			want: "качественную карточку",
		},
		{
			name: "file too large",
			err:  &apiclient.APIError{StatusCode: http.StatusRequestEntityTooLarge, Code: "FILE_TOO_LARGE"},
			want: "слишком большой",
		},
		{
			name: "bad request carries detail",
			err:  &apiclient.APIError{StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST", Message: "текст обязателен"},
			want: "текст обязателен",
		},
		{
			name: "unknown error",
			err:  errors.New("connection refused"),
			want: "временно недоступен",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Contains(t, generationErrorMessage(tt.err), tt.want)
		})
	}
}
