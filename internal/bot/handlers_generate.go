package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"cardgen/internal/apiclient"
	"cardgen/internal/logger"
	appmodels "cardgen/internal/models"
	"cardgen/internal/quota"
)

const quotaExhaustedMsg = `😔 Генерации закончились.

Посмотреть тарифы: /plans
Купить одну генерацию: /buy`

// handlePhotoCore processes a product photo, alone or with a caption.
func (b *Bot) handlePhotoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || len(update.Message.Photo) == 0 {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	caption := strings.TrimSpace(update.Message.Caption)
	largestPhoto := update.Message.Photo[len(update.Message.Photo)-1]

	sess := b.sessions.Get(userID)

	// Combined mode without a caption: park the photo and wait for text.
	if caption == "" && sess != nil && sess.Mode == appmodels.ContentTypeBoth {
		b.sessions.SetPhoto(userID, largestPhoto.FileID)
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📝 Фото получил. Теперь пришлите описание товара.",
		})
		return
	}

	if !b.checkQuota(ctx, tg, chatID, userID) {
		return
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Составляю карточку...",
	})

	imageBytes, filename, err := b.downloadPhoto(ctx, tg, largestPhoto.FileID)
	if err != nil {
		logger.Log.Error().Err(err).
			Int64("chat_id", chatID).
			Int64("user_id", userID).
			Msg("Failed to download photo")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось загрузить фото. Попробуйте ещё раз.",
		})
		return
	}

	var card *appmodels.Card
	if caption != "" {
		card, err = b.api.GenerateFromBoth(ctx, imageBytes, filename, caption)
	} else {
		card, err = b.api.GenerateFromImage(ctx, imageBytes, filename)
	}

	b.finishGeneration(ctx, tg, chatID, userID, card, err)
}

// handleTextCore processes a plain text product description.
func (b *Bot) handleTextCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	if len([]rune(text)) > b.cfg.MaxTextLength {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("❌ Описание слишком длинное, максимум %d символов.", b.cfg.MaxTextLength),
		})
		return
	}

	if !b.checkQuota(ctx, tg, chatID, userID) {
		return
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Составляю карточку...",
	})

	// A parked photo from the combined flow pairs with this text.
	var card *appmodels.Card
	var err error
	if sess := b.sessions.Get(userID); sess != nil && sess.PhotoFileID != "" {
		var imageBytes []byte
		var filename string
		imageBytes, filename, err = b.downloadPhoto(ctx, tg, sess.PhotoFileID)
		if err == nil {
			card, err = b.api.GenerateFromBoth(ctx, imageBytes, filename, text)
		}
	} else {
		card, err = b.api.GenerateFromText(ctx, text)
	}

	b.finishGeneration(ctx, tg, chatID, userID, card, err)
}

// checkQuota verifies the user has a request available.
func (b *Bot) checkQuota(ctx context.Context, tg TelegramAPI, chatID, userID int64) bool {
	ok, err := b.quota.CanConsume(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Int64("user_id", userID).Msg("Quota check failed")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Что-то пошло не так. Попробуйте ещё раз.",
		})
		return false
	}
	if !ok {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   quotaExhaustedMsg,
		})
		return false
	}
	return true
}

// finishGeneration renders the result, charges the quota and clears the
// session. The request is only charged on success.
func (b *Bot) finishGeneration(ctx context.Context, tg TelegramAPI, chatID, userID int64, card *appmodels.Card, err error) {
	b.sessions.Clear(userID)

	if err != nil {
		logger.Log.Error().Err(err).
			Int64("user_id", userID).
			Msg("Card generation failed")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   generationErrorMessage(err),
		})
		return
	}

	// The quota passed checkQuota before the work started. If a concurrent
	// request drained it since, the card is still delivered; the user learns
	// about the empty balance on the next attempt.
	if err := b.quota.Consume(ctx, userID); err != nil && !errors.Is(err, quota.ErrExhausted) {
		logger.Log.Error().Err(err).Int64("user_id", userID).Msg("Failed to charge quota")
	}

	for _, chunk := range splitMessage(formatCard(card), maxMessageLength) {
		_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to send card")
			return
		}
	}
}

// generationErrorMessage maps API failures to user-facing text.
func generationErrorMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusGatewayTimeout:
			return "⏱️ Генерация заняла слишком много времени. Попробуйте ещё раз."
		case http.StatusBadGateway:
			return "😕 Не получилось составить качественную карточку. Попробуйте другое фото или более подробное описание."
		case http.StatusRequestEntityTooLarge:
			return "❌ Файл слишком большой."
		case http.StatusBadRequest:
			return "❌ Не удалось обработать запрос: " + apiErr.Message
		}
	}
	return "❌ Сервис генерации временно недоступен. Попробуйте позже."
}

// downloadPhoto fetches a Telegram photo by file id.
func (b *Bot) downloadPhoto(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, string, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file info: %w", err)
	}

	url := tg.FileDownloadLink(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.cfg.MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file body: %w", err)
	}
	if int64(len(data)) > b.cfg.MaxFileSize {
		return nil, "", fmt.Errorf("file exceeds the %d byte limit", b.cfg.MaxFileSize)
	}

	filename := path.Base(file.FilePath)
	if filename == "." || filename == "/" {
		filename = "photo.jpg"
	}
	return data, filename, nil
}
