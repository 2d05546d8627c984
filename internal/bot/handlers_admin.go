package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"cardgen/internal/logger"
)

// handleAdminStats handles the /stats command.
func (b *Bot) handleAdminStats(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAdminStatsCore(ctx, tgBot, update)
}

// handleAdminStatsCore is the testable implementation of handleAdminStats.
func (b *Bot) handleAdminStatsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if !b.cfg.IsAdmin(userID) {
		logger.Log.Warn().Int64("user_id", userID).Msg("Non-admin /stats attempt")
		return
	}

	userCount, err := b.users.Count(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to count users")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось собрать статистику.",
		})
		return
	}

	stats, err := b.paymentRepo.GetStats(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load payment stats")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось собрать статистику.",
		})
		return
	}

	text := fmt.Sprintf(`📊 <b>Статистика</b>

👥 Пользователей: %d
💳 Успешных оплат: %d
💰 Выручка: %s ₽`,
		userCount, stats.Succeeded, stats.Revenue.StringFixed(2))

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /stats response")
	}
}

// handleAdminGrant handles the /grant command: /grant <user_id> <count>.
func (b *Bot) handleAdminGrant(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAdminGrantCore(ctx, tgBot, update)
}

// handleAdminGrantCore is the testable implementation of handleAdminGrant.
func (b *Bot) handleAdminGrantCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if !b.cfg.IsAdmin(userID) {
		logger.Log.Warn().Int64("user_id", userID).Msg("Non-admin /grant attempt")
		return
	}

	args := strings.Fields(extractCommandArgs(update.Message.Text, "/grant"))
	if len(args) != 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "Использование: <code>/grant &lt;user_id&gt; &lt;количество&gt;</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Некорректный user_id.",
		})
		return
	}

	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Количество должно быть положительным числом.",
		})
		return
	}

	if err := b.quota.AddExtra(ctx, targetID, count); err != nil {
		logger.Log.Error().Err(err).
			Int64("target_id", targetID).
			Int("count", count).
			Msg("Failed to grant requests")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось начислить генерации.",
		})
		return
	}

	logger.Log.Info().
		Int64("admin_id", userID).
		Int64("target_id", targetID).
		Int("count", count).
		Msg("Requests granted")

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ Пользователю %d начислено генераций: %d.", targetID, count),
	})
}
