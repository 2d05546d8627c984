package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"cardgen/internal/logger"
	appmodels "cardgen/internal/models"
)

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// escapeHTML escapes HTML special characters for safe interpolation in Telegram HTML messages.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Привет%s!

Я генерирую продающие карточки товаров для маркетплейсов: заголовок, описания, характеристики и SEO-ключи.

<b>Как начать:</b>
• Пришлите фото товара, и я составлю карточку по снимку
• Или опишите товар текстом
• Фото с подписью — учту и снимок, и описание
• /card — выбрать режим вручную

Бесплатно доступно %d генерации. Тарифы — /plans.`,
		formatGreeting(firstName), appmodels.FreeRequests)

	logger.Log.Debug().Int64("chat_id", update.Message.Chat.ID).Msg("Sending /start response")
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /start response")
	}
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `<b>Команды</b>

/card — создать карточку товара
/status — остаток генераций
/plans — тарифы и цены
/buy — купить одну генерацию
/help — эта справка

<b>Быстрый ввод</b>

📷 Фото товара — карточка по снимку
📝 Текст — карточка по описанию
📷 + подпись — по снимку и описанию сразу

Поддерживаются фото jpg, jpeg, png и webp.`

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /help response")
	}
}

// buildModeKeyboard creates the generation mode selection keyboard.
func buildModeKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📷 По фото", CallbackData: "mode_image_only"},
				{Text: "📝 По описанию", CallbackData: "mode_text_only"},
			},
			{
				{Text: "📷+📝 Фото и описание", CallbackData: "mode_both"},
			},
		},
	}
}

// handleCard handles the /card command.
func (b *Bot) handleCard(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCardCore(ctx, tgBot, update)
}

// handleCardCore is the testable implementation of handleCard.
func (b *Bot) handleCardCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "Из чего собрать карточку?",
		ReplyMarkup: buildModeKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /card response")
	}
}

// handleModeCallback handles generation mode selection buttons.
func (b *Bot) handleModeCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleModeCallbackCore(ctx, tgBot, update)
}

// handleModeCallbackCore is the testable implementation of handleModeCallback.
func (b *Bot) handleModeCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	mode := appmodels.ContentType(strings.TrimPrefix(update.CallbackQuery.Data, "mode_"))
	if !mode.Valid() {
		logger.Log.Error().Str("data", update.CallbackQuery.Data).Msg("Invalid mode callback")
		return
	}

	userID := update.CallbackQuery.From.ID
	chatID := update.CallbackQuery.Message.Message.Chat.ID
	messageID := update.CallbackQuery.Message.Message.ID

	b.sessions.SetMode(userID, mode)

	var prompt string
	switch mode {
	case appmodels.ContentTypeImageOnly:
		prompt = "📷 Пришлите фото товара."
	case appmodels.ContentTypeTextOnly:
		prompt = "📝 Опишите товар одним сообщением."
	default:
		prompt = "📷 Пришлите фото товара, затем я попрошу описание.\nМожно сразу отправить фото с подписью."
	}

	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      prompt,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to edit mode prompt")
	}
}

// handleStatus handles the /status command.
func (b *Bot) handleStatus(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatusCore(ctx, tgBot, update)
}

// handleStatusCore is the testable implementation of handleStatus.
func (b *Bot) handleStatusCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	sub, err := b.quota.Status(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load quota status")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось получить баланс. Попробуйте ещё раз.",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Ваш баланс</b>\n\n")
	fmt.Fprintf(&sb, "🎁 Бесплатные: %d из %d\n", sub.FreeLeft(), appmodels.FreeRequests)
	fmt.Fprintf(&sb, "💎 Разовые: %d\n", sub.ExtraRemain)

	if sub.Plan != "" {
		plan, ok := appmodels.PlanByCode(sub.Plan)
		label := sub.Plan
		if ok {
			label = plan.Label
		}
		fmt.Fprintf(&sb, "📦 Тариф %s: %d\n", escapeHTML(label), sub.PlanRemain)
		if !sub.NextResetAt.IsZero() {
			fmt.Fprintf(&sb, "🔄 Обновление квоты: %s\n", sub.NextResetAt.Format("02.01.2006"))
		}
	} else {
		sb.WriteString("📦 Тариф: нет\n")
	}

	fmt.Fprintf(&sb, "\nВсего доступно: <b>%d</b>", sub.Remaining())
	if sub.Remaining() == 0 {
		sb.WriteString("\n\nКупить генерации: /plans")
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /status response")
	}
}
