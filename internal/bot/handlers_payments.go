package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"cardgen/internal/logger"
	appmodels "cardgen/internal/models"
	"cardgen/internal/payment"
)

const paymentsDisabledMsg = "💤 Оплата временно недоступна."

// oneTimeCode marks a one-time purchase in callback data, where plan
// purchases carry the plan code instead.
const oneTimeCode = "onetime"

// paymentMethods lists the supported payment instruments in display order.
var paymentMethods = []struct {
	Code  string
	Label string
}{
	{Code: "card", Label: "💳 Банковская карта"},
	{Code: "sbp", Label: "📱 СБП"},
	{Code: "yoomoney", Label: "👛 ЮMoney"},
}

// buildPlansKeyboard creates the plan selection keyboard.
func buildPlansKeyboard() *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, plan := range appmodels.Plans {
		label := fmt.Sprintf("%s — %d за %s ₽", plan.Label, plan.Quota, plan.PriceRUB.StringFixed(0))
		if plan.Recommended {
			label = "⭐ " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: label, CallbackData: "plan_" + plan.Code},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: fmt.Sprintf("🎯 1 генерация за %s ₽", appmodels.OneTimePriceRUB.StringFixed(0)), CallbackData: "plan_" + oneTimeCode},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// buildMethodsKeyboard creates the payment method keyboard for a purchase.
func buildMethodsKeyboard(code string) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, m := range paymentMethods {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: m.Label, CallbackData: fmt.Sprintf("pay_%s_%s", code, m.Code)},
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handlePlans handles the /plans command.
func (b *Bot) handlePlans(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePlansCore(ctx, tgBot, update)
}

// handlePlansCore is the testable implementation of handlePlans.
func (b *Bot) handlePlansCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	if b.purchases == nil || !b.purchases.Enabled() {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   paymentsDisabledMsg,
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Тарифы</b>\n\n")
	for _, plan := range appmodels.Plans {
		fmt.Fprintf(&sb, "%s — %d генераций за %s ₽ (%s ₽/шт)\n",
			plan.Label, plan.Quota, plan.PriceRUB.StringFixed(0), plan.PricePerRequest().StringFixed(0))
	}
	fmt.Fprintf(&sb, "\n🎯 Разовая генерация — %s ₽\n", appmodels.OneTimePriceRUB.StringFixed(0))
	sb.WriteString("\nКвота тарифа обновляется 1 числа каждого месяца.")

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        sb.String(),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildPlansKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /plans response")
	}
}

// handleBuy handles the /buy command for a one-time purchase.
func (b *Bot) handleBuy(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBuyCore(ctx, tgBot, update)
}

// handleBuyCore is the testable implementation of handleBuy.
func (b *Bot) handleBuyCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	if b.purchases == nil || !b.purchases.Enabled() {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   paymentsDisabledMsg,
		})
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: fmt.Sprintf("🎯 Разовая генерация — %s ₽\n\nВыберите способ оплаты:",
			appmodels.OneTimePriceRUB.StringFixed(0)),
		ReplyMarkup: buildMethodsKeyboard(oneTimeCode),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /buy response")
	}
}

// handlePlanCallback handles plan selection buttons.
func (b *Bot) handlePlanCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePlanCallbackCore(ctx, tgBot, update)
}

// handlePlanCallbackCore is the testable implementation of handlePlanCallback.
func (b *Bot) handlePlanCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	code := strings.TrimPrefix(update.CallbackQuery.Data, "plan_")
	chatID := update.CallbackQuery.Message.Message.Chat.ID
	messageID := update.CallbackQuery.Message.Message.ID

	var header string
	if code == oneTimeCode {
		header = fmt.Sprintf("🎯 Разовая генерация — %s ₽", appmodels.OneTimePriceRUB.StringFixed(0))
	} else {
		plan, ok := appmodels.PlanByCode(code)
		if !ok {
			logger.Log.Error().Str("data", update.CallbackQuery.Data).Msg("Unknown plan in callback")
			return
		}
		header = fmt.Sprintf("%s — %d генераций за %s ₽", plan.Label, plan.Quota, plan.PriceRUB.StringFixed(0))
	}

	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        header + "\n\nВыберите способ оплаты:",
		ReplyMarkup: buildMethodsKeyboard(code),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to edit plan message")
	}
}

// handlePayCallback handles payment method selection and creates the
// gateway payment.
func (b *Bot) handlePayCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePayCallbackCore(ctx, tgBot, update)
}

// handlePayCallbackCore is the testable implementation of handlePayCallback.
func (b *Bot) handlePayCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	// Callback format: pay_<code>_<method>
	parts := strings.Split(update.CallbackQuery.Data, "_")
	if len(parts) != 3 {
		logger.Log.Error().Str("data", update.CallbackQuery.Data).Msg("Invalid pay callback format")
		return
	}
	code, method := parts[1], parts[2]

	userID := update.CallbackQuery.From.ID
	chatID := update.CallbackQuery.Message.Message.Chat.ID
	messageID := update.CallbackQuery.Message.Message.ID

	if b.purchases == nil || !b.purchases.Enabled() {
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      paymentsDisabledMsg,
		})
		return
	}

	var p *appmodels.Payment
	var err error
	if code == oneTimeCode {
		p, err = b.purchases.PurchaseOneTime(ctx, userID, method)
	} else {
		p, err = b.purchases.PurchasePlan(ctx, userID, code, method)
	}
	if err != nil {
		logger.Log.Error().Err(err).
			Int64("user_id", userID).
			Str("code", code).
			Msg("Failed to create purchase")
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      "❌ Не удалось создать платёж. Попробуйте позже.",
		})
		return
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "💳 Перейти к оплате", URL: p.ConfirmationURL}},
			{{Text: "✅ Я оплатил", CallbackData: fmt.Sprintf("check_%d", p.ID)}},
		},
	}

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text: fmt.Sprintf(`💳 Счёт на %s ₽ создан.

Оплатите по кнопке ниже, затем нажмите «Я оплатил».
Счёт действителен 24 часа.`, p.Amount.StringFixed(0)),
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send payment link")
	}
}

// handleCheckCallback handles the manual payment check button.
func (b *Bot) handleCheckCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCheckCallbackCore(ctx, tgBot, update)
}

// handleCheckCallbackCore is the testable implementation of handleCheckCallback.
func (b *Bot) handleCheckCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	paymentID, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, "check_"), 10, 64)
	if err != nil {
		logger.Log.Error().Str("data", update.CallbackQuery.Data).Msg("Invalid check callback format")
		return
	}

	userID := update.CallbackQuery.From.ID
	chatID := update.CallbackQuery.Message.Message.Chat.ID
	messageID := update.CallbackQuery.Message.Message.ID

	if b.purchases == nil {
		return
	}

	p, err := b.purchases.Check(ctx, paymentID)
	switch {
	case errors.Is(err, payment.ErrNotPaid):
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Платёж ещё не подтверждён. Попробуйте через минуту.",
			ShowAlert:       true,
		})
		return
	case err != nil:
		logger.Log.Error().Err(err).
			Int64("payment_id", paymentID).
			Int64("user_id", userID).
			Msg("Payment check failed")
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Не удалось проверить платёж. Попробуйте позже.",
			ShowAlert:       true,
		})
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	if p.UserID != userID {
		logger.Log.Warn().
			Int64("user_id", userID).
			Int64("payment_id", paymentID).
			Msg("User mismatch on payment check")
		return
	}

	var text string
	switch p.Status {
	case appmodels.PaymentStatusSucceeded:
		text = "✅ Оплата получена! Генерации зачислены.\n\nБаланс: /status"
	case appmodels.PaymentStatusCanceled:
		text = "❌ Платёж отменён. Создать новый: /plans"
	default:
		text = "⏳ Платёж в обработке. Попробуйте проверить позже."
	}

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to edit payment status message")
	}
}
