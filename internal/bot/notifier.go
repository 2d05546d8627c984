package bot

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"cardgen/internal/logger"
	appmodels "cardgen/internal/models"
)

// Notifier delivers payment outcomes to users over Telegram. It backs
// the payment service's webhook and reconciliation paths.
type Notifier struct {
	tg TelegramAPI
}

// NewNotifier creates a Notifier over the given Telegram API.
func NewNotifier(tg TelegramAPI) *Notifier {
	return &Notifier{tg: tg}
}

// PaymentSucceeded tells the user their purchase was credited.
func (n *Notifier) PaymentSucceeded(ctx context.Context, userID int64, p *appmodels.Payment) {
	var text string
	if p.Kind == appmodels.PaymentKindPlan {
		plan, ok := appmodels.PlanByCode(p.PlanCode)
		if ok {
			text = fmt.Sprintf("✅ Оплата получена! Тариф %s активирован: %d генераций в месяц.\n\nБаланс: /status", plan.Label, plan.Quota)
		} else {
			text = "✅ Оплата получена! Тариф активирован.\n\nБаланс: /status"
		}
	} else {
		text = "✅ Оплата получена! Генерация зачислена.\n\nБаланс: /status"
	}

	_, err := n.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   text,
	})
	if err != nil {
		logger.Log.Error().Err(err).
			Int64("user_id", userID).
			Int64("payment_id", p.ID).
			Msg("Failed to send payment success notification")
	}
}

// PaymentCanceled tells the user their payment did not go through.
func (n *Notifier) PaymentCanceled(ctx context.Context, userID int64, p *appmodels.Payment) {
	_, err := n.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   "❌ Платёж отменён. Создать новый: /plans",
	})
	if err != nil {
		logger.Log.Error().Err(err).
			Int64("user_id", userID).
			Int64("payment_id", p.ID).
			Msg("Failed to send payment cancel notification")
	}
}
