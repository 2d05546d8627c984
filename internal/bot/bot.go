// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"

	"cardgen/internal/config"
	"cardgen/internal/logger"
	"cardgen/internal/models"
	"cardgen/internal/payment"
	"cardgen/internal/quota"
	"cardgen/internal/ratelimit"
	"cardgen/internal/repository"
)

// RequestsPerMinute is the per-user limit on bot updates.
const RequestsPerMinute = 30

// cardAPI is the generation API surface the bot depends on.
type cardAPI interface {
	GenerateFromText(ctx context.Context, text string) (*models.Card, error)
	GenerateFromImage(ctx context.Context, image []byte, filename string) (*models.Card, error)
	GenerateFromBoth(ctx context.Context, image []byte, filename, text string) (*models.Card, error)
	Health(ctx context.Context) error
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot         *bot.Bot
	cfg         *config.Config
	users       *repository.UserRepository
	paymentRepo *repository.PaymentRepository
	quota       *quota.Service
	purchases   *payment.Service
	api         cardAPI
	limiter     *ratelimit.Limiter
	sessions    *sessionStore
	httpClient  *http.Client
}

// New creates a new Bot instance.
func New(cfg *config.Config, pool *pgxpool.Pool, quotaSvc *quota.Service, purchases *payment.Service, api cardAPI) (*Bot, error) {
	b := &Bot{
		cfg:         cfg,
		users:       repository.NewUserRepository(pool),
		paymentRepo: repository.NewPaymentRepository(pool),
		quota:       quotaSvc,
		purchases:   purchases,
		api:         api,
		limiter:     ratelimit.New(RequestsPerMinute, time.Minute),
		sessions:    newSessionStore(),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.rateLimitMiddleware, b.registerMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

// Start begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// Notifier returns a payment notifier backed by this bot.
func (b *Bot) Notifier() *Notifier {
	return &Notifier{tg: b.bot}
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/card", bot.MatchTypePrefix, b.handleCard)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, b.handleStatus)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/plans", bot.MatchTypePrefix, b.handlePlans)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/buy", bot.MatchTypePrefix, b.handleBuy)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, b.handleAdminStats)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/grant", bot.MatchTypePrefix, b.handleAdminGrant)

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "mode_", bot.MatchTypePrefix, b.handleModeCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "plan_", bot.MatchTypePrefix, b.handlePlanCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "pay_", bot.MatchTypePrefix, b.handlePayCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "check_", bot.MatchTypePrefix, b.handleCheckCallback)
}

// rateLimitMiddleware drops updates from users exceeding the per-minute
// limit.
func (b *Bot) rateLimitMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		if !b.limiter.Allow(fmt.Sprintf("%d", userID)) {
			logger.Log.Warn().
				Int64("user_id", userID).
				Msg("Rate limited user update")
			if update.Message != nil {
				retry := b.limiter.Retry(fmt.Sprintf("%d", userID))
				_, _ = tgBot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   fmt.Sprintf("⏳ Слишком много запросов. Попробуйте через %d сек.", int(retry.Seconds())+1),
				})
			}
			return
		}

		next(ctx, tgBot, update)
	}
}

// registerMiddleware upserts the user record and logs the action before
// handing the update to handlers.
func (b *Bot) registerMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		logUserAction(userID, extractUsername(update), update)

		if err := b.ensureUserRegistered(ctx, update); err != nil {
			logger.Log.Error().
				Int64("user_id", userID).
				Err(err).
				Msg("Failed to register user")
		}

		next(ctx, tgBot, update)
	}
}

// logUserAction logs the user's input/action.
func logUserAction(userID int64, username string, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Int64("user_id", userID).
			Str("username", username).
			Int64("chat_id", msg.Chat.ID)

		if msg.Text != "" {
			event = event.Str("text", logger.SanitizeText(msg.Text))
		}
		if len(msg.Photo) > 0 {
			event = event.Str("type", "photo")
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Int64("user_id", userID).
			Str("username", username).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// ensureUserRegistered creates or updates the user record.
func (b *Bot) ensureUserRegistered(ctx context.Context, update *tgmodels.Update) error {
	var user *models.User

	if update.Message != nil && update.Message.From != nil {
		from := update.Message.From
		user = &models.User{
			ID:        from.ID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		}
	} else if update.CallbackQuery != nil {
		from := update.CallbackQuery.From
		user = &models.User{
			ID:        from.ID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		}
	}

	if user == nil {
		return nil
	}

	if err := b.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// defaultHandler routes photos and plain text to card generation.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	switch {
	case len(update.Message.Photo) > 0:
		b.handlePhotoCore(ctx, tgBot, update)
	case update.Message.Text != "":
		b.handleTextCore(ctx, tgBot, update)
	}
}
