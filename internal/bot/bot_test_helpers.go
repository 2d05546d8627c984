package bot

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cardgen/internal/config"
	"cardgen/internal/database"
	appmodels "cardgen/internal/models"
	"cardgen/internal/payment"
	"cardgen/internal/quota"
	"cardgen/internal/ratelimit"
	"cardgen/internal/repository"
	"cardgen/internal/yookassa"
)

// fakeCardAPI implements cardAPI with scripted results.
type fakeCardAPI struct {
	card *appmodels.Card
	err  error

	textCalls  int
	imageCalls int
	bothCalls  int
	gotText    string
}

func (f *fakeCardAPI) GenerateFromText(_ context.Context, text string) (*appmodels.Card, error) {
	f.textCalls++
	f.gotText = text
	return f.card, f.err
}

func (f *fakeCardAPI) GenerateFromImage(_ context.Context, _ []byte, _ string) (*appmodels.Card, error) {
	f.imageCalls++
	return f.card, f.err
}

func (f *fakeCardAPI) GenerateFromBoth(_ context.Context, _ []byte, _, text string) (*appmodels.Card, error) {
	f.bothCalls++
	f.gotText = text
	return f.card, f.err
}

func (f *fakeCardAPI) Health(_ context.Context) error {
	return nil
}

// stubGateway implements payment.Gateway for handler tests.
type stubGateway struct {
	nextID   int
	statuses map[string]string
}

func newStubGateway() *stubGateway {
	return &stubGateway{statuses: make(map[string]string)}
}

func (g *stubGateway) CreatePayment(_ context.Context, amount decimal.Decimal, _, _, _ string, _ map[string]string) (*yookassa.Payment, error) {
	g.nextID++
	id := fmt.Sprintf("gw-%d", g.nextID)
	g.statuses[id] = yookassa.StatusPending
	return &yookassa.Payment{
		ID:     id,
		Status: yookassa.StatusPending,
		Amount: yookassa.Amount{Value: amount.StringFixed(2), Currency: appmodels.Currency},
		Confirmation: &yookassa.Confirmation{
			Type:            "redirect",
			ConfirmationURL: "https://yoomoney.ru/checkout/" + id,
		},
	}, nil
}

func (g *stubGateway) GetPayment(_ context.Context, paymentID string) (*yookassa.Payment, error) {
	status, ok := g.statuses[paymentID]
	if !ok {
		return nil, &yookassa.GatewayError{StatusCode: 404, Code: "not_found"}
	}
	return &yookassa.Payment{ID: paymentID, Status: status}, nil
}

// testBot wires a Bot over a test transaction with fakes for the API and
// the payment gateway.
type testBot struct {
	bot     *Bot
	api     *fakeCardAPI
	gateway *stubGateway
	quota   *quota.Service
}

// setupTestBot creates a Bot instance for testing with database.
func setupTestBot(t *testing.T) *testBot {
	t.Helper()

	tx := database.TestTx(t)

	cfg := &config.Config{
		BotToken:      "test-token",
		AdminIDs:      []int64{999},
		MaxFileSize:   1 << 20,
		MaxTextLength: 100,
	}

	subs := repository.NewSubscriptionRepository(tx)
	quotaSvc := quota.NewService(subs)
	payRepo := repository.NewPaymentRepository(tx)
	gateway := newStubGateway()
	purchases := payment.NewService(tx, payRepo, quotaSvc, gateway, "https://t.me/cardgen_bot")

	api := &fakeCardAPI{card: &appmodels.Card{
		Title:            "Плед флисовый 150x200",
		ShortDescription: "Мягкий и тёплый плед.",
		Features:         []string{"Флис", "150x200 см"},
		SEOKeywords:      []string{"плед", "плед флисовый"},
		TargetAudience:   []string{"Для дома", "В подарок"},
	}}

	b := &Bot{
		cfg:         cfg,
		users:       repository.NewUserRepository(tx),
		paymentRepo: payRepo,
		quota:       quotaSvc,
		purchases:   purchases,
		api:         api,
		limiter:     ratelimit.New(RequestsPerMinute, time.Minute),
		sessions:    newSessionStore(),
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}

	return &testBot{bot: b, api: api, gateway: gateway, quota: quotaSvc}
}

// seedUser inserts a user row so ledger and payment FKs resolve.
func (tb *testBot) seedUser(t *testing.T, userID int64) {
	t.Helper()
	err := tb.bot.users.Upsert(context.Background(), &appmodels.User{ID: userID, Username: "tester"})
	require.NoError(t, err)
}
