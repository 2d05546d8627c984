// Package payment orchestrates purchases: it creates gateway payments,
// applies confirmed ones to the user's request ledger and reconciles
// payments the webhook missed.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cardgen/internal/database"
	"cardgen/internal/logger"
	"cardgen/internal/models"
	"cardgen/internal/quota"
	"cardgen/internal/repository"
	"cardgen/internal/yookassa"
)

// PendingTTL is how long a payment may stay unpaid before it is expired.
const PendingTTL = 24 * time.Hour

// ErrPaymentsDisabled is returned when gateway credentials are not set.
var ErrPaymentsDisabled = errors.New("payments are not configured")

// ErrNotPaid is returned by Check when the gateway still reports the
// payment as unpaid.
var ErrNotPaid = errors.New("payment not completed yet")

// Gateway is the payment provider surface the service needs.
type Gateway interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, description, returnURL, methodType string, metadata map[string]string) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
}

// Notifier delivers payment outcomes to the user, typically over Telegram.
// A nil Notifier disables notifications.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, userID int64, p *models.Payment)
	PaymentCanceled(ctx context.Context, userID int64, p *models.Payment)
}

// Service manages the payment lifecycle.
type Service struct {
	db        database.TxBeginner
	payments  *repository.PaymentRepository
	quota     *quota.Service
	gateway   Gateway
	notifier  Notifier
	returnURL string
	now       func() time.Time
}

// NewService creates a payment Service. A nil gateway disables purchases.
func NewService(db database.TxBeginner, payments *repository.PaymentRepository, quotaSvc *quota.Service, gateway Gateway, returnURL string) *Service {
	return &Service{
		db:        db,
		payments:  payments,
		quota:     quotaSvc,
		gateway:   gateway,
		returnURL: returnURL,
		now:       time.Now,
	}
}

// SetNotifier attaches the notification sink. Called after the bot is
// built to break the bot/payment construction cycle.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Enabled reports whether a payment gateway is configured.
func (s *Service) Enabled() bool {
	return s.gateway != nil
}

// PurchasePlan starts a plan subscription purchase and returns the local
// payment plus the gateway checkout URL.
func (s *Service) PurchasePlan(ctx context.Context, userID int64, planCode, method string) (*models.Payment, error) {
	plan, ok := models.PlanByCode(planCode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", quota.ErrUnknownPlan, planCode)
	}

	description := fmt.Sprintf("Тариф %s: %d генераций в месяц", plan.Label, plan.Quota)
	return s.purchase(ctx, &models.Payment{
		UserID:   userID,
		Kind:     models.PaymentKindPlan,
		PlanCode: plan.Code,
		Amount:   plan.PriceRUB,
	}, description, method)
}

// PurchaseOneTime starts a single extra request purchase.
func (s *Service) PurchaseOneTime(ctx context.Context, userID int64, method string) (*models.Payment, error) {
	return s.purchase(ctx, &models.Payment{
		UserID: userID,
		Kind:   models.PaymentKindOneTime,
		Amount: models.OneTimePriceRUB,
	}, "Разовая генерация карточки товара", method)
}

func (s *Service) purchase(ctx context.Context, p *models.Payment, description, method string) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	p.Status = models.PaymentStatusNew
	id, err := s.payments.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	p.ID = id

	gw, err := s.gateway.CreatePayment(ctx, p.Amount, description, s.returnURL, yookassa.MethodType(method), map[string]string{
		"payment_id": fmt.Sprintf("%d", p.ID),
		"user_id":    fmt.Sprintf("%d", p.UserID),
	})
	if err != nil {
		return nil, fmt.Errorf("gateway payment creation failed: %w", err)
	}

	confirmationURL := ""
	if gw.Confirmation != nil {
		confirmationURL = gw.Confirmation.ConfirmationURL
	}
	if err := s.payments.AttachGateway(ctx, p.ID, gw.ID, confirmationURL); err != nil {
		return nil, fmt.Errorf("failed to attach gateway payment: %w", err)
	}

	p.GatewayID = gw.ID
	p.Status = models.PaymentStatusPending
	p.ConfirmationURL = confirmationURL

	logger.Log.Info().
		Int64("payment_id", p.ID).
		Int64("user_id", p.UserID).
		Str("kind", p.Kind).
		Str("gateway_id", logger.MaskPaymentID(gw.ID)).
		Str("amount", p.Amount.StringFixed(2)).
		Msg("Payment created")
	return p, nil
}

// Confirm marks a gateway payment succeeded and credits the purchase.
// Repeat confirmations of the same payment are no-ops. The status flip and
// the crediting commit together: a failed credit leaves the payment pending
// so the reconciler retries it.
func (s *Service) Confirm(ctx context.Context, gatewayID string) error {
	p, err := s.payments.GetByGatewayID(ctx, gatewayID)
	if err != nil {
		return fmt.Errorf("unknown gateway payment %s: %w", logger.MaskPaymentID(gatewayID), err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin confirm transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// MarkStatus only transitions non-terminal rows, making repeated
	// webhook deliveries safe.
	err = s.payments.WithTx(tx).MarkStatus(ctx, p.ID, models.PaymentStatusSucceeded)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Log.Debug().
			Int64("payment_id", p.ID).
			Msg("Payment already finalized, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.credit(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit confirm transaction: %w", err)
	}

	logger.Log.Info().
		Int64("payment_id", p.ID).
		Int64("user_id", p.UserID).
		Str("kind", p.Kind).
		Msg("Payment confirmed")

	if s.notifier != nil {
		p.Status = models.PaymentStatusSucceeded
		s.notifier.PaymentSucceeded(ctx, p.UserID, p)
	}
	return nil
}

// Cancel marks a gateway payment canceled.
func (s *Service) Cancel(ctx context.Context, gatewayID string) error {
	p, err := s.payments.GetByGatewayID(ctx, gatewayID)
	if err != nil {
		return fmt.Errorf("unknown gateway payment %s: %w", logger.MaskPaymentID(gatewayID), err)
	}

	err = s.payments.MarkStatus(ctx, p.ID, models.PaymentStatusCanceled)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int64("payment_id", p.ID).
		Int64("user_id", p.UserID).
		Msg("Payment canceled")

	if s.notifier != nil {
		p.Status = models.PaymentStatusCanceled
		s.notifier.PaymentCanceled(ctx, p.UserID, p)
	}
	return nil
}

// Check polls the gateway for a local payment and applies the result.
// Used by the bot's manual "check payment" button.
func (s *Service) Check(ctx context.Context, paymentID int64) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusSucceeded || p.Status == models.PaymentStatusCanceled {
		return p, nil
	}
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if p.GatewayID == "" {
		return nil, ErrNotPaid
	}

	gw, err := s.gateway.GetPayment(ctx, p.GatewayID)
	if err != nil {
		return nil, fmt.Errorf("gateway status check failed: %w", err)
	}

	switch gw.Status {
	case yookassa.StatusSucceeded:
		if err := s.Confirm(ctx, p.GatewayID); err != nil {
			return nil, err
		}
		p.Status = models.PaymentStatusSucceeded
		return p, nil
	case yookassa.StatusCanceled:
		if err := s.Cancel(ctx, p.GatewayID); err != nil {
			return nil, err
		}
		p.Status = models.PaymentStatusCanceled
		return p, nil
	default:
		return p, ErrNotPaid
	}
}

// credit applies a confirmed purchase to the user's ledger inside the
// confirm transaction.
func (s *Service) credit(ctx context.Context, tx database.PGXDB, p *models.Payment) error {
	quotaTx := s.quota.WithTx(tx)
	switch p.Kind {
	case models.PaymentKindPlan:
		return quotaTx.SetPlan(ctx, p.UserID, p.PlanCode)
	case models.PaymentKindOneTime:
		return quotaTx.AddExtra(ctx, p.UserID, 1)
	default:
		return fmt.Errorf("unknown payment kind %q", p.Kind)
	}
}
