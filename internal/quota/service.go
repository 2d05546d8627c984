// Package quota implements the per-user request ledger: a lifetime free
// allowance, purchased one-time requests and monthly plan quotas.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardgen/internal/database"
	"cardgen/internal/logger"
	"cardgen/internal/models"
	"cardgen/internal/repository"
)

// ErrExhausted is returned when a user has no requests left to consume.
var ErrExhausted = errors.New("request quota exhausted")

// ErrUnknownPlan is returned for plan codes missing from the pricing table.
var ErrUnknownPlan = errors.New("unknown plan code")

// Service manages user request balances.
type Service struct {
	subs *repository.SubscriptionRepository
	now  func() time.Time
}

// NewService creates a quota Service.
func NewService(subs *repository.SubscriptionRepository) *Service {
	return &Service{subs: subs, now: time.Now}
}

// NewServiceWithClock creates a Service with a custom clock for tests.
func NewServiceWithClock(subs *repository.SubscriptionRepository, now func() time.Time) *Service {
	return &Service{subs: subs, now: now}
}

// WithTx returns a copy of the service whose writes run inside the given
// transaction.
func (s *Service) WithTx(tx database.PGXDB) *Service {
	return &Service{subs: s.subs.WithTx(tx), now: s.now}
}

// Status returns the current ledger snapshot, applying the monthly plan
// reset first when it is due.
func (s *Service) Status(ctx context.Context, userID int64) (*models.Subscription, error) {
	return s.ensureCycle(ctx, userID)
}

// CanConsume reports whether the user has at least one request available.
func (s *Service) CanConsume(ctx context.Context, userID int64) (bool, error) {
	sub, err := s.ensureCycle(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.Remaining() > 0, nil
}

// Consume spends one request. Order: lifetime free allowance first, then
// purchased one-time requests, then the monthly plan quota.
func (s *Service) Consume(ctx context.Context, userID int64) error {
	sub, err := s.ensureCycle(ctx, userID)
	if err != nil {
		return err
	}

	switch {
	case sub.FreeLeft() > 0:
		return s.subs.IncrementFreeUsed(ctx, userID)
	case sub.ExtraRemain > 0:
		return s.subs.DecrementExtra(ctx, userID)
	case sub.PlanRemain > 0:
		return s.subs.DecrementPlan(ctx, userID)
	default:
		return ErrExhausted
	}
}

// SetPlan activates a plan from the pricing table with a full quota.
func (s *Service) SetPlan(ctx context.Context, userID int64, planCode string) error {
	plan, ok := models.PlanByCode(planCode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, planCode)
	}

	if _, err := s.subs.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	nextReset := NextMonthStart(s.now())
	if err := s.subs.SetPlan(ctx, userID, plan.Code, plan.Quota, nextReset); err != nil {
		return err
	}

	logger.Log.Info().
		Int64("user_id", userID).
		Str("plan", plan.Code).
		Time("next_reset", nextReset).
		Msg("Plan activated")
	return nil
}

// AddExtra credits purchased one-time requests.
func (s *Service) AddExtra(ctx context.Context, userID int64, count int) error {
	if count <= 0 {
		return fmt.Errorf("extra request count must be positive, got %d", count)
	}
	if _, err := s.subs.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	return s.subs.AddExtra(ctx, userID, count)
}

// ensureCycle refills the monthly plan quota when the reset deadline has
// passed, then returns the fresh ledger row.
func (s *Service) ensureCycle(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, err := s.subs.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sub.Plan == "" || sub.NextResetAt.IsZero() {
		return sub, nil
	}

	now := s.now()
	if now.Before(sub.NextResetAt) {
		return sub, nil
	}

	plan, ok := models.PlanByCode(sub.Plan)
	if !ok {
		// Plan removed from the pricing table; leave the ledger as is.
		logger.Log.Warn().
			Int64("user_id", userID).
			Str("plan", sub.Plan).
			Msg("Active plan missing from pricing table, skipping reset")
		return sub, nil
	}

	nextReset := NextMonthStart(now)
	if err := s.subs.ResetPlanQuota(ctx, userID, plan.Quota, nextReset); err != nil {
		return nil, err
	}

	sub.PlanRemain = plan.Quota
	sub.NextResetAt = nextReset
	return sub, nil
}

// NextMonthStart returns the first day of the following month, 00:00 UTC.
func NextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	year, month := now.Year(), now.Month()
	if month == time.December {
		return time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
}
