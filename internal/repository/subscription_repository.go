package repository

import (
	"context"
	"fmt"
	"time"

	"cardgen/internal/database"
	"cardgen/internal/models"
)

// SubscriptionRepository handles the per-user request ledger.
type SubscriptionRepository struct {
	db database.PGXDB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db database.PGXDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *SubscriptionRepository) WithTx(tx database.PGXDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

// GetOrCreate returns the ledger row for a user, inserting an empty one
// when the user has none yet.
func (r *SubscriptionRepository) GetOrCreate(ctx context.Context, userID int64) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		nextReset *time.Time
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, plan, free_used, extra_remaining, plan_remaining, next_reset_at, updated_at
	`, userID).Scan(&sub.UserID, &sub.Plan, &sub.FreeUsed, &sub.ExtraRemain, &sub.PlanRemain, &nextReset, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if nextReset != nil {
		sub.NextResetAt = *nextReset
	}
	return &sub, nil
}

// IncrementFreeUsed consumes one request from the lifetime free quota.
func (r *SubscriptionRepository) IncrementFreeUsed(ctx context.Context, userID int64) error {
	return r.exec(ctx, `
		UPDATE subscriptions SET free_used = free_used + 1, updated_at = NOW()
		WHERE user_id = $1
	`, userID)
}

// DecrementExtra consumes one purchased one-time request.
func (r *SubscriptionRepository) DecrementExtra(ctx context.Context, userID int64) error {
	return r.exec(ctx, `
		UPDATE subscriptions
		SET extra_remaining = extra_remaining - 1, updated_at = NOW()
		WHERE user_id = $1 AND extra_remaining > 0
	`, userID)
}

// DecrementPlan consumes one request from the monthly plan quota.
func (r *SubscriptionRepository) DecrementPlan(ctx context.Context, userID int64) error {
	return r.exec(ctx, `
		UPDATE subscriptions
		SET plan_remaining = plan_remaining - 1, updated_at = NOW()
		WHERE user_id = $1 AND plan_remaining > 0
	`, userID)
}

// AddExtra credits purchased one-time requests.
func (r *SubscriptionRepository) AddExtra(ctx context.Context, userID int64, count int) error {
	return r.exec(ctx, `
		UPDATE subscriptions
		SET extra_remaining = extra_remaining + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, count)
}

// SetPlan activates a plan with a full quota and a reset deadline.
func (r *SubscriptionRepository) SetPlan(ctx context.Context, userID int64, plan string, quota int, nextReset time.Time) error {
	return r.exec(ctx, `
		UPDATE subscriptions
		SET plan = $2, plan_remaining = $3, next_reset_at = $4, updated_at = NOW()
		WHERE user_id = $1
	`, userID, plan, quota, nextReset)
}

// ResetPlanQuota refills the monthly quota and advances the reset deadline.
func (r *SubscriptionRepository) ResetPlanQuota(ctx context.Context, userID int64, quota int, nextReset time.Time) error {
	return r.exec(ctx, `
		UPDATE subscriptions
		SET plan_remaining = $2, next_reset_at = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, quota, nextReset)
}

func (r *SubscriptionRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
