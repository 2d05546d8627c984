package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cardgen/internal/database"
	"cardgen/internal/models"
)

// PaymentRepository handles purchase records.
type PaymentRepository struct {
	db database.PGXDB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db database.PGXDB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PaymentRepository) WithTx(tx database.PGXDB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// Create inserts a new payment row and returns its id.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (user_id, kind, plan_code, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, p.UserID, p.Kind, p.PlanCode, p.Amount, p.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}
	return id, nil
}

// AttachGateway stores the gateway payment id and confirmation URL and
// moves the payment to pending.
func (r *PaymentRepository) AttachGateway(ctx context.Context, id int64, gatewayID, confirmationURL string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET gateway_id = $2, confirmation_url = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`, id, gatewayID, confirmationURL, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to attach gateway payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByGatewayID retrieves a payment by the gateway's payment id.
func (r *PaymentRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectPayment+` WHERE gateway_id = $1`, gatewayID))
}

// GetByID retrieves a payment by its internal id.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectPayment+` WHERE id = $1`, id))
}

// MarkStatus transitions a payment to the given status, but only from a
// non-terminal one. Returns ErrNotFound when no transition happened, which
// callers use for idempotency.
func (r *PaymentRepository) MarkStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`, id, status, models.PaymentStatusNew, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending returns pending payments created after the cutoff, oldest
// first. The reconciliation poller re-checks these against the gateway.
func (r *PaymentRepository) ListPending(ctx context.Context, createdAfter time.Time, limit int) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx, selectPayment+`
		WHERE status = $1 AND gateway_id <> '' AND created_at > $2
		ORDER BY created_at ASC
		LIMIT $3
	`, models.PaymentStatusPending, createdAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending payments: %w", err)
	}
	return payments, nil
}

// ExpirePendingBefore cancels pending payments older than the cutoff.
// Returns the number of payments expired.
func (r *PaymentRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at <= $3
	`, models.PaymentStatusCanceled, models.PaymentStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending payments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats summarizes payments for the admin overview.
type Stats struct {
	Succeeded int64
	Revenue   decimal.Decimal
}

// GetStats returns the number of succeeded payments and total revenue.
func (r *PaymentRepository) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM payments WHERE status = $1
	`, models.PaymentStatusSucceeded).Scan(&stats.Succeeded, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment stats: %w", err)
	}
	return &stats, nil
}

const selectPayment = `
	SELECT id, user_id, gateway_id, kind, plan_code, amount, status, confirmation_url, created_at, updated_at
	FROM payments`

func (r *PaymentRepository) scanOne(row pgx.Row) (*models.Payment, error) {
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.GatewayID, &p.Kind, &p.PlanCode,
		&p.Amount, &p.Status, &p.ConfirmationURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &p, nil
}
