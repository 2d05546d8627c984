package payment

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"cardgen/internal/logger"
	"cardgen/internal/yookassa"
)

// reconcileBatch bounds how many pending payments one pass inspects.
const reconcileBatch = 100

// ReconcileSchedule runs the poller every two minutes.
const ReconcileSchedule = "*/2 * * * *"

// StartReconciler registers the periodic payment reconciliation job and
// starts the cron scheduler. The returned cron should be stopped on
// shutdown.
func (s *Service) StartReconciler(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(ReconcileSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		s.Reconcile(runCtx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.Log.Info().Str("schedule", ReconcileSchedule).Msg("Payment reconciler started")
	return c, nil
}

// Reconcile polls the gateway for recent pending payments that the
// webhook may have missed, then expires payments older than PendingTTL.
func (s *Service) Reconcile(ctx context.Context) {
	if s.gateway == nil {
		return
	}

	cutoff := s.now().Add(-PendingTTL)

	pending, err := s.payments.ListPending(ctx, cutoff, reconcileBatch)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to list pending payments")
		return
	}

	for _, p := range pending {
		if p.GatewayID == "" {
			continue
		}

		gw, err := s.gateway.GetPayment(ctx, p.GatewayID)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Int64("payment_id", p.ID).
				Str("gateway_id", logger.MaskPaymentID(p.GatewayID)).
				Msg("Gateway poll failed")
			continue
		}

		switch gw.Status {
		case yookassa.StatusSucceeded:
			if err := s.Confirm(ctx, p.GatewayID); err != nil {
				logger.Log.Error().Err(err).Int64("payment_id", p.ID).Msg("Failed to confirm reconciled payment")
			}
		case yookassa.StatusCanceled:
			if err := s.Cancel(ctx, p.GatewayID); err != nil {
				logger.Log.Error().Err(err).Int64("payment_id", p.ID).Msg("Failed to cancel reconciled payment")
			}
		}
	}

	expired, err := s.payments.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to expire stale payments")
		return
	}
	if expired > 0 {
		logger.Log.Info().Int64("count", expired).Msg("Expired stale pending payments")
	}
}
