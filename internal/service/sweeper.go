package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

const (
	sweepLockKey   = "pix_expiry_sweep_lock"
	sweepBatchSize = 100
)

// Sweeper expires due requests on a timer. It only adds to lazy expiry and
// uses the same compare-and-set, so it never overrides a confirmation.
type Sweeper struct {
	lifecycle *Lifecycle
	locker    interfaces.Locker
	interval  time.Duration
}

func NewSweeper(lifecycle *Lifecycle, locker interfaces.Locker, interval time.Duration) *Sweeper {
	return &Sweeper{lifecycle: lifecycle, locker: locker, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	telemetry.Logger.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				telemetry.Logger.Error("Expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce expires every due request, skipping the round when another
// replica holds the sweep lock.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		locked, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL())
		if err != nil {
			return 0, err
		}
		if !locked {
			return 0, nil
		}
		defer s.locker.Unlock(ctx, sweepLockKey)
	}

	total := 0
	for {
		n, err := s.lifecycle.ExpireDue(ctx, sweepBatchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < sweepBatchSize {
			break
		}
	}
	if total > 0 {
		telemetry.Logger.Info("Expired payment requests", zap.Int("count", total))
	}
	return total, nil
}

func (s *Sweeper) lockTTL() time.Duration {
	if s.interval < 30*time.Second {
		return 30 * time.Second
	}
	return s.interval
}
