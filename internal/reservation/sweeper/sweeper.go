package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/reservation"
)

// Sweeper is the expiring-reservation garbage collector. A pending
// reservation keeps stock decremented for its hold window; once the window
// elapses the sweeper releases the stock and marks the reservation expired.
type Sweeper struct {
	uc        reservation.UseCase
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewSweeper(uc reservation.UseCase, interval time.Duration, batchSize int, log *zap.Logger) *Sweeper {
	return &Sweeper{
		uc:        uc,
		interval:  interval,
		batchSize: batchSize,
		logger:    log,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting reservation sweeper",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping reservation sweeper")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce expires one batch of overdue reservations.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	expired, err := s.uc.ExpireDue(ctx, time.Now(), s.batchSize)
	if err != nil {
		s.logger.Error("reservation sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expired overdue reservations", zap.Int("count", expired))
	}
}
