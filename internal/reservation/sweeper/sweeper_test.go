package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/reservation/dto"
)

type fakeReservationUseCase struct {
	expireCalls []expireCall
	expired     int
	err         error
}

type expireCall struct {
	cutoff time.Time
	limit  int
}

func (f *fakeReservationUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveResult, error) {
	return nil, nil
}

func (f *fakeReservationUseCase) Confirm(ctx context.Context, input *dto.ConfirmInput) (*dto.ConfirmResult, error) {
	return nil, nil
}

func (f *fakeReservationUseCase) Cancel(ctx context.Context, merchantID, reservationID, reason string) error {
	return nil
}

func (f *fakeReservationUseCase) Get(ctx context.Context, merchantID, reservationID string) (*model.Reservation, error) {
	return nil, nil
}

func (f *fakeReservationUseCase) ExpireDue(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	f.expireCalls = append(f.expireCalls, expireCall{cutoff: cutoff, limit: limit})
	return f.expired, f.err
}

func TestSweepOnce_PassesBatchSizeAndCutoff(t *testing.T) {
	uc := &fakeReservationUseCase{expired: 3}
	s := NewSweeper(uc, time.Minute, 25, zap.NewNop())

	before := time.Now()
	s.SweepOnce(context.Background())

	require.Len(t, uc.expireCalls, 1)
	assert.Equal(t, 25, uc.expireCalls[0].limit)
	assert.WithinDuration(t, before, uc.expireCalls[0].cutoff, time.Second)
}

func TestSweepOnce_ErrorDoesNotPanic(t *testing.T) {
	uc := &fakeReservationUseCase{err: errors.New("db gone")}
	s := NewSweeper(uc, time.Minute, 25, zap.NewNop())

	s.SweepOnce(context.Background())
	require.Len(t, uc.expireCalls, 1)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	uc := &fakeReservationUseCase{}
	s := NewSweeper(uc, 10*time.Millisecond, 25, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	assert.NotEmpty(t, uc.expireCalls)
}
