package reservation

import (
	"context"
	"time"

	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/reservation/dto"
)

type UseCase interface {
	Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveResult, error)
	Confirm(ctx context.Context, input *dto.ConfirmInput) (*dto.ConfirmResult, error)
	Cancel(ctx context.Context, merchantID, reservationID, reason string) error
	Get(ctx context.Context, merchantID, reservationID string) (*model.Reservation, error)

	// ExpireDue releases stock held by pending reservations whose expiry
	// passed before cutoff, marking them expired. Returns how many were
	// transitioned. Called by the sweeper.
	ExpireDue(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
