package reservation

import (
	"context"
	"time"

	"github.com/greenlot/menu-order-service/internal/model"
)

// Repository exposes the transactional surface the reservation protocol
// runs on. Every protocol operation executes inside a single WithinTx call;
// a returned error rolls the whole transaction back.
type Repository interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// Tx is the set of statements available inside one reservation transaction.
type Tx interface {
	// LockItem acquires an exclusive row lock on the inventory item.
	// wait=false issues FOR UPDATE NOWAIT and surfaces lock_contention
	// immediately instead of queueing.
	LockItem(ctx context.Context, merchantID, productID string, wait bool) (*model.InventoryItem, error)
	AdjustItemQuantity(ctx context.Context, itemID string, delta float64) error
	LogMovement(ctx context.Context, m *model.InventoryMovement) error

	GetActiveMenu(ctx context.Context, menuID string) (*model.Menu, error)

	CreateReservation(ctx context.Context, r *model.Reservation) error
	// LockReservation acquires the reservation row lock (blocking) and
	// returns the reservation with its lines.
	LockReservation(ctx context.Context, id string) (*model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus, reason *string) error

	CreateOrder(ctx context.Context, o *model.Order) error
	GetProductPrices(ctx context.Context, merchantID string, productIDs []string) (map[string]float64, error)
}
