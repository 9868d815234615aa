package inventory

import (
	"context"

	"github.com/greenlot/menu-order-service/internal/inventory/dto"
	"github.com/greenlot/menu-order-service/internal/model"
)

type Repository interface {
	// Inventory items
	GetByProduct(ctx context.Context, merchantID, productID string) (*model.InventoryItem, error)
	FindAll(ctx context.Context, filters *dto.InventoryFilters) ([]model.InventoryItem, int, error)

	// Movements / Audit
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)

	// AdjustStockWithMovement applies movement.QuantityChange as a delta to
	// the locked current row value, rejecting changes that would go negative,
	// and logs the movement in the same transaction. It updates item and the
	// movement's before/after fields from the locked row.
	AdjustStockWithMovement(ctx context.Context, item *model.InventoryItem, movement *model.InventoryMovement) error
}
