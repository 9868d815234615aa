package inventory

import (
	"context"

	"github.com/greenlot/menu-order-service/internal/inventory/dto"
	"github.com/greenlot/menu-order-service/internal/model"
)

type UseCase interface {
	GetProductInventory(ctx context.Context, merchantID, productID string) (*model.InventoryItem, error)
	ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.InventoryItem, int, error)
	AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.InventoryItem, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
}
