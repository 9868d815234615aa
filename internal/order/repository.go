package order

import (
	"context"

	"github.com/greenlot/menu-order-service/internal/model"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByMerchant(ctx context.Context, merchantID string, page, pageSize int) ([]model.Order, int, error)
}
