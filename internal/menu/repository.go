package menu

import (
	"context"

	"github.com/greenlot/menu-order-service/internal/menu/dto"
	"github.com/greenlot/menu-order-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, menu *model.Menu) error
	FindByID(ctx context.Context, id string) (*model.Menu, error)
	FindAll(ctx context.Context, filters *dto.MenuFilters) ([]model.Menu, int, error)
	Update(ctx context.Context, menu *model.Menu) error
	Delete(ctx context.Context, id string) error
}
