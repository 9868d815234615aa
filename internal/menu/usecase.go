package menu

import (
	"context"

	"github.com/greenlot/menu-order-service/internal/menu/dto"
	"github.com/greenlot/menu-order-service/internal/model"
)

type UseCase interface {
	CreateMenu(ctx context.Context, input *dto.CreateMenuInput) (*model.Menu, error)
	GetMenu(ctx context.Context, id string) (*model.Menu, error)
	ListMenus(ctx context.Context, filters *dto.MenuFilters) ([]model.Menu, int, error)
	UpdateMenu(ctx context.Context, input *dto.UpdateMenuInput) (*model.Menu, error)
	DeleteMenu(ctx context.Context, id string) error
}
