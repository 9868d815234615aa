package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/menu"
	"github.com/greenlot/menu-order-service/internal/menu/dto"
	"github.com/greenlot/menu-order-service/internal/model"
)

type menuUseCase struct {
	repo   menu.Repository
	logger *zap.Logger
}

func NewMenuUseCase(repo menu.Repository, log *zap.Logger) menu.UseCase {
	return &menuUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *menuUseCase) CreateMenu(ctx context.Context, input *dto.CreateMenuInput) (*model.Menu, error) {
	id := uuid.New().String()
	now := time.Now()

	m := &model.Menu{
		BaseModel: model.BaseModel{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		MerchantID:  input.MerchantID,
		Name:        input.Name,
		Description: &input.Description,
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}

	if err := uc.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (uc *menuUseCase) GetMenu(ctx context.Context, id string) (*model.Menu, error) {
	m, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.CodeNotFound, "menu not found")
	}
	return m, nil
}

func (uc *menuUseCase) ListMenus(ctx context.Context, filters *dto.MenuFilters) ([]model.Menu, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *menuUseCase) UpdateMenu(ctx context.Context, input *dto.UpdateMenuInput) (*model.Menu, error) {
	m, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.MerchantID != input.MerchantID {
		return nil, apperr.New(apperr.CodeNotFound, "menu not found")
	}

	m.Name = input.Name
	m.Description = &input.Description
	m.SortOrder = input.SortOrder
	m.IsActive = input.IsActive
	m.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (uc *menuUseCase) DeleteMenu(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}
