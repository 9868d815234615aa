package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/inventory"
	"github.com/greenlot/menu-order-service/internal/inventory/dto"
	"github.com/greenlot/menu-order-service/internal/metrics"
	"github.com/greenlot/menu-order-service/internal/model"
)

// DistributedLocker serializes manual adjustments for the same item across
// service replicas. Satisfied by the redis cache client.
type DistributedLocker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type inventoryUseCase struct {
	repo   inventory.Repository
	locker DistributedLocker
	logger *zap.Logger
}

func NewInventoryUseCase(repo inventory.Repository, locker DistributedLocker, log *zap.Logger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		locker: locker,
		logger: log,
	}
}

func (uc *inventoryUseCase) GetProductInventory(ctx context.Context, merchantID, productID string) (*model.InventoryItem, error) {
	item, err := uc.repo.GetByProduct(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		// Zero inventory for products never stocked.
		return &model.InventoryItem{
			MerchantID: merchantID,
			ProductID:  productID,
			Quantity:   0,
		}, nil
	}
	return item, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.InventoryItem, int, error) {
	return uc.repo.FindAll(ctx, &dto.InventoryFilters{
		MerchantID: merchantID,
		LowStock:   true,
		Page:       page,
		PageSize:   pageSize,
	})
}

// AdjustInventory applies a manual (or listener-driven) stock change outside
// the reservation protocol. The repository applies the change as a delta
// under the postgres row lock, so a reservation committing concurrently is
// never overwritten; the redis lock only throttles duplicate manual
// submissions across replicas.
func (uc *inventoryUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.InventoryItem, error) {
	lockKey := fmt.Sprintf("lock:inventory:%s:%s", input.MerchantID, input.ProductID)
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := uc.locker.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire lock, redis error", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !acquired {
		return nil, apperr.New(apperr.CodeLockContention, "inventory adjustment busy, please retry")
	}
	defer uc.locker.ReleaseLock(ctx, lockKey, lockValue)

	now := time.Now()
	item := &model.InventoryItem{
		// ID is only used when no row exists for the product yet.
		ID:         uuid.New().String(),
		MerchantID: input.MerchantID,
		ProductID:  input.ProductID,
		UpdatedAt:  now,
	}

	var refID *string
	if input.ReferenceID != "" {
		refID = &input.ReferenceID
	}
	var refType *string
	if input.ReferenceType != "" {
		refType = &input.ReferenceType
	}
	var createdBy *string
	if input.UserID != "" && input.UserID != "system" {
		createdBy = &input.UserID
	}

	// Before/after quantities are filled by the repository under the row lock.
	movement := &model.InventoryMovement{
		ID:             uuid.New().String(),
		MerchantID:     input.MerchantID,
		ProductID:      input.ProductID,
		MovementType:   "adjustment",
		QuantityChange: input.QuantityChange,
		ReferenceType:  refType,
		ReferenceID:    refID,
		Notes:          input.Reason,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}

	if err := uc.repo.AdjustStockWithMovement(ctx, item, movement); err != nil {
		return nil, err
	}

	metrics.InventoryLevel.WithLabelValues(input.ProductID).Set(item.Quantity)
	return item, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}
