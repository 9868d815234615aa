package listener

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/events"
	"github.com/greenlot/menu-order-service/internal/inventory/dto"
	"github.com/greenlot/menu-order-service/internal/model"
)

type fakeInventoryUseCase struct {
	adjustments []*dto.AdjustInventoryInput
}

func (f *fakeInventoryUseCase) GetProductInventory(ctx context.Context, merchantID, productID string) (*model.InventoryItem, error) {
	return nil, nil
}

func (f *fakeInventoryUseCase) ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.InventoryItem, int, error) {
	return nil, 0, nil
}

func (f *fakeInventoryUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.InventoryItem, error) {
	f.adjustments = append(f.adjustments, input)
	return &model.InventoryItem{}, nil
}

func (f *fakeInventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	return nil, 0, nil
}

func orderEvent(t *testing.T, reserved bool) []byte {
	t.Helper()
	value, err := json.Marshal(events.OrderCreatedEvent{
		EventID:   "evt-1",
		EventType: events.EventTypeOrderCreated,
		Payload: events.OrderPayload{
			ID:                "order-1",
			MerchantID:        "merchant-1",
			InventoryReserved: reserved,
			Items: []events.OrderItemPayload{
				{ProductID: "prod-a", Quantity: 2},
				{ProductID: "prod-b", Quantity: 1.5},
			},
		},
	})
	require.NoError(t, err)
	return value
}

func TestProcessMessage_DecrementsUnreservedOrder(t *testing.T) {
	uc := &fakeInventoryUseCase{}
	l := NewInventoryListener(nil, uc, zap.NewNop())

	l.ProcessMessage(context.Background(), orderEvent(t, false))

	require.Len(t, uc.adjustments, 2)
	assert.Equal(t, "prod-a", uc.adjustments[0].ProductID)
	assert.Equal(t, -2.0, uc.adjustments[0].QuantityChange)
	assert.Equal(t, "prod-b", uc.adjustments[1].ProductID)
	assert.Equal(t, -1.5, uc.adjustments[1].QuantityChange)
	assert.Equal(t, model.MovementRefSale, uc.adjustments[0].ReferenceType)
	assert.Equal(t, "order-1", uc.adjustments[0].ReferenceID)
}

func TestProcessMessage_SkipsReservedOrder(t *testing.T) {
	uc := &fakeInventoryUseCase{}
	l := NewInventoryListener(nil, uc, zap.NewNop())

	l.ProcessMessage(context.Background(), orderEvent(t, true))

	assert.Empty(t, uc.adjustments)
}

func TestProcessMessage_IgnoresOtherEventTypes(t *testing.T) {
	uc := &fakeInventoryUseCase{}
	l := NewInventoryListener(nil, uc, zap.NewNop())

	value, err := json.Marshal(events.OrderCreatedEvent{EventType: "ProductUpdated"})
	require.NoError(t, err)
	l.ProcessMessage(context.Background(), value)

	assert.Empty(t, uc.adjustments)
}

func TestProcessMessage_MalformedPayload(t *testing.T) {
	uc := &fakeInventoryUseCase{}
	l := NewInventoryListener(nil, uc, zap.NewNop())

	l.ProcessMessage(context.Background(), []byte("{not json"))

	assert.Empty(t, uc.adjustments)
}
