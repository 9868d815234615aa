package listener

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/events"
	"github.com/greenlot/menu-order-service/internal/inventory"
	"github.com/greenlot/menu-order-service/internal/inventory/dto"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/platform/broker"
)

// InventoryListener is the legacy sale decrement path: it deducts stock
// whenever an order is created. Orders placed through checkout carry
// inventory_reserved=true because Reserve already took the stock; those are
// skipped so the deduction never happens twice.
type InventoryListener struct {
	consumer *broker.KafkaConsumer
	uc       inventory.UseCase
	logger   *zap.Logger
}

func NewInventoryListener(consumer *broker.KafkaConsumer, uc inventory.UseCase, logger *zap.Logger) *InventoryListener {
	return &InventoryListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("starting inventory kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping inventory kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.ProcessMessage(ctx, msg.Value)
		}
	}
}

// ProcessMessage handles one raw event. Per-item failures are logged and
// skipped; a stock adjustment error must never stall the stream.
func (l *InventoryListener) ProcessMessage(ctx context.Context, value []byte) {
	var event events.OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != events.EventTypeOrderCreated {
		return
	}

	if event.Payload.InventoryReserved {
		l.logger.Debug("inventory already decremented at reservation time, skipping",
			zap.String("order_id", event.Payload.ID))
		return
	}

	l.logger.Info("processing OrderCreated event", zap.String("order_id", event.Payload.ID))

	for _, item := range event.Payload.Items {
		input := &dto.AdjustInventoryInput{
			MerchantID:     event.Payload.MerchantID,
			ProductID:      item.ProductID,
			QuantityChange: -item.Quantity,
			Reason:         "order sale",
			ReferenceID:    event.Payload.ID,
			ReferenceType:  model.MovementRefSale,
			UserID:         "system",
		}

		if _, err := l.uc.AdjustInventory(ctx, input); err != nil {
			l.logger.Warn("failed to adjust inventory for order item",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
