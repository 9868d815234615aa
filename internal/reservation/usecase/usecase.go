package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/config"
	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/events"
	"github.com/greenlot/menu-order-service/internal/metrics"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/reservation"
	"github.com/greenlot/menu-order-service/internal/reservation/dto"
)

// EventPublisher publishes order lifecycle events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// SearchIndexer pushes order documents into the search cluster.
type SearchIndexer interface {
	Index(ctx context.Context, index, id string, doc interface{}) error
}

const ordersIndex = "orders"

type reservationUseCase struct {
	repo      reservation.Repository
	publisher EventPublisher
	indexer   SearchIndexer
	cfg       config.ReservationConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewReservationUseCase(
	repo reservation.Repository,
	publisher EventPublisher,
	indexer SearchIndexer,
	cfg config.ReservationConfig,
	log *zap.Logger,
) reservation.UseCase {
	return &reservationUseCase{
		repo:      repo,
		publisher: publisher,
		indexer:   indexer,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// Reserve places an all-or-nothing hold on every requested line. Lines are
// locked in ascending product id order so concurrent reservations touching
// overlapping carts cannot deadlock. Stock is decremented immediately; the
// pending reservation row is what allows it to be put back.
func (uc *reservationUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveResult, error) {
	if len(input.Lines) == 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "reservation requires at least one line")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, apperr.Newf(apperr.CodeInvalidArgument, "invalid quantity %.4f for product %s", line.Quantity, line.ProductID)
		}
	}

	lines := make([]dto.ReserveLineInput, len(input.Lines))
	copy(lines, input.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	wait := uc.cfg.LockWaitPolicy == config.LockPolicyWait
	now := uc.now()

	res := &model.Reservation{
		ID:         uuid.New().String(),
		MerchantID: input.MerchantID,
		MenuID:     input.MenuID,
		Status:     model.ReservationStatusPending,
		LockToken:  uuid.New().String(),
		ExpiresAt:  now.Add(uc.cfg.HoldWindow),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := uc.repo.WithinTx(ctx, func(tx reservation.Tx) error {
		menu, err := tx.GetActiveMenu(ctx, input.MenuID)
		if err != nil {
			return err
		}
		if menu.MerchantID != input.MerchantID {
			return apperr.New(apperr.CodeNotFound, "menu not found or inactive")
		}

		for _, line := range lines {
			item, err := tx.LockItem(ctx, input.MerchantID, line.ProductID, wait)
			if err != nil {
				return err
			}
			if item.Quantity < line.Quantity {
				return apperr.Newf(apperr.CodeInsufficientStock,
					"insufficient stock for product %s: requested %.2f, available %.2f",
					line.ProductID, line.Quantity, item.Quantity)
			}

			if err := tx.AdjustItemQuantity(ctx, item.ID, -line.Quantity); err != nil {
				return err
			}

			refType := model.MovementRefReservation
			if err := tx.LogMovement(ctx, &model.InventoryMovement{
				ID:             uuid.New().String(),
				MerchantID:     input.MerchantID,
				ProductID:      line.ProductID,
				MovementType:   "reserve",
				QuantityChange: -line.Quantity,
				QuantityBefore: item.Quantity,
				QuantityAfter:  item.Quantity - line.Quantity,
				ReferenceType:  &refType,
				ReferenceID:    &res.ID,
				Notes:          "checkout hold",
				CreatedAt:      now,
			}); err != nil {
				return err
			}

			res.Lines = append(res.Lines, model.ReservationLine{
				ID:            uuid.New().String(),
				ReservationID: res.ID,
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
			})
		}

		return tx.CreateReservation(ctx, res)
	})
	if err != nil {
		switch apperr.CodeOf(err) {
		case apperr.CodeLockContention, apperr.CodeInsufficientStock, apperr.CodeNotFound:
			metrics.ReservationFailuresTotal.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		}
		return nil, err
	}

	metrics.ReservationsTotal.WithLabelValues("created").Inc()
	uc.logger.Info("reservation created",
		zap.String("reservation_id", res.ID),
		zap.String("menu_id", input.MenuID),
		zap.Int("lines", len(res.Lines)),
		zap.Time("expires_at", res.ExpiresAt),
		zap.String("trace_id", input.TraceID),
	)

	return &dto.ReserveResult{
		ReservationID: res.ID,
		LockToken:     res.LockToken,
		ExpiresAt:     res.ExpiresAt,
	}, nil
}

// Confirm turns a pending, unexpired reservation into a durable order. The
// order is written with inventory_reserved=true so the legacy sale listener
// does not decrement stock a second time. An expired reservation is rejected
// here and left for the sweeper to release.
func (uc *reservationUseCase) Confirm(ctx context.Context, input *dto.ConfirmInput) (*dto.ConfirmResult, error) {
	now := uc.now()
	order := &model.Order{
		ID:                uuid.New().String(),
		ReservationID:     input.ReservationID,
		MerchantID:        input.MerchantID,
		Status:            model.OrderStatusConfirmed,
		TotalAmount:       input.TotalAmount,
		DeliveryInfo:      input.DeliveryInfo,
		PaymentInfo:       input.PaymentInfo,
		InventoryReserved: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := uc.repo.WithinTx(ctx, func(tx reservation.Tx) error {
		res, err := tx.LockReservation(ctx, input.ReservationID)
		if err != nil {
			return err
		}
		if res.MerchantID != input.MerchantID {
			return apperr.New(apperr.CodeNotFound, "reservation not found")
		}
		if res.Terminal() {
			return apperr.Newf(apperr.CodeStateConflict, "reservation already %s", res.Status)
		}
		if res.ExpiredAt(now) {
			return apperr.Newf(apperr.CodeExpired, "reservation expired at %s", res.ExpiresAt.Format(time.RFC3339))
		}

		productIDs := make([]string, len(res.Lines))
		for i, line := range res.Lines {
			productIDs[i] = line.ProductID
		}
		prices, err := tx.GetProductPrices(ctx, input.MerchantID, productIDs)
		if err != nil {
			return err
		}

		order.MenuID = res.MenuID
		for _, line := range res.Lines {
			price, ok := prices[line.ProductID]
			if !ok {
				return apperr.Newf(apperr.CodeNotFound, "product %s no longer exists", line.ProductID)
			}
			order.Items = append(order.Items, model.OrderItem{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price,
			})
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.UpdateReservationStatus(ctx, input.ReservationID, model.ReservationStatusConfirmed, nil)
	})
	if err != nil {
		return nil, err
	}

	metrics.ReservationsTotal.WithLabelValues("confirmed").Inc()
	metrics.OrdersTotal.Inc()
	uc.logger.Info("order confirmed",
		zap.String("order_id", order.ID),
		zap.String("reservation_id", input.ReservationID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.String("trace_id", input.TraceID),
	)

	// Secondary side effects must never fail a committed order.
	uc.publishOrderCreated(ctx, order)
	go uc.indexOrder(context.Background(), order)

	return &dto.ConfirmResult{OrderID: order.ID}, nil
}

// Cancel restores the held stock and marks the reservation cancelled.
// Cancelling a reservation that already reached a terminal state is a no-op
// success so callers can retry safely.
func (uc *reservationUseCase) Cancel(ctx context.Context, merchantID, reservationID, reason string) error {
	cancelled := false
	err := uc.repo.WithinTx(ctx, func(tx reservation.Tx) error {
		res, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.MerchantID != merchantID {
			return apperr.New(apperr.CodeNotFound, "reservation not found")
		}
		if res.Terminal() {
			uc.logger.Debug("cancel on non-pending reservation, skipping",
				zap.String("reservation_id", reservationID),
				zap.String("status", string(res.Status)))
			return nil
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}
		if err := uc.releaseHold(ctx, tx, res, reason); err != nil {
			return err
		}
		if err := tx.UpdateReservationStatus(ctx, reservationID, model.ReservationStatusCancelled, reasonPtr); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return err
	}

	if cancelled {
		metrics.ReservationsTotal.WithLabelValues("cancelled").Inc()
		uc.logger.Info("reservation cancelled",
			zap.String("reservation_id", reservationID),
			zap.String("reason", reason))
	}
	return nil
}

func (uc *reservationUseCase) Get(ctx context.Context, merchantID, reservationID string) (*model.Reservation, error) {
	res, err := uc.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.MerchantID != merchantID {
		return nil, apperr.New(apperr.CodeNotFound, "reservation not found")
	}
	return res, nil
}

// ExpireDue is the sweep step: pending reservations past their expiry get
// their stock restored and transition to expired. Each reservation is
// processed in its own transaction so one poisoned row cannot wedge the
// whole batch.
func (uc *reservationUseCase) ExpireDue(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ids, err := uc.repo.FindExpiredPending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		err := uc.repo.WithinTx(ctx, func(tx reservation.Tx) error {
			res, err := tx.LockReservation(ctx, id)
			if err != nil {
				return err
			}
			// Re-check under the row lock; a concurrent Confirm or Cancel
			// may have won the race since the scan.
			if res.Terminal() || !res.ExpiredAt(cutoff) {
				return nil
			}
			if err := uc.releaseHold(ctx, tx, res, "hold window elapsed"); err != nil {
				return err
			}
			if err := tx.UpdateReservationStatus(ctx, id, model.ReservationStatusExpired, nil); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			uc.logger.Error("failed to expire reservation",
				zap.String("reservation_id", id),
				zap.Error(err))
			continue
		}
	}

	if expired > 0 {
		metrics.ReservationsTotal.WithLabelValues("expired").Add(float64(expired))
	}
	return expired, nil
}

// releaseHold puts every held line back on the shelf. Items are locked in
// the same ascending product id order as Reserve.
func (uc *reservationUseCase) releaseHold(ctx context.Context, tx reservation.Tx, res *model.Reservation, note string) error {
	lines := make([]model.ReservationLine, len(res.Lines))
	copy(lines, res.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	now := uc.now()
	for _, line := range lines {
		item, err := tx.LockItem(ctx, res.MerchantID, line.ProductID, true)
		if err != nil {
			return err
		}
		if err := tx.AdjustItemQuantity(ctx, item.ID, line.Quantity); err != nil {
			return err
		}

		refType := model.MovementRefReservationRelease
		if err := tx.LogMovement(ctx, &model.InventoryMovement{
			ID:             uuid.New().String(),
			MerchantID:     res.MerchantID,
			ProductID:      line.ProductID,
			MovementType:   "release",
			QuantityChange: line.Quantity,
			QuantityBefore: item.Quantity,
			QuantityAfter:  item.Quantity + line.Quantity,
			ReferenceType:  &refType,
			ReferenceID:    &res.ID,
			Notes:          note,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (uc *reservationUseCase) publishOrderCreated(ctx context.Context, order *model.Order) {
	if uc.publisher == nil {
		return
	}

	event := events.OrderCreatedEvent{
		EventID:   uuid.New().String(),
		EventType: events.EventTypeOrderCreated,
		Timestamp: uc.now(),
		Payload: events.OrderPayload{
			ID:                order.ID,
			MerchantID:        order.MerchantID,
			MenuID:            order.MenuID,
			ReservationID:     order.ReservationID,
			InventoryReserved: order.InventoryReserved,
		},
	}
	for _, item := range order.Items {
		event.Payload.Items = append(event.Payload.Items, events.OrderItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	value, err := json.Marshal(event)
	if err != nil {
		uc.logger.Warn("failed to marshal order event", zap.Error(err))
		return
	}
	if err := uc.publisher.Publish(ctx, order.ID, value); err != nil {
		uc.logger.Warn("failed to publish order event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

func (uc *reservationUseCase) indexOrder(ctx context.Context, order *model.Order) {
	if uc.indexer == nil {
		return
	}
	if err := uc.indexer.Index(ctx, ordersIndex, order.ID, order); err != nil {
		uc.logger.Warn("failed to index order",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
