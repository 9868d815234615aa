package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/config"
	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/events"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/reservation"
	"github.com/greenlot/menu-order-service/internal/reservation/dto"
)

const testMerchant = "merchant-1"

type lockCall struct {
	productID string
	wait      bool
}

// fakeStore is an in-memory Repository/Tx pair. WithinTx snapshots state up
// front and restores it when fn fails, mirroring a rolled-back transaction.
type fakeStore struct {
	mu           sync.Mutex
	items        map[string]*model.InventoryItem // keyed by product id
	menus        map[string]*model.Menu
	reservations map[string]*model.Reservation
	orders       []*model.Order
	movements    []*model.InventoryMovement
	prices       map[string]float64

	lockErr   map[string]error
	lockCalls []lockCall

	// afterScan runs after FindExpiredPending, before the sweep
	// transactions, to simulate a concurrent writer winning the race.
	afterScan func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:        make(map[string]*model.InventoryItem),
		menus:        make(map[string]*model.Menu),
		reservations: make(map[string]*model.Reservation),
		prices:       make(map[string]float64),
		lockErr:      make(map[string]error),
	}
}

func (s *fakeStore) addItem(productID string, qty float64) {
	s.items[productID] = &model.InventoryItem{
		ID:         "item-" + productID,
		MerchantID: testMerchant,
		ProductID:  productID,
		Quantity:   qty,
	}
	s.prices[productID] = 100
}

func (s *fakeStore) addMenu(id string, active bool) {
	s.menus[id] = &model.Menu{
		BaseModel:  model.BaseModel{ID: id},
		MerchantID: testMerchant,
		Name:       "main",
		IsActive:   active,
	}
}

type storeSnapshot struct {
	items        map[string]*model.InventoryItem
	reservations map[string]*model.Reservation
	orders       []*model.Order
	movements    []*model.InventoryMovement
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		items:        make(map[string]*model.InventoryItem, len(s.items)),
		reservations: make(map[string]*model.Reservation, len(s.reservations)),
		orders:       append([]*model.Order(nil), s.orders...),
		movements:    append([]*model.InventoryMovement(nil), s.movements...),
	}
	for k, v := range s.items {
		cp := *v
		snap.items[k] = &cp
	}
	for k, v := range s.reservations {
		cp := *v
		cp.Lines = append([]model.ReservationLine(nil), v.Lines...)
		snap.reservations[k] = &cp
	}
	return snap
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(&fakeTx{s: s}); err != nil {
		s.items = snap.items
		s.reservations = snap.reservations
		s.orders = snap.orders
		s.movements = snap.movements
		return err
	}
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "reservation not found")
	}
	cp := *res
	return &cp, nil
}

func (s *fakeStore) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, res := range s.reservations {
		if res.Status == model.ReservationStatusPending && cutoff.After(res.ExpiresAt) {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	if s.afterScan != nil {
		s.afterScan()
	}
	return ids, nil
}

type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) LockItem(ctx context.Context, merchantID, productID string, wait bool) (*model.InventoryItem, error) {
	t.s.lockCalls = append(t.s.lockCalls, lockCall{productID: productID, wait: wait})
	if err := t.s.lockErr[productID]; err != nil {
		return nil, err
	}
	item, ok := t.s.items[productID]
	if !ok || item.MerchantID != merchantID {
		return nil, apperr.New(apperr.CodeNotFound, "inventory item not found")
	}
	cp := *item
	return &cp, nil
}

func (t *fakeTx) AdjustItemQuantity(ctx context.Context, itemID string, delta float64) error {
	for _, item := range t.s.items {
		if item.ID == itemID {
			item.Quantity += delta
			return nil
		}
	}
	return apperr.New(apperr.CodeNotFound, "inventory item not found")
}

func (t *fakeTx) LogMovement(ctx context.Context, m *model.InventoryMovement) error {
	t.s.movements = append(t.s.movements, m)
	return nil
}

func (t *fakeTx) GetActiveMenu(ctx context.Context, menuID string) (*model.Menu, error) {
	menu, ok := t.s.menus[menuID]
	if !ok || !menu.IsActive {
		return nil, apperr.New(apperr.CodeNotFound, "menu not found or inactive")
	}
	return menu, nil
}

func (t *fakeTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	cp := *r
	cp.Lines = append([]model.ReservationLine(nil), r.Lines...)
	t.s.reservations[r.ID] = &cp
	return nil
}

func (t *fakeTx) LockReservation(ctx context.Context, id string) (*model.Reservation, error) {
	res, ok := t.s.reservations[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "reservation not found")
	}
	cp := *res
	cp.Lines = append([]model.ReservationLine(nil), res.Lines...)
	return &cp, nil
}

func (t *fakeTx) UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus, reason *string) error {
	res, ok := t.s.reservations[id]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "reservation not found")
	}
	res.Status = status
	res.CancelReason = reason
	return nil
}

func (t *fakeTx) CreateOrder(ctx context.Context, o *model.Order) error {
	t.s.orders = append(t.s.orders, o)
	return nil
}

func (t *fakeTx) GetProductPrices(ctx context.Context, merchantID string, productIDs []string) (map[string]float64, error) {
	prices := make(map[string]float64)
	for _, id := range productIDs {
		if p, ok := t.s.prices[id]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.OrderCreatedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var e events.OrderCreatedEvent
	if err := json.Unmarshal(value, &e); err != nil {
		return err
	}
	p.events = append(p.events, e)
	return nil
}

func defaultConfig() config.ReservationConfig {
	return config.ReservationConfig{
		HoldWindow:     10 * time.Minute,
		LockWaitPolicy: config.LockPolicyFailFast,
		SweepInterval:  time.Minute,
		SweepBatchSize: 100,
	}
}

func newTestUseCase(store *fakeStore, cfg config.ReservationConfig, pub *fakePublisher) *reservationUseCase {
	var publisher EventPublisher
	if pub != nil {
		publisher = pub
	}
	return NewReservationUseCase(store, publisher, nil, cfg, zap.NewNop()).(*reservationUseCase)
}

func reserve(t *testing.T, uc *reservationUseCase, lines ...dto.ReserveLineInput) *dto.ReserveResult {
	t.Helper()
	result, err := uc.Reserve(context.Background(), &dto.ReserveInput{
		MerchantID: testMerchant,
		MenuID:     "menu-1",
		Lines:      lines,
	})
	require.NoError(t, err)
	return result
}

func TestReserve_DecrementsStockAndCreatesPendingHold(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	before := time.Now()
	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 12.5})

	assert.NotEmpty(t, result.ReservationID)
	assert.NotEmpty(t, result.LockToken)
	assert.WithinDuration(t, before.Add(10*time.Minute), result.ExpiresAt, 5*time.Second)

	assert.Equal(t, 37.5, store.items["prod-a"].Quantity)

	res := store.reservations[result.ReservationID]
	require.NotNil(t, res)
	assert.Equal(t, model.ReservationStatusPending, res.Status)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "prod-a", res.Lines[0].ProductID)
	assert.Equal(t, 12.5, res.Lines[0].Quantity)

	require.Len(t, store.movements, 1)
	assert.Equal(t, "reserve", store.movements[0].MovementType)
	assert.Equal(t, -12.5, store.movements[0].QuantityChange)
}

func TestReserve_InsufficientStock_RollsBackAllLines(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	store.addItem("prod-b", 3)
	uc := newTestUseCase(store, defaultConfig(), nil)

	_, err := uc.Reserve(context.Background(), &dto.ReserveInput{
		MerchantID: testMerchant,
		MenuID:     "menu-1",
		Lines: []dto.ReserveLineInput{
			{ProductID: "prod-a", Quantity: 10},
			{ProductID: "prod-b", Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	// First line's decrement must not survive the failed batch.
	assert.Equal(t, 50.0, store.items["prod-a"].Quantity)
	assert.Equal(t, 3.0, store.items["prod-b"].Quantity)
	assert.Empty(t, store.reservations)
	assert.Empty(t, store.movements)
}

func TestReserve_LocksInAscendingProductOrder(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 10)
	store.addItem("prod-b", 10)
	store.addItem("prod-c", 10)
	uc := newTestUseCase(store, defaultConfig(), nil)

	reserve(t, uc,
		dto.ReserveLineInput{ProductID: "prod-c", Quantity: 1},
		dto.ReserveLineInput{ProductID: "prod-a", Quantity: 1},
		dto.ReserveLineInput{ProductID: "prod-b", Quantity: 1},
	)

	require.Len(t, store.lockCalls, 3)
	assert.Equal(t, "prod-a", store.lockCalls[0].productID)
	assert.Equal(t, "prod-b", store.lockCalls[1].productID)
	assert.Equal(t, "prod-c", store.lockCalls[2].productID)
}

func TestReserve_LockWaitPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy   string
		wantWait bool
	}{
		{config.LockPolicyFailFast, false},
		{config.LockPolicyWait, true},
	} {
		store := newFakeStore()
		store.addMenu("menu-1", true)
		store.addItem("prod-a", 10)
		cfg := defaultConfig()
		cfg.LockWaitPolicy = tc.policy
		uc := newTestUseCase(store, cfg, nil)

		reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 1})

		require.Len(t, store.lockCalls, 1)
		assert.Equal(t, tc.wantWait, store.lockCalls[0].wait, "policy %s", tc.policy)
	}
}

func TestReserve_LockContentionSurfaces(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 10)
	store.lockErr["prod-a"] = apperr.New(apperr.CodeLockContention, "row locked by another transaction")
	uc := newTestUseCase(store, defaultConfig(), nil)

	_, err := uc.Reserve(context.Background(), &dto.ReserveInput{
		MerchantID: testMerchant,
		MenuID:     "menu-1",
		Lines:      []dto.ReserveLineInput{{ProductID: "prod-a", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeLockContention))
	assert.Equal(t, 10.0, store.items["prod-a"].Quantity)
}

func TestReserve_InactiveMenuRejected(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", false)
	store.addItem("prod-a", 10)
	uc := newTestUseCase(store, defaultConfig(), nil)

	_, err := uc.Reserve(context.Background(), &dto.ReserveInput{
		MerchantID: testMerchant,
		MenuID:     "menu-1",
		Lines:      []dto.ReserveLineInput{{ProductID: "prod-a", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestReserve_InvalidQuantityRejected(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 10)
	uc := newTestUseCase(store, defaultConfig(), nil)

	_, err := uc.Reserve(context.Background(), &dto.ReserveInput{
		MerchantID: testMerchant,
		MenuID:     "menu-1",
		Lines:      []dto.ReserveLineInput{{ProductID: "prod-a", Quantity: -2}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestConfirm_CreatesOrderWithReservedFlag(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	store.prices["prod-a"] = 2200
	pub := &fakePublisher{}
	uc := newTestUseCase(store, defaultConfig(), pub)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 2})

	confirmed, err := uc.Confirm(context.Background(), &dto.ConfirmInput{
		MerchantID:    testMerchant,
		ReservationID: result.ReservationID,
		TotalAmount:   4400,
	})
	require.NoError(t, err)
	require.NotEmpty(t, confirmed.OrderID)

	// Stock stays decremented; the hold became a sale.
	assert.Equal(t, 48.0, store.items["prod-a"].Quantity)
	assert.Equal(t, model.ReservationStatusConfirmed, store.reservations[result.ReservationID].Status)

	require.Len(t, store.orders, 1)
	order := store.orders[0]
	assert.True(t, order.InventoryReserved)
	assert.Equal(t, result.ReservationID, order.ReservationID)
	assert.Equal(t, "menu-1", order.MenuID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2200.0, order.Items[0].UnitPrice)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.EventTypeOrderCreated, pub.events[0].EventType)
	assert.True(t, pub.events[0].Payload.InventoryReserved)
}

func TestConfirm_Twice_StateConflict(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 2})

	input := &dto.ConfirmInput{
		MerchantID:    testMerchant,
		ReservationID: result.ReservationID,
		TotalAmount:   100,
	}
	_, err := uc.Confirm(context.Background(), input)
	require.NoError(t, err)

	_, err = uc.Confirm(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict))
	assert.Len(t, store.orders, 1)
}

func TestConfirm_Expired_RejectedWithoutRestore(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 5})
	store.reservations[result.ReservationID].ExpiresAt = time.Now().Add(-time.Minute)

	_, err := uc.Confirm(context.Background(), &dto.ConfirmInput{
		MerchantID:    testMerchant,
		ReservationID: result.ReservationID,
		TotalAmount:   100,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeExpired))

	// Restoration belongs to the sweeper, not Confirm.
	assert.Equal(t, 45.0, store.items["prod-a"].Quantity)
	assert.Equal(t, model.ReservationStatusPending, store.reservations[result.ReservationID].Status)
	assert.Empty(t, store.orders)
}

func TestConfirm_WrongMerchant_NotFound(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 1})

	_, err := uc.Confirm(context.Background(), &dto.ConfirmInput{
		MerchantID:    "someone-else",
		ReservationID: result.ReservationID,
		TotalAmount:   100,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestCancel_RestoresHeldStock(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	store.addItem("prod-b", 20)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc,
		dto.ReserveLineInput{ProductID: "prod-a", Quantity: 7},
		dto.ReserveLineInput{ProductID: "prod-b", Quantity: 3},
	)
	assert.Equal(t, 43.0, store.items["prod-a"].Quantity)
	assert.Equal(t, 17.0, store.items["prod-b"].Quantity)

	err := uc.Cancel(context.Background(), testMerchant, result.ReservationID, "customer backed out")
	require.NoError(t, err)

	assert.Equal(t, 50.0, store.items["prod-a"].Quantity)
	assert.Equal(t, 20.0, store.items["prod-b"].Quantity)

	res := store.reservations[result.ReservationID]
	assert.Equal(t, model.ReservationStatusCancelled, res.Status)
	require.NotNil(t, res.CancelReason)
	assert.Equal(t, "customer backed out", *res.CancelReason)

	var releases int
	for _, m := range store.movements {
		if m.MovementType == "release" {
			releases++
		}
	}
	assert.Equal(t, 2, releases)
}

func TestCancel_TerminalReservation_NoOp(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 2})

	_, err := uc.Confirm(context.Background(), &dto.ConfirmInput{
		MerchantID:    testMerchant,
		ReservationID: result.ReservationID,
		TotalAmount:   100,
	})
	require.NoError(t, err)

	// Cancel after confirm must not touch stock and must not error.
	err = uc.Cancel(context.Background(), testMerchant, result.ReservationID, "too late")
	require.NoError(t, err)
	assert.Equal(t, 48.0, store.items["prod-a"].Quantity)
	assert.Equal(t, model.ReservationStatusConfirmed, store.reservations[result.ReservationID].Status)

	// And it stays idempotent on an already-cancelled one.
	result2 := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 2})
	require.NoError(t, uc.Cancel(context.Background(), testMerchant, result2.ReservationID, ""))
	require.NoError(t, uc.Cancel(context.Background(), testMerchant, result2.ReservationID, ""))
	assert.Equal(t, 48.0, store.items["prod-a"].Quantity)
}

func TestCancel_WrongMerchant_NotFound(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 10})

	// Another tenant holding the id must not be able to release the stock.
	err := uc.Cancel(context.Background(), "someone-else", result.ReservationID, "hijack")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	assert.Equal(t, 40.0, store.items["prod-a"].Quantity)
	assert.Equal(t, model.ReservationStatusPending, store.reservations[result.ReservationID].Status)
}

func TestGet_MerchantScoped(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 1})

	res, err := uc.Get(context.Background(), testMerchant, result.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, result.ReservationID, res.ID)

	_, err = uc.Get(context.Background(), "someone-else", result.ReservationID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestExpireDue_RestoresStockAndMarksExpired(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	stale := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 10})
	fresh := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 5})
	store.reservations[stale.ReservationID].ExpiresAt = time.Now().Add(-time.Hour)

	count, err := uc.ExpireDue(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, model.ReservationStatusExpired, store.reservations[stale.ReservationID].Status)
	assert.Equal(t, model.ReservationStatusPending, store.reservations[fresh.ReservationID].Status)
	// 50 - 10 - 5 + 10 restored.
	assert.Equal(t, 45.0, store.items["prod-a"].Quantity)
}

func TestExpireDue_SkipsTerminalRaceWinner(t *testing.T) {
	store := newFakeStore()
	store.addMenu("menu-1", true)
	store.addItem("prod-a", 50)
	uc := newTestUseCase(store, defaultConfig(), nil)

	result := reserve(t, uc, dto.ReserveLineInput{ProductID: "prod-a", Quantity: 10})
	store.reservations[result.ReservationID].ExpiresAt = time.Now().Add(-time.Hour)
	// Concurrent confirm wins between the scan and the sweep transaction.
	store.afterScan = func() {
		store.reservations[result.ReservationID].Status = model.ReservationStatusConfirmed
	}

	count, err := uc.ExpireDue(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 40.0, store.items["prod-a"].Quantity)
}
