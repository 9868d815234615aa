package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/reservation"
)

// Postgres error code raised by FOR UPDATE NOWAIT on a held lock.
const pgLockNotAvailable = "55P03"

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) WithinTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "commit transaction", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.DB.GetContext(ctx, &res, `SELECT * FROM reservations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "reservation not found")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "get reservation", err)
	}

	err = r.DB.SelectContext(ctx, &res.Lines,
		`SELECT * FROM reservation_lines WHERE reservation_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "get reservation lines", err)
	}
	return &res, nil
}

func (r *PGRepository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.DB.SelectContext(ctx, &ids, `
        SELECT id FROM reservations
        WHERE status = $1 AND expires_at < $2
        ORDER BY expires_at
        LIMIT $3`,
		model.ReservationStatusPending, cutoff, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "find expired reservations", err)
	}
	return ids, nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) LockItem(ctx context.Context, merchantID, productID string, wait bool) (*model.InventoryItem, error) {
	query := `SELECT * FROM inventory_items WHERE merchant_id = $1 AND product_id = $2 FOR UPDATE`
	if !wait {
		query += ` NOWAIT`
	}

	var item model.InventoryItem
	err := t.tx.GetContext(ctx, &item, query, merchantID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeNotFound, "inventory item for product %s not found", productID)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return nil, apperr.Newf(apperr.CodeLockContention, "inventory item for product %s is locked by a concurrent reservation", productID)
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "lock inventory item", err)
	}
	return &item, nil
}

func (t *pgTx) AdjustItemQuantity(ctx context.Context, itemID string, delta float64) error {
	res, err := t.tx.ExecContext(ctx, `
        UPDATE inventory_items
        SET quantity = quantity + $2, updated_at = now()
        WHERE id = $1`,
		itemID, delta)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "adjust inventory quantity", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "adjust inventory quantity", err)
	}
	if rows == 0 {
		return apperr.New(apperr.CodeNotFound, "inventory item not found")
	}
	return nil
}

func (t *pgTx) LogMovement(ctx context.Context, m *model.InventoryMovement) error {
	_, err := t.tx.NamedExecContext(ctx, `
        INSERT INTO inventory_movements (
            id, merchant_id, product_id, movement_type, quantity_change,
            quantity_before, quantity_after, reference_type, reference_id,
            notes, created_by, created_at
        )
        VALUES (
            :id, :merchant_id, :product_id, :movement_type, :quantity_change,
            :quantity_before, :quantity_after, :reference_type, :reference_id,
            :notes, :created_by, :created_at
        )`, m)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "log inventory movement", err)
	}
	return nil
}

func (t *pgTx) GetActiveMenu(ctx context.Context, menuID string) (*model.Menu, error) {
	var menu model.Menu
	err := t.tx.GetContext(ctx, &menu,
		`SELECT * FROM menus WHERE id = $1 AND is_active = true`, menuID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "menu not found or inactive")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "get menu", err)
	}
	return &menu, nil
}

func (t *pgTx) CreateReservation(ctx context.Context, res *model.Reservation) error {
	_, err := t.tx.NamedExecContext(ctx, `
        INSERT INTO reservations (
            id, merchant_id, menu_id, status, lock_token, expires_at,
            cancel_reason, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :menu_id, :status, :lock_token, :expires_at,
            :cancel_reason, :created_at, :updated_at
        )`, res)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "create reservation", err)
	}

	for i := range res.Lines {
		_, err = t.tx.NamedExecContext(ctx, `
            INSERT INTO reservation_lines (id, reservation_id, product_id, quantity)
            VALUES (:id, :reservation_id, :product_id, :quantity)`, &res.Lines[i])
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "create reservation line", err)
		}
	}
	return nil
}

func (t *pgTx) LockReservation(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := t.tx.GetContext(ctx, &res,
		`SELECT * FROM reservations WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "reservation not found")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "lock reservation", err)
	}

	err = t.tx.SelectContext(ctx, &res.Lines,
		`SELECT * FROM reservation_lines WHERE reservation_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "get reservation lines", err)
	}
	return &res, nil
}

func (t *pgTx) UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus, reason *string) error {
	res, err := t.tx.ExecContext(ctx, `
        UPDATE reservations
        SET status = $2, cancel_reason = COALESCE($3, cancel_reason), updated_at = now()
        WHERE id = $1`,
		id, status, reason)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "update reservation status", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "update reservation status", err)
	}
	if rows == 0 {
		return apperr.New(apperr.CodeNotFound, "reservation not found")
	}
	return nil
}

func (t *pgTx) CreateOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.NamedExecContext(ctx, `
        INSERT INTO orders (
            id, reservation_id, merchant_id, menu_id, status, total_amount,
            delivery_info, payment_info, inventory_reserved, created_at, updated_at
        )
        VALUES (
            :id, :reservation_id, :merchant_id, :menu_id, :status, :total_amount,
            :delivery_info, :payment_info, :inventory_reserved, :created_at, :updated_at
        )`, o)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "create order", err)
	}

	for i := range o.Items {
		_, err = t.tx.NamedExecContext(ctx, `
            INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
            VALUES (:id, :order_id, :product_id, :quantity, :unit_price)`, &o.Items[i])
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "create order item", err)
		}
	}
	return nil
}

func (t *pgTx) GetProductPrices(ctx context.Context, merchantID string, productIDs []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(productIDs))
	if len(productIDs) == 0 {
		return prices, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, price_per_pound FROM products WHERE merchant_id = ? AND id IN (?)`,
		merchantID, productIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "build price query", err)
	}
	query = t.tx.Rebind(query)

	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "get product prices", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "scan product price", err)
		}
		prices[id] = price
	}
	return prices, rows.Err()
}
