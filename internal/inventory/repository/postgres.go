package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/inventory/dto"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/platform/postgres"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByProduct(ctx context.Context, merchantID, productID string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	query := `SELECT * FROM inventory_items WHERE merchant_id = $1 AND product_id = $2`

	err := r.DB.GetContext(ctx, &item, query, merchantID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller handles defaults for missing rows
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "get inventory item", err)
	}
	return &item, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.InventoryFilters) ([]model.InventoryItem, int, error) {
	var items []model.InventoryItem
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = :merchant_id")
		args["merchant_id"] = f.MerchantID
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LowStock {
		conditions = append(conditions, "quantity <= reorder_point AND reorder_point > 0")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_items" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "count inventory items", err)
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM inventory_items" + whereClause + " ORDER BY updated_at DESC"
	query += postgres.LimitOffset(f.Page, f.PageSize)

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list inventory items", err)
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list inventory items", err)
	}
	return items, count, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	var items []model.InventoryMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = :merchant_id")
		args["merchant_id"] = f.MerchantID
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "count inventory movements", err)
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM inventory_movements" + whereClause + " ORDER BY created_at DESC"
	query += postgres.LimitOffset(f.Page, f.PageSize)

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list inventory movements", err)
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list inventory movements", err)
	}
	return items, count, nil
}

// AdjustStockWithMovement applies movement.QuantityChange on top of the
// current row value and logs the movement in one transaction. The row is
// locked with FOR UPDATE so adjustments serialize behind any reservation
// transaction holding the same lock instead of overwriting its write. On
// return item.Quantity and the movement's before/after reflect the locked
// row, not whatever the caller read earlier.
func (r *PGRepository) AdjustStockWithMovement(ctx context.Context, item *model.InventoryItem, movement *model.InventoryMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "begin transaction", err)
	}
	defer tx.Rollback()

	// Ensure the row exists before locking; item.ID is only used here.
	ensureQuery := `
        INSERT INTO inventory_items (
            id, merchant_id, product_id, quantity, reorder_point, updated_at
        )
        VALUES (
            :id, :merchant_id, :product_id, 0, 0, :updated_at
        )
        ON CONFLICT (merchant_id, product_id) DO NOTHING
    `
	_, err = tx.NamedExecContext(ctx, ensureQuery, item)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "create inventory item", err)
	}

	var current model.InventoryItem
	lockQuery := `SELECT * FROM inventory_items WHERE merchant_id = $1 AND product_id = $2 FOR UPDATE`
	err = tx.GetContext(ctx, &current, lockQuery, item.MerchantID, item.ProductID)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "lock inventory item", err)
	}

	after := current.Quantity + movement.QuantityChange
	if after < 0 {
		return apperr.Newf(apperr.CodeInsufficientStock,
			"insufficient stock for product %s: change %.2f would leave %.2f",
			item.ProductID, movement.QuantityChange, after)
	}

	updateQuery := `UPDATE inventory_items SET quantity = $1, updated_at = $2 WHERE merchant_id = $3 AND product_id = $4`
	_, err = tx.ExecContext(ctx, updateQuery, after, item.UpdatedAt, item.MerchantID, item.ProductID)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "update inventory item", err)
	}

	movement.QuantityBefore = current.Quantity
	movement.QuantityAfter = after

	insertLogQuery := `
        INSERT INTO inventory_movements (
            id, merchant_id, product_id, movement_type, quantity_change,
            quantity_before, quantity_after, reference_type, reference_id,
            notes, created_by, created_at
        )
        VALUES (
            :id, :merchant_id, :product_id, :movement_type, :quantity_change,
            :quantity_before, :quantity_after, :reference_type, :reference_id,
            :notes, :created_by, :created_at
        )
    `
	_, err = tx.NamedExecContext(ctx, insertLogQuery, movement)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "log inventory movement", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "commit transaction", err)
	}

	item.ID = current.ID
	item.ReorderPoint = current.ReorderPoint
	item.Quantity = after
	return nil
}
