package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/platform/postgres"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "order not found")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "get order", err)
	}

	err = r.DB.SelectContext(ctx, &o.Items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "get order items", err)
	}
	return &o, nil
}

func (r *PGRepository) FindByMerchant(ctx context.Context, merchantID string, page, pageSize int) ([]model.Order, int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count,
		`SELECT count(*) FROM orders WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "count orders", err)
	}

	query := `SELECT * FROM orders WHERE merchant_id = $1 ORDER BY created_at DESC`
	query += postgres.LimitOffset(page, pageSize)

	var orders []model.Order
	err = r.DB.SelectContext(ctx, &orders, query, merchantID)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list orders", err)
	}
	return orders, count, nil
}
