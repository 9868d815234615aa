package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/greenlot/menu-order-service/internal/menu/dto"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/platform/postgres"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, m *model.Menu) error {
	query := `
        INSERT INTO menus (id, merchant_id, name, description, sort_order, is_active, created_at, updated_at)
        VALUES (:id, :merchant_id, :name, :description, :sort_order, :is_active, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, m)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Menu, error) {
	var menu model.Menu
	query := `SELECT * FROM menus WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &menu, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &menu, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.MenuFilters) ([]model.Menu, int, error) {
	var menus []model.Menu
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = :merchant_id")
		args["merchant_id"] = f.MerchantID
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM menus" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM menus" + whereClause + " ORDER BY sort_order ASC, name ASC"
	query += postgres.LimitOffset(f.Page, f.PageSize)

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &menus, args)
	if err != nil {
		return nil, 0, err
	}

	return menus, count, nil
}

func (r *PGRepository) Update(ctx context.Context, m *model.Menu) error {
	query := `
        UPDATE menus
        SET name = :name,
            description = :description,
            sort_order = :sort_order,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND merchant_id = :merchant_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, m)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM menus WHERE id = $1", id)
	return err
}
