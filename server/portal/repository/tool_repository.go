package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type ToolRepository struct {
	pool *pgxpool.Pool
}

func NewToolRepository(pool *pgxpool.Pool) *ToolRepository {
	return &ToolRepository{pool: pool}
}

func (r *ToolRepository) ListActive(ctx context.Context) ([]domain.CustomTool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, url, category, icon_name, created_by, is_active, created_at
		FROM custom_tools
		WHERE is_active=TRUE
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CustomTool, 0)
	for rows.Next() {
		var t domain.CustomTool
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.URL, &t.Category, &t.IconName, &t.CreatedBy, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *ToolRepository) Create(ctx context.Context, t domain.CustomTool) (domain.CustomTool, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO custom_tools (name, description, url, category, icon_name, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at
	`, t.Name, t.Description, t.URL, t.Category, t.IconName, t.CreatedBy).Scan(&t.ID, &t.IsActive, &t.CreatedAt)
	return t, err
}

// SoftDelete deactivates a tool; only its creator may remove it.
func (r *ToolRepository) SoftDelete(ctx context.Context, id, createdBy string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE custom_tools SET is_active=FALSE WHERE id=$1 AND created_by=$2
	`, id, createdBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
