package store

import (
	"context"
	"database/sql"
	"fmt"

	"gtind/internal/refdata/models"
	"gtind/pkg/platform/sentinel"
)

// PostgresStore persists reference items and category mappings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, category models.Category, activeOnly bool) ([]*models.Item, error) {
	query := `
		SELECT id, category, label_nl, label_en, code, is_active, created_at
		FROM reference_items
		WHERE ($1 = '' OR category = $1)
		  AND (NOT $2 OR is_active)
		ORDER BY category, label_nl
	`
	rows, err := s.db.QueryContext(ctx, query, string(category), activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list reference items: %w", err)
	}
	defer rows.Close()

	var out []*models.Item
	for rows.Next() {
		var item models.Item
		var code sql.NullString
		if err := rows.Scan(&item.ID, &item.Category, &item.LabelNL, &item.LabelEN, &code, &item.IsActive, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reference item: %w", err)
		}
		if code.Valid {
			item.Code = &code.String
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, item *models.Item) (int64, error) {
	if item.ID == 0 {
		query := `
			INSERT INTO reference_items (category, label_nl, label_en, code, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := s.db.QueryRowContext(ctx, query,
			item.Category, item.LabelNL, item.LabelEN, item.Code, item.IsActive, item.CreatedAt,
		).Scan(&item.ID); err != nil {
			return 0, fmt.Errorf("insert reference item: %w", err)
		}
		return item.ID, nil
	}

	query := `
		UPDATE reference_items
		SET category = $2, label_nl = $3, label_en = $4, code = $5, is_active = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		item.ID, item.Category, item.LabelNL, item.LabelEN, item.Code, item.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("update reference item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update reference item rows affected: %w", err)
	}
	if rows == 0 {
		return 0, sentinel.ErrNotFound
	}
	return item.ID, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reference_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reference item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reference item rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reference items: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) FindMapping(ctx context.Context, categoryRef string) (*models.CategoryMapping, error) {
	query := `
		SELECT id, category_ref, gpc_code, gpc_title, created_at
		FROM category_mappings
		WHERE category_ref = $1
	`
	var m models.CategoryMapping
	err := s.db.QueryRowContext(ctx, query, categoryRef).
		Scan(&m.ID, &m.CategoryRef, &m.GPCCode, &m.GPCTitle, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find category mapping: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) SaveMapping(ctx context.Context, m *models.CategoryMapping) (int64, error) {
	query := `
		INSERT INTO category_mappings (category_ref, gpc_code, gpc_title, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category_ref) DO UPDATE SET
			gpc_code = EXCLUDED.gpc_code,
			gpc_title = EXCLUDED.gpc_title
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, m.CategoryRef, m.GPCCode, m.GPCTitle, m.CreatedAt).Scan(&m.ID); err != nil {
		return 0, fmt.Errorf("save category mapping: %w", err)
	}
	return m.ID, nil
}

func (s *PostgresStore) ListMappings(ctx context.Context) ([]*models.CategoryMapping, error) {
	query := `
		SELECT id, category_ref, gpc_code, gpc_title, created_at
		FROM category_mappings
		ORDER BY category_ref
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list category mappings: %w", err)
	}
	defer rows.Close()

	var out []*models.CategoryMapping
	for rows.Next() {
		var m models.CategoryMapping
		if err := rows.Scan(&m.ID, &m.CategoryRef, &m.GPCCode, &m.GPCTitle, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category mapping: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteMapping(ctx context.Context, categoryRef string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM category_mappings WHERE category_ref = $1`, categoryRef)
	if err != nil {
		return fmt.Errorf("delete category mapping: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category mapping rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
