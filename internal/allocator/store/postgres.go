package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gtind/internal/allocator/models"
	"gtind/pkg/platform/sentinel"
)

// PostgresStore persists GTIN ranges in PostgreSQL.
// Candidate computation and collision handling
// belong in the allocator service, which runs inside the Advance callback
// while the row is locked.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByContract(ctx context.Context, contractNumber string) (*models.Range, error) {
	query := `
		SELECT id, contract_number, start_number, end_number, last_used, capacity, updated_at
		FROM gtin_ranges
		WHERE contract_number = $1
		ORDER BY start_number
		LIMIT 1
	`
	r, err := scanRange(s.db.QueryRowContext(ctx, query, contractNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find range: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Range, error) {
	query := `
		SELECT id, contract_number, start_number, end_number, last_used, capacity, updated_at
		FROM gtin_ranges
		ORDER BY contract_number, start_number
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ranges: %w", err)
	}
	defer rows.Close()

	var out []*models.Range
	for rows.Next() {
		r, err := scanRange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan range: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceAll truncates the table and inserts the given set in one
// transaction. Range sync treats the registry response as authoritative, so
// stale high-water marks from reissued ranges cannot survive a refresh.
func (s *PostgresStore) ReplaceAll(ctx context.Context, ranges []*models.Range) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace ranges: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE gtin_ranges`); err != nil {
		return fmt.Errorf("truncate ranges: %w", err)
	}
	insert := `
		INSERT INTO gtin_ranges (contract_number, start_number, end_number, last_used, capacity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, r := range ranges {
		if _, err := tx.ExecContext(ctx, insert,
			r.ContractNumber, r.StartNumber, r.EndNumber, r.LastUsed, r.Capacity, r.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert range %s: %w", r.ContractNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace ranges: %w", err)
	}
	return nil
}

// Advance locks the contract's row with SELECT ... FOR UPDATE, runs fn on the
// current state, and persists the last-used value fn returns. The row lock
// serializes concurrent allocations per contract, so two callers can never be
// issued the same value.
func (s *PostgresStore) Advance(ctx context.Context, contractNumber string, fn func(r *models.Range) (string, error)) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin advance: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT id, contract_number, start_number, end_number, last_used, capacity, updated_at
		FROM gtin_ranges
		WHERE contract_number = $1
		ORDER BY start_number
		LIMIT 1
		FOR UPDATE
	`
	r, err := scanRange(tx.QueryRowContext(ctx, query, contractNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("lock range: %w", err)
	}

	issued, err := fn(r)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE gtin_ranges SET last_used = $2, updated_at = $3 WHERE id = $1`,
		r.ID, issued, r.UpdatedAt,
	); err != nil {
		return "", fmt.Errorf("advance range: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit advance: %w", err)
	}
	return issued, nil
}

func (s *PostgresStore) SetLastUsed(ctx context.Context, contractNumber string, lastUsed *string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE gtin_ranges SET last_used = $2, updated_at = NOW() WHERE contract_number = $1`,
		contractNumber, lastUsed,
	)
	if err != nil {
		return fmt.Errorf("set last used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set last used rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rangeRow interface {
	Scan(dest ...any) error
}

func scanRange(row rangeRow) (*models.Range, error) {
	var r models.Range
	var lastUsed sql.NullString
	var updatedAt time.Time
	if err := row.Scan(&r.ID, &r.ContractNumber, &r.StartNumber, &r.EndNumber, &lastUsed, &r.Capacity, &updatedAt); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		r.LastUsed = &lastUsed.String
	}
	r.UpdatedAt = updatedAt
	return &r, nil
}
