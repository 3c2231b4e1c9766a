package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gtind/internal/registration/models"
	"gtind/pkg/platform/sentinel"
)

const assignmentColumns = `
	id, product_ref, gtin, contract_number, status, invocation_id,
	error_message, packaging_type, net_content, measurement_unit,
	consumer_unit, gpc_code, external_registration,
	created_at, updated_at, registered_at
`

// PostgresStore persists GTIN assignments in PostgreSQL. Status transitions
// go through a compare-and-swap UPDATE so a record cannot be mutated by two
// in-flight operations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO gtin_assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.ProductRef, a.GTIN, a.ContractNumber, string(a.Status), a.InvocationID,
		a.ErrorMessage, a.PackagingType, a.NetContent, a.MeasurementUnit,
		a.ConsumerUnit, a.GPCCode, a.ExternalRegistration,
		a.CreatedAt, a.UpdatedAt, a.RegisteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByProductRef(ctx context.Context, productRef string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM gtin_assignments WHERE product_ref = $1`
	return s.findOne(ctx, query, productRef)
}

func (s *PostgresStore) FindByGTIN(ctx context.Context, gtin12 string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM gtin_assignments WHERE gtin = $1`
	return s.findOne(ctx, query, gtin12)
}

func (s *PostgresStore) FindByGTINAndInvocation(ctx context.Context, gtin12, invocationID string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM gtin_assignments WHERE gtin = $1 AND invocation_id = $2`
	return s.findOne(ctx, query, gtin12, invocationID)
}

// FindPendingByContractAndInvocation returns one assignment still awaiting
// results for the contract/invocation pairing. Registry error entries carry
// only a contract number, so this is the best available match.
func (s *PostgresStore) FindPendingByContractAndInvocation(ctx context.Context, contractNumber, invocationID string) (*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM gtin_assignments
		WHERE contract_number = $1 AND invocation_id = $2 AND status = $3
		ORDER BY gtin
		LIMIT 1
	`
	return s.findOne(ctx, query, contractNumber, invocationID, string(models.StatusPendingRegistration))
}

// Update persists the mutable columns if the stored status still equals
// expect. The gtin and contract_number columns are deliberately absent from
// the SET list.
func (s *PostgresStore) Update(ctx context.Context, a *models.Assignment, expect models.Status) error {
	query := `
		UPDATE gtin_assignments
		SET status = $2, invocation_id = $3, error_message = $4,
		    packaging_type = $5, net_content = $6, measurement_unit = $7,
		    consumer_unit = $8, gpc_code = $9, external_registration = $10,
		    updated_at = $11, registered_at = $12
		WHERE product_ref = $1 AND status = $13
	`
	result, err := s.db.ExecContext(ctx, query,
		a.ProductRef, string(a.Status), a.InvocationID, a.ErrorMessage,
		a.PackagingType, a.NetContent, a.MeasurementUnit,
		a.ConsumerUnit, a.GPCCode, a.ExternalRegistration,
		a.UpdatedAt, a.RegisteredAt, string(expect),
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment rows affected: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByProductRef(ctx, a.ProductRef); findErr != nil {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, productRef string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM gtin_assignments WHERE product_ref = $1`, productRef)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM gtin_assignments ORDER BY gtin`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PendingInvocations(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT invocation_id
		FROM gtin_assignments
		WHERE status = $1 AND invocation_id IS NOT NULL
		ORDER BY invocation_id
	`
	rows, err := s.db.QueryContext(ctx, query, string(models.StatusPendingRegistration))
	if err != nil {
		return nil, fmt.Errorf("pending invocations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan invocation id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GTINExists reports whether the identifier has already been issued.
func (s *PostgresStore) GTINExists(ctx context.Context, gtin12 string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM gtin_assignments WHERE gtin = $1)`, gtin12,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("gtin exists: %w", err)
	}
	return exists, nil
}

// MaxAssignedInRange returns the highest issued identifier inside the
// contract's range, or empty when none exists. Identifiers are fixed-width
// zero-padded, so string order is numeric order.
func (s *PostgresStore) MaxAssignedInRange(ctx context.Context, contractNumber, start12, end12 string) (string, error) {
	var highest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(gtin)
		FROM gtin_assignments
		WHERE contract_number = $1 AND gtin BETWEEN $2 AND $3
	`, contractNumber, start12, end12).Scan(&highest)
	if err != nil {
		return "", fmt.Errorf("max assigned in range: %w", err)
	}
	if !highest.Valid {
		return "", nil
	}
	return highest.String, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return a, nil
}

type assignmentRow interface {
	Scan(dest ...any) error
}

func scanAssignment(row assignmentRow) (*models.Assignment, error) {
	var a models.Assignment
	var status string
	var invocationID, errorMessage, gpcCode sql.NullString
	var netContent sql.NullFloat64
	var registeredAt sql.NullTime
	if err := row.Scan(
		&a.ID, &a.ProductRef, &a.GTIN, &a.ContractNumber, &status, &invocationID,
		&errorMessage, &a.PackagingType, &netContent, &a.MeasurementUnit,
		&a.ConsumerUnit, &gpcCode, &a.ExternalRegistration,
		&a.CreatedAt, &a.UpdatedAt, &registeredAt,
	); err != nil {
		return nil, err
	}
	a.Status = models.Status(status)
	if invocationID.Valid {
		a.InvocationID = &invocationID.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = &errorMessage.String
	}
	if gpcCode.Valid {
		a.GPCCode = &gpcCode.String
	}
	if netContent.Valid {
		a.NetContent = &netContent.Float64
	}
	if registeredAt.Valid {
		a.RegisteredAt = &registeredAt.Time
	}
	return &a, nil
}
