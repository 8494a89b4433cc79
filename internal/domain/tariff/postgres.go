package tariff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL tariff repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const tariffColumns = `id, type, title, amount, applies_to, active_from, active_to, status, created_at, updated_at`

// Create inserts a new tariff.
func (r *PostgresRepository) Create(ctx context.Context, t *Tariff) error {
	query := `
		INSERT INTO tariffs (id, type, title, amount, applies_to, active_from, active_to, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		t.ID, t.Type, t.Title, t.Amount, t.AppliesTo, t.ActiveFrom, t.ActiveTo, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tariff: %w", err)
	}
	return nil
}

// Update rewrites a tariff.
func (r *PostgresRepository) Update(ctx context.Context, t *Tariff) error {
	query := `
		UPDATE tariffs
		SET type = $2, title = $3, amount = $4, applies_to = $5, active_from = $6, active_to = $7, status = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		t.ID, t.Type, t.Title, t.Amount, t.AppliesTo, t.ActiveFrom, t.ActiveTo, t.Status,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update tariff: %w", err)
	}
	return nil
}

// GetByID retrieves one tariff.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tariffColumns+` FROM tariffs WHERE id = $1`, id)
	t := &Tariff{}
	err := row.Scan(&t.ID, &t.Type, &t.Title, &t.Amount, &t.AppliesTo, &t.ActiveFrom, &t.ActiveTo, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tariff: %w", err)
	}
	return t, nil
}

// ListByType returns all tariffs of one type.
func (r *PostgresRepository) ListByType(ctx context.Context, typ Type) ([]Tariff, error) {
	return r.list(ctx, `SELECT `+tariffColumns+` FROM tariffs WHERE type = $1 ORDER BY active_from`, typ)
}

// ListActiveOn returns active tariffs covering the given day.
func (r *PostgresRepository) ListActiveOn(ctx context.Context, day time.Time) ([]Tariff, error) {
	query := `
		SELECT ` + tariffColumns + `
		FROM tariffs
		WHERE status = 'active' AND active_from <= $1 AND (active_to IS NULL OR active_to >= $1)
		ORDER BY type, active_from`
	return r.list(ctx, query, day)
}

// List returns every tariff.
func (r *PostgresRepository) List(ctx context.Context) ([]Tariff, error) {
	return r.list(ctx, `SELECT `+tariffColumns+` FROM tariffs ORDER BY type, active_from`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Tariff, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []Tariff
	for rows.Next() {
		var t Tariff
		if err := rows.Scan(&t.ID, &t.Type, &t.Title, &t.Amount, &t.AppliesTo, &t.ActiveFrom, &t.ActiveTo,
			&t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tariff: %w", err)
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}
