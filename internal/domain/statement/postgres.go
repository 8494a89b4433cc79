package statement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL. Row failures
// are stored as a jsonb document on the batch row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL import batch repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const batchColumns = `id, file_name, total_rows, created_count, skipped_count, duplicate_rows, row_failures, created_by, created_at`

// CreateBatch persists the batch summary.
func (r *PostgresRepository) CreateBatch(ctx context.Context, b *ImportBatch) error {
	failures, err := json.Marshal(b.RowFailures)
	if err != nil {
		return fmt.Errorf("failed to encode row failures: %w", err)
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO import_batches (id, file_name, total_rows, created_count, skipped_count, duplicate_rows, row_failures, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		b.ID, b.FileName, b.TotalRows, b.CreatedCount, b.SkippedCount, b.DuplicateRows, failures, b.CreatedBy,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import batch: %w", err)
	}
	return nil
}

// GetBatch retrieves one batch.
func (r *PostgresRepository) GetBatch(ctx context.Context, id uuid.UUID) (*ImportBatch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

// ListBatches returns all batches, newest first.
func (r *PostgresRepository) ListBatches(ctx context.Context) ([]ImportBatch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM import_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	defer rows.Close()

	var batches []ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func scanBatch(row pgx.Row) (*ImportBatch, error) {
	b := &ImportBatch{}
	var failures []byte
	err := row.Scan(&b.ID, &b.FileName, &b.TotalRows, &b.CreatedCount, &b.SkippedCount,
		&b.DuplicateRows, &failures, &b.CreatedBy, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import batch: %w", err)
	}
	if len(failures) > 0 {
		if err := json.Unmarshal(failures, &b.RowFailures); err != nil {
			return nil, fmt.Errorf("failed to decode row failures: %w", err)
		}
	}
	return b, nil
}
