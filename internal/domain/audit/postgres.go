package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append inserts an audit entry.
func (r *PostgresRepository) Append(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO audit_log (id, actor, role, action, entity, entity_id, before_state, after_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		e.ID, e.Actor, e.Role, e.Action, e.Entity, e.EntityID, e.Before, e.After,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns entries for one entity, newest first.
func (r *PostgresRepository) ListByEntity(ctx context.Context, entity, entityID string) ([]Entry, error) {
	query := `
		SELECT id, actor, role, action, entity, entity_id, before_state, after_state, created_at
		FROM audit_log
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.Actor, &e.Role, &e.Action, &e.Entity, &e.EntityID, &e.Before, &e.After, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
