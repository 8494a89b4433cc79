package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL plot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const plotColumns = `id, plot_number, street, owner_full_name, phone, email, cadastral, area_sqm, status, created_at, updated_at`

// Create inserts a new plot.
func (r *PostgresRepository) Create(ctx context.Context, p *Plot) error {
	query := `
		INSERT INTO plots (id, plot_number, street, owner_full_name, phone, email, cadastral, area_sqm, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	p.PlotNumber = NormalizeNumber(p.PlotNumber)

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.PlotNumber, p.Street, p.OwnerFullName, p.Phone, p.Email, p.Cadastral, p.AreaSqM, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("failed to create plot: %w", err)
	}
	return nil
}

// Update rewrites mutable plot fields.
func (r *PostgresRepository) Update(ctx context.Context, p *Plot) error {
	query := `
		UPDATE plots
		SET street = $2, owner_full_name = $3, phone = $4, email = $5, cadastral = $6, area_sqm = $7, status = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.Street, p.OwnerFullName, p.Phone, p.Email, p.Cadastral, p.AreaSqM, p.Status,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update plot: %w", err)
	}
	return nil
}

// GetByID retrieves a plot by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Plot, error) {
	query := `SELECT ` + plotColumns + ` FROM plots WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByNumber retrieves a plot by its normalized number.
func (r *PostgresRepository) GetByNumber(ctx context.Context, number string) (*Plot, error) {
	query := `SELECT ` + plotColumns + ` FROM plots WHERE plot_number = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, NormalizeNumber(number)))
}

// ListActive returns all non-archived plots ordered by number.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]Plot, error) {
	query := `SELECT ` + plotColumns + ` FROM plots WHERE status = $1 ORDER BY plot_number`
	rows, err := r.pool.Query(ctx, query, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list plots: %w", err)
	}
	defer rows.Close()

	var plots []Plot
	for rows.Next() {
		var p Plot
		if err := rows.Scan(&p.ID, &p.PlotNumber, &p.Street, &p.OwnerFullName, &p.Phone, &p.Email,
			&p.Cadastral, &p.AreaSqM, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plot: %w", err)
		}
		plots = append(plots, p)
	}
	return plots, rows.Err()
}

// Archive flips the plot status; the row stays for historic accruals.
func (r *PostgresRepository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE plots SET status = $2, updated_at = now() WHERE id = $1`, id, StatusArchived)
	if err != nil {
		return fmt.Errorf("failed to archive plot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Plot, error) {
	p := &Plot{}
	err := row.Scan(&p.ID, &p.PlotNumber, &p.Street, &p.OwnerFullName, &p.Phone, &p.Email,
		&p.Cadastral, &p.AreaSqM, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plot: %w", err)
	}
	return p, nil
}
