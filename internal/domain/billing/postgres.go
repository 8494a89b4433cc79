package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL billing repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const periodColumns = `id, year, month, title, status, created_at, updated_at`

// CreatePeriod inserts a period. A 23505 on (year, month) maps to
// ErrDuplicatePeriod.
func (r *PostgresRepository) CreatePeriod(ctx context.Context, p *Period) error {
	query := `
		INSERT INTO billing_periods (id, year, month, title, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query, p.ID, p.Year, int(p.Month), p.Title, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePeriod
		}
		return fmt.Errorf("failed to create billing period: %w", err)
	}
	return nil
}

// GetPeriod retrieves one period.
func (r *PostgresRepository) GetPeriod(ctx context.Context, id uuid.UUID) (*Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM billing_periods WHERE id = $1`, id)
	return scanPeriod(row)
}

// GetPeriodByMonth retrieves the period for a (year, month) pair.
func (r *PostgresRepository) GetPeriodByMonth(ctx context.Context, year int, month time.Month) (*Period, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM billing_periods WHERE year = $1 AND month = $2`,
		year, int(month))
	return scanPeriod(row)
}

func scanPeriod(row pgx.Row) (*Period, error) {
	p := &Period{}
	var month int
	err := row.Scan(&p.ID, &p.Year, &month, &p.Title, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPeriodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get billing period: %w", err)
	}
	p.Month = time.Month(month)
	return p, nil
}

// ListPeriods returns all periods, newest first.
func (r *PostgresRepository) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+periodColumns+` FROM billing_periods ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing periods: %w", err)
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		var p Period
		var month int
		if err := rows.Scan(&p.ID, &p.Year, &month, &p.Title, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan billing period: %w", err)
		}
		p.Month = time.Month(month)
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// SetPeriodStatus moves a period through its lifecycle.
func (r *PostgresRepository) SetPeriodStatus(ctx context.Context, id uuid.UUID, status PeriodStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE billing_periods SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update period status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

// InsertAccrual inserts unless (plot, period, category) is already charged.
// ON CONFLICT DO NOTHING keeps the check and the insert in one statement.
func (r *PostgresRepository) InsertAccrual(ctx context.Context, a *Accrual) (bool, error) {
	query := `
		INSERT INTO accruals (id, plot_id, period_id, tariff_id, category, amount_accrued)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (plot_id, period_id, category) DO NOTHING`

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.PlotID, a.PeriodID, a.TariffID, a.Category, a.AmountAccrued)
	if err != nil {
		return false, fmt.Errorf("failed to insert accrual: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListAccrualsByPeriod returns a period's accruals.
func (r *PostgresRepository) ListAccrualsByPeriod(ctx context.Context, periodID uuid.UUID) ([]Accrual, error) {
	query := `
		SELECT id, plot_id, period_id, tariff_id, category, amount_accrued, created_at
		FROM accruals WHERE period_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruals: %w", err)
	}
	defer rows.Close()

	var accruals []Accrual
	for rows.Next() {
		var a Accrual
		if err := rows.Scan(&a.ID, &a.PlotID, &a.PeriodID, &a.TariffID, &a.Category, &a.AmountAccrued, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan accrual: %w", err)
		}
		accruals = append(accruals, a)
	}
	return accruals, rows.Err()
}

// AccruedByPlot returns accrued totals grouped by plot.
func (r *PostgresRepository) AccruedByPlot(ctx context.Context) ([]PlotAccrued, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT plot_id, COALESCE(SUM(amount_accrued), 0) FROM accruals GROUP BY plot_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accruals: %w", err)
	}
	defer rows.Close()

	var totals []PlotAccrued
	for rows.Next() {
		var t PlotAccrued
		if err := rows.Scan(&t.PlotID, &t.Total); err != nil {
			return nil, fmt.Errorf("failed to scan accrued total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
