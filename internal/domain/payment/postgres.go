package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Pool is the slice of pgxpool.Pool the repository uses; pgxmock satisfies
// it in tests.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Pool = (*pgxpool.Pool)(nil)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository creates a new PostgreSQL payment repository.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const paymentColumns = `id, plot_id, period_id, amount, paid_at, method, reference, comment, category, fingerprint, import_batch_id, target_fund_id, created_by, created_at`

// Insert adds a payment. The unique index on fingerprint performs the
// write-time duplicate check; a 23505 maps to ErrDuplicateFingerprint.
func (r *PostgresRepository) Insert(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, plot_id, period_id, amount, paid_at, method, reference, comment, category, fingerprint, import_batch_id, target_fund_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.PlotID, p.PeriodID, p.Amount, p.PaidAt, p.Method, p.Reference, p.Comment,
		p.Category, p.Fingerprint, p.ImportBatchID, p.TargetFundID, p.CreatedBy,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateFingerprint
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetByID retrieves one payment.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p := &Payment{}
	err := row.Scan(&p.ID, &p.PlotID, &p.PeriodID, &p.Amount, &p.PaidAt, &p.Method, &p.Reference,
		&p.Comment, &p.Category, &p.Fingerprint, &p.ImportBatchID, &p.TargetFundID, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListByPlot returns a plot's payments, newest first.
func (r *PostgresRepository) ListByPlot(ctx context.Context, plotID uuid.UUID) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE plot_id = $1 ORDER BY paid_at DESC`
	rows, err := r.pool.Query(ctx, query, plotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PlotID, &p.PeriodID, &p.Amount, &p.PaidAt, &p.Method, &p.Reference,
			&p.Comment, &p.Category, &p.Fingerprint, &p.ImportBatchID, &p.TargetFundID, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Fingerprints returns all stored fingerprints.
func (r *PostgresRepository) Fingerprints(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT fingerprint FROM payments`)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		out[fp] = struct{}{}
	}
	return out, rows.Err()
}

// SumPaid returns the paid total for one accrual line. amountPaid is always
// derived here, never cached on the accrual row.
func (r *PostgresRepository) SumPaid(ctx context.Context, plotID, periodID uuid.UUID, category string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE plot_id = $1 AND period_id = $2 AND category = $3`,
		plotID, periodID, category,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}

// PaidByPlot returns paid totals grouped by plot.
func (r *PostgresRepository) PaidByPlot(ctx context.Context) ([]PlotTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT plot_id, COALESCE(SUM(amount), 0) FROM payments GROUP BY plot_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	defer rows.Close()

	var totals []PlotTotal
	for rows.Next() {
		var t PlotTotal
		if err := rows.Scan(&t.PlotID, &t.Total); err != nil {
			return nil, fmt.Errorf("failed to scan payment total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// AttachTargetFund links a payment to a fundraising goal.
func (r *PostgresRepository) AttachTargetFund(ctx context.Context, id, fundID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE payments SET target_fund_id = $2 WHERE id = $1`, id, fundID)
	if err != nil {
		return fmt.Errorf("failed to attach target fund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
