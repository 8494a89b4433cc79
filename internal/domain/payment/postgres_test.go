package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepositoryInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("successful insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPostgresRepository(mock)
		p := &Payment{
			PlotID:      uuid.New(),
			PeriodID:    uuid.New(),
			Amount:      decimal.RequireFromString("1500"),
			PaidAt:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Method:      "bank",
			Category:    "membership",
			Fingerprint: "fp-abc",
			CreatedBy:   "office-1",
		}

		now := time.Now()
		mock.ExpectQuery(`INSERT INTO payments`).
			WithArgs(pgxmock.AnyArg(), p.PlotID, p.PeriodID, p.Amount, p.PaidAt, "bank", "", "",
				"membership", "fp-abc", p.ImportBatchID, p.TargetFundID, "office-1").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

		require.NoError(t, repo.Insert(ctx, p))
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, now, p.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrDuplicateFingerprint", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPostgresRepository(mock)
		args := make([]any, 13)
		for i := range args {
			args[i] = pgxmock.AnyArg()
		}
		mock.ExpectQuery(`INSERT INTO payments`).
			WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_fingerprint_key"})

		err = repo.Insert(ctx, &Payment{Fingerprint: "fp-dup"})
		require.ErrorIs(t, err, ErrDuplicateFingerprint)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepositorySumPaid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	plotID, periodID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)`).
		WithArgs(plotID, periodID, "membership").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.RequireFromString("2000")))

	total, err := repo.SumPaid(context.Background(), plotID, periodID, "membership")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("2000")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryAttachTargetFund(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id, fundID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE payments SET target_fund_id`).
		WithArgs(id, fundID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.AttachTargetFund(context.Background(), id, fundID)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
