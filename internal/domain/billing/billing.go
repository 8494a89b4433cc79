// Package billing owns accrual periods, the accrual generation engine and
// debt computation. Accruals are unique per (plot, period, category); the
// uniqueness check happens at insert time so repeated or concurrent
// generation never double-charges a plot.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodStatus is the billing period lifecycle state.
type PeriodStatus string

const (
	PeriodDraft  PeriodStatus = "draft"
	PeriodLocked PeriodStatus = "locked"
	PeriodClosed PeriodStatus = "closed"
)

var (
	// ErrPeriodNotFound is returned when the referenced period does not exist.
	ErrPeriodNotFound = errors.New("billing period not found")
	// ErrPeriodClosed signals a write attempt against a closed period.
	ErrPeriodClosed = errors.New("billing period is closed")
	// ErrDuplicatePeriod is returned when a period for the same year and
	// month already exists.
	ErrDuplicatePeriod = errors.New("billing period already exists for this month")
	// ErrNotReopenable is returned when reopen is called on a period that is
	// not closed.
	ErrNotReopenable = errors.New("only a closed period can be reopened")
)

// Period is one billing window. Periods are created explicitly by an
// operator, never auto-created by date rollover.
type Period struct {
	ID        uuid.UUID
	Year      int
	Month     time.Month
	Title     string
	Status    PeriodStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the period accepts new accruals and payments.
func (p *Period) Open() bool {
	return p.Status != PeriodClosed
}

// ChargeDay returns the reference day used to select active tariffs for the
// period, the first day of its month.
func (p *Period) ChargeDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Accrual is one charge posted to a plot for a period. The paid amount is
// never stored here; it is derived from payments on read.
type Accrual struct {
	ID            uuid.UUID
	PlotID        uuid.UUID
	PeriodID      uuid.UUID
	TariffID      *uuid.UUID
	Category      string
	AmountAccrued decimal.Decimal
	CreatedAt     time.Time
}

// PlotAccrued is an aggregate of accrued amounts per plot.
type PlotAccrued struct {
	PlotID uuid.UUID
	Total  decimal.Decimal
}

// PlotDebt is one row of the debts report.
type PlotDebt struct {
	PlotID     uuid.UUID
	PlotNumber string
	Owner      string
	Accrued    decimal.Decimal
	Paid       decimal.Decimal
	Debt       decimal.Decimal
}

// Repository stores periods and accruals.
type Repository interface {
	CreatePeriod(ctx context.Context, p *Period) error
	GetPeriod(ctx context.Context, id uuid.UUID) (*Period, error)
	GetPeriodByMonth(ctx context.Context, year int, month time.Month) (*Period, error)
	ListPeriods(ctx context.Context) ([]Period, error)
	SetPeriodStatus(ctx context.Context, id uuid.UUID, status PeriodStatus) error

	// InsertAccrual adds the accrual unless one already exists for the same
	// (plot, period, category). It reports whether a row was created. The
	// existence check and the insert are one operation, not a
	// check-then-insert against a stale snapshot.
	InsertAccrual(ctx context.Context, a *Accrual) (bool, error)
	ListAccrualsByPeriod(ctx context.Context, periodID uuid.UUID) ([]Accrual, error)
	// AccruedByPlot returns accrued totals grouped by plot across all periods.
	AccruedByPlot(ctx context.Context) ([]PlotAccrued, error)
}

// PeriodTitle builds the default Russian display title for a month.
func PeriodTitle(year int, month time.Month) string {
	names := [...]string{
		"январь", "февраль", "март", "апрель", "май", "июнь",
		"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
	}
	return fmt.Sprintf("%s %d", names[month-1], year)
}
