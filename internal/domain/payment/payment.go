// Package payment stores bank/cash transactions linked to plots and accrual
// periods. Rows are immutable once created except for linkage fields; the
// fingerprint uniqueness invariant is enforced at write time.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateFingerprint signals that a payment with the same fingerprint
	// already exists. The import pipeline counts such rows as duplicates.
	ErrDuplicateFingerprint = errors.New("payment fingerprint already exists")
	// ErrNotFound is returned when the payment id is unknown.
	ErrNotFound = errors.New("payment not found")
)

// Payment is one settled transaction.
type Payment struct {
	ID            uuid.UUID
	PlotID        uuid.UUID
	PeriodID      uuid.UUID
	Amount        decimal.Decimal
	PaidAt        time.Time
	Method        string // "bank", "cash"
	Reference     string // bank document number
	Comment       string
	Category      string
	Fingerprint   string
	ImportBatchID *uuid.UUID
	TargetFundID  *uuid.UUID
	CreatedBy     string
	CreatedAt     time.Time
}

// PlotTotal is an aggregate of paid amounts per plot.
type PlotTotal struct {
	PlotID uuid.UUID
	Total  decimal.Decimal
}

// Repository stores payments.
type Repository interface {
	// Insert adds a payment, returning ErrDuplicateFingerprint when the
	// fingerprint is already present. The check happens inside the insert,
	// not against an earlier snapshot, so concurrent confirms cannot both
	// land the same logical payment.
	Insert(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByPlot(ctx context.Context, plotID uuid.UUID) ([]Payment, error)
	// Fingerprints returns the set of all stored fingerprints.
	Fingerprints(ctx context.Context) (map[string]struct{}, error)
	// SumPaid returns the paid total for one accrual line.
	SumPaid(ctx context.Context, plotID, periodID uuid.UUID, category string) (decimal.Decimal, error)
	// PaidByPlot returns paid totals grouped by plot.
	PaidByPlot(ctx context.Context) ([]PlotTotal, error)
	// AttachTargetFund links a payment to a fundraising goal; the only
	// permitted post-create mutation.
	AttachTargetFund(ctx context.Context, id, fundID uuid.UUID) error
}
