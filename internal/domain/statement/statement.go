package statement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RowStatus classifies one preview row.
type RowStatus string

const (
	RowOK        RowStatus = "OK"
	RowError     RowStatus = "ERROR"
	RowDuplicate RowStatus = "DUPLICATE"
)

var (
	// ErrEmptyFile is returned when the upload contains no data rows.
	ErrEmptyFile = errors.New("statement file has no rows")
	// ErrTooManyRows is returned when the upload exceeds the configured row
	// ceiling.
	ErrTooManyRows = errors.New("statement file exceeds the row limit")
	// ErrBatchNotFound is returned when the import batch id is unknown.
	ErrBatchNotFound = errors.New("import batch not found")
)

// RawRow carries one statement row's fields as received, before validation.
// Preview builds these from parsed cells; Confirm receives them back from
// the client and re-validates them through the same path.
type RawRow struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	PlotNumber string `json:"plotNumber"`
	OwnerName  string `json:"ownerName"`
	Phone      string `json:"phone"`
	Comment    string `json:"comment"`
	Reference  string `json:"reference"`
}

// RowPreview is the per-row report returned by Preview.
type RowPreview struct {
	RowIndex           int         `json:"rowIndex"`
	Date               string      `json:"date"`
	Amount             string      `json:"amount"`
	PlotNumber         string      `json:"plotNumber"`
	OwnerName          string      `json:"ownerName"`
	Phone              string      `json:"phone"`
	Comment            string      `json:"comment"`
	Status             RowStatus   `json:"status"`
	ErrorMessage       string      `json:"errorMessage,omitempty"`
	MatchedPlotID      *uuid.UUID  `json:"matchedPlotId,omitempty"`
	PeriodID           *uuid.UUID  `json:"periodId,omitempty"`
	MatchType          string      `json:"matchType,omitempty"`
	MatchConfidence    float64     `json:"matchConfidence,omitempty"`
	MatchWarning       bool        `json:"matchWarning,omitempty"`
	Candidates         []uuid.UUID `json:"candidates,omitempty"`
	Category           string      `json:"category,omitempty"`
	PotentialDuplicate bool        `json:"potentialDuplicate"`
}

// PreviewResult aggregates a dry-run import. Rows may be capped; the counts
// always cover the whole file.
type PreviewResult struct {
	Rows          []RowPreview `json:"rows"`
	TotalRows     int          `json:"totalRows"`
	ValidRows     int          `json:"validRows"`
	ErrorRows     int          `json:"errorRows"`
	DuplicateRows int          `json:"duplicateRows"`
}

// RowFailure records why one confirmed row was skipped.
type RowFailure struct {
	RowIndex int    `json:"rowIndex"`
	Reason   string `json:"reason"`
}

// ConfirmResult summarizes a committed import.
type ConfirmResult struct {
	BillingImportID uuid.UUID    `json:"billingImportId"`
	CreatedCount    int          `json:"createdCount"`
	SkippedCount    int          `json:"skippedCount"`
	RowFailures     []RowFailure `json:"rowFailures,omitempty"`
}

// ImportBatch is the persisted record of one confirmed upload. Append-only:
// counts and failures are written once at confirm time.
type ImportBatch struct {
	ID            uuid.UUID
	FileName      string
	TotalRows     int
	CreatedCount  int
	SkippedCount  int
	DuplicateRows int
	RowFailures   []RowFailure
	CreatedBy     string
	CreatedAt     time.Time
}

// Repository stores import batches.
type Repository interface {
	CreateBatch(ctx context.Context, b *ImportBatch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*ImportBatch, error)
	ListBatches(ctx context.Context) ([]ImportBatch, error)
}
