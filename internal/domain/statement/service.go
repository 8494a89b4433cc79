package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/audit"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/billing"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/payment"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/registry"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/statement/match"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/statement/parser"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/metrics"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/money"
)

// Actor identifies the operator performing a mutation, for the audit trail.
type Actor struct {
	ID   string
	Role string
}

// Biller is the slice of the billing service the pipeline needs: a period
// for the payment's month and an accrual line for the plot.
type Biller interface {
	FindPeriod(ctx context.Context, year int, month time.Month) (*billing.Period, error)
	ResolvePeriod(ctx context.Context, year int, month time.Month) (*billing.Period, error)
	EnsureAccrual(ctx context.Context, plotID uuid.UUID, p *billing.Period, category string, amount decimal.Decimal) error
}

// Options tune the pipeline.
type Options struct {
	// PreviewRowCap bounds the rows echoed back by Preview; aggregates still
	// cover the whole file. Zero means no cap.
	PreviewRowCap int
	// MaxRows rejects oversized files before any processing.
	MaxRows int
	// Precedence overrides the matcher stage order.
	Precedence []match.Stage
}

// Service runs the statement import pipeline.
type Service struct {
	batches  Repository
	plots    registry.Repository
	payments payment.Repository
	biller   Biller
	audit    audit.Repository
	logger   *slog.Logger
	opts     Options
}

// NewService creates a statement import service.
func NewService(batches Repository, plots registry.Repository, payments payment.Repository,
	biller Biller, auditRepo audit.Repository, logger *slog.Logger, opts Options) *Service {
	return &Service{
		batches:  batches,
		plots:    plots,
		payments: payments,
		biller:   biller,
		audit:    auditRepo,
		logger:   logger,
		opts:     opts,
	}
}

// validated is one row that passed validation.
type validated struct {
	date     time.Time
	amount   decimal.Decimal
	category string
}

// dateLayouts accepted in statement files.
var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006"}

// validateRow is the single validation path shared by Preview and Confirm.
func validateRow(raw RawRow) (validated, error) {
	var v validated

	if strings.TrimSpace(raw.Date) == "" {
		return v, errors.New("дата не указана")
	}
	var err error
	for _, layout := range dateLayouts {
		if v.date, err = time.Parse(layout, strings.TrimSpace(raw.Date)); err == nil {
			break
		}
	}
	if err != nil {
		return v, fmt.Errorf("неверная дата %q", raw.Date)
	}

	v.amount, err = money.Parse(raw.Amount)
	if err != nil {
		return v, fmt.Errorf("неверная сумма %q", raw.Amount)
	}
	if !v.amount.IsPositive() {
		return v, fmt.Errorf("сумма должна быть положительной, получено %s", v.amount)
	}

	v.category = inferCategory(raw.Comment)
	return v, nil
}

// inferCategory derives the charge category from the payment purpose.
// Membership dues are the default.
func inferCategory(purpose string) string {
	p := strings.ToLower(purpose)
	switch {
	case strings.Contains(p, "электр"):
		return "electricity"
	case strings.Contains(p, "целев"):
		return "target"
	default:
		return "membership"
	}
}

// parseFile turns upload bytes into rows plus resolved columns. XLSX is
// detected by file name, everything else goes through the CSV parser.
func parseFile(fileName string, data []byte) ([][]string, parser.Columns, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		rows, err = parser.RowsFromXLSX(data)
		if err != nil {
			return nil, parser.Columns{}, err
		}
	} else {
		rows = parser.Parse(data, 0)
	}
	if len(rows) == 0 {
		return nil, parser.Columns{}, ErrEmptyFile
	}

	if parser.LooksLikeHeader(rows[0]) {
		return rows[1:], parser.ResolveHeader(rows[0]), nil
	}
	return rows, parser.DefaultStatementColumns(), nil
}

func rawFromCells(row []string, cols parser.Columns) RawRow {
	return RawRow{
		Date:       parser.Cell(row, cols.Date),
		Amount:     parser.Cell(row, cols.Amount),
		PlotNumber: parser.Cell(row, cols.PlotNumber),
		OwnerName:  parser.Cell(row, cols.OwnerName),
		Phone:      parser.Cell(row, cols.Phone),
		Comment:    parser.Cell(row, cols.Comment),
		Reference:  parser.Cell(row, cols.Reference),
	}
}

// Preview runs the dry-run phase: parse, validate, match and deduplicate
// without writing anything. It is safe to call repeatedly.
func (s *Service) Preview(ctx context.Context, fileName string, data []byte) (*PreviewResult, error) {
	rows, cols, err := parseFile(fileName, data)
	if err != nil {
		return nil, err
	}
	if s.opts.MaxRows > 0 && len(rows) > s.opts.MaxRows {
		return nil, ErrTooManyRows
	}

	matcher, err := s.newMatcher(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.payments.Fingerprints(ctx)
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{TotalRows: len(rows)}
	seen := make(map[string]struct{})
	periods := make(map[int]*uuid.UUID)

	for i, cells := range rows {
		raw := rawFromCells(cells, cols)
		p := RowPreview{
			RowIndex:   i,
			Date:       raw.Date,
			Amount:     raw.Amount,
			PlotNumber: raw.PlotNumber,
			OwnerName:  raw.OwnerName,
			Phone:      raw.Phone,
			Comment:    raw.Comment,
		}

		v, err := validateRow(raw)
		if err != nil {
			p.Status = RowError
			p.ErrorMessage = err.Error()
			res.ErrorRows++
			s.appendPreviewRow(res, p, "error")
			continue
		}
		p.Category = v.category
		p.PeriodID = s.periodFor(ctx, periods, v.date)

		m := matcher.Match(matchInput(raw))
		p.Candidates = m.Candidates
		p.MatchType = string(m.Stage)
		p.MatchConfidence = m.Confidence
		p.MatchWarning = m.Warning
		switch m.Status {
		case match.StatusAmbiguous:
			p.Status = RowError
			p.ErrorMessage = m.Reason
			res.ErrorRows++
			s.appendPreviewRow(res, p, "error")
			continue
		case match.StatusUnmatched:
			p.Status = RowError
			p.ErrorMessage = m.Reason
			res.ErrorRows++
			s.appendPreviewRow(res, p, "error")
			continue
		}
		p.MatchedPlotID = m.PlotID

		fp := Fingerprint(m.PlotID.String(), v.category, v.date, v.amount, raw.Comment, raw.Reference)
		_, inFile := seen[fp]
		_, inStore := stored[fp]
		if inFile || inStore {
			p.Status = RowDuplicate
			p.PotentialDuplicate = true
			res.DuplicateRows++
			s.appendPreviewRow(res, p, "duplicate")
			continue
		}
		seen[fp] = struct{}{}

		p.Status = RowOK
		res.ValidRows++
		s.appendPreviewRow(res, p, "ok")
	}

	return res, nil
}

// periodFor looks up the already-opened period for the row's month. Preview
// never creates periods, so an unknown month stays nil until Confirm.
func (s *Service) periodFor(ctx context.Context, cache map[int]*uuid.UUID, date time.Time) *uuid.UUID {
	key := date.Year()*100 + int(date.Month())
	if id, ok := cache[key]; ok {
		return id
	}
	var id *uuid.UUID
	if per, err := s.biller.FindPeriod(ctx, date.Year(), date.Month()); err == nil {
		id = &per.ID
	}
	cache[key] = id
	return id
}

func (s *Service) appendPreviewRow(res *PreviewResult, p RowPreview, status string) {
	metrics.ImportRows.WithLabelValues("preview", status).Inc()
	if s.opts.PreviewRowCap > 0 && len(res.Rows) >= s.opts.PreviewRowCap {
		return
	}
	res.Rows = append(res.Rows, p)
}

// Confirm commits accepted rows. Every row is re-validated and re-matched;
// client-echoed data is never trusted. Row failures are counted and
// reported, never abort the batch. The fingerprint check happens again
// inside the payment insert, closing the race with concurrent confirms.
func (s *Service) Confirm(ctx context.Context, fileName string, rows []RawRow, actor Actor) (*ConfirmResult, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	if s.opts.MaxRows > 0 && len(rows) > s.opts.MaxRows {
		return nil, ErrTooManyRows
	}

	matcher, err := s.newMatcher(ctx)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New()
	res := &ConfirmResult{BillingImportID: batchID}
	duplicates := 0

	skip := func(i int, reason string, status string) {
		res.SkippedCount++
		res.RowFailures = append(res.RowFailures, RowFailure{RowIndex: i, Reason: reason})
		metrics.ImportRows.WithLabelValues("confirm", status).Inc()
	}

	for i, raw := range rows {
		v, err := validateRow(raw)
		if err != nil {
			skip(i, err.Error(), "error")
			continue
		}

		m := matcher.Match(matchInput(raw))
		if m.Status != match.StatusMatched {
			skip(i, m.Reason, "error")
			continue
		}

		period, err := s.biller.ResolvePeriod(ctx, v.date.Year(), v.date.Month())
		if err != nil {
			skip(i, fmt.Sprintf("период не определен: %v", err), "error")
			continue
		}
		if err := s.biller.EnsureAccrual(ctx, *m.PlotID, period, v.category, v.amount); err != nil {
			if errors.Is(err, billing.ErrPeriodClosed) {
				skip(i, "период закрыт", "error")
				continue
			}
			skip(i, fmt.Sprintf("начисление не создано: %v", err), "error")
			continue
		}

		pay := &payment.Payment{
			PlotID:        *m.PlotID,
			PeriodID:      period.ID,
			Amount:        v.amount,
			PaidAt:        v.date,
			Method:        "bank",
			Reference:     raw.Reference,
			Comment:       raw.Comment,
			Category:      v.category,
			Fingerprint:   Fingerprint(m.PlotID.String(), v.category, v.date, v.amount, raw.Comment, raw.Reference),
			ImportBatchID: &batchID,
			CreatedBy:     actor.ID,
		}
		if err := s.payments.Insert(ctx, pay); err != nil {
			if errors.Is(err, payment.ErrDuplicateFingerprint) {
				duplicates++
				skip(i, "дубликат платежа", "duplicate")
				continue
			}
			skip(i, fmt.Sprintf("платеж не сохранен: %v", err), "error")
			continue
		}

		res.CreatedCount++
		metrics.ImportRows.WithLabelValues("confirm", "ok").Inc()
	}

	batch := &ImportBatch{
		ID:            batchID,
		FileName:      fileName,
		TotalRows:     len(rows),
		CreatedCount:  res.CreatedCount,
		SkippedCount:  res.SkippedCount,
		DuplicateRows: duplicates,
		RowFailures:   res.RowFailures,
		CreatedBy:     actor.ID,
	}
	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	metrics.ImportBatches.Inc()

	entry := audit.Record(actor.ID, actor.Role, "import.confirm", "import_batch", batchID.String(), nil, batch)
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry",
			slog.String("action", "import.confirm"),
			slog.Any("error", err))
	}

	s.logger.Info("statement import confirmed",
		slog.String("file", fileName),
		slog.Int("created", res.CreatedCount),
		slog.Int("skipped", res.SkippedCount),
		slog.String("actor", actor.ID))
	return res, nil
}

func (s *Service) newMatcher(ctx context.Context) (*match.Matcher, error) {
	plots, err := s.plots.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load plots: %w", err)
	}
	return match.New(plots, s.opts.Precedence), nil
}

func matchInput(raw RawRow) match.Input {
	return match.Input{
		PlotNumber: raw.PlotNumber,
		OwnerName:  raw.OwnerName,
		Phone:      raw.Phone,
		Purpose:    raw.Comment,
	}
}

// ListBatches returns confirmed batches, newest first.
func (s *Service) ListBatches(ctx context.Context) ([]ImportBatch, error) {
	return s.batches.ListBatches(ctx)
}

// GetBatch retrieves one confirmed batch.
func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*ImportBatch, error) {
	return s.batches.GetBatch(ctx, id)
}
