package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/audit"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/payment"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/registry"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/tariff"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/export"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/metrics"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/money"
)

var areaUnit = decimal.NewFromInt(100)

// Actor identifies the operator performing a mutation, for the audit trail.
type Actor struct {
	ID   string
	Role string
}

// GenerateResult reports accrual generation coverage so the operator can
// verify created == planned - alreadyCharged.
type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Service runs the accrual engine and period lifecycle.
type Service struct {
	repo     Repository
	plots    registry.Repository
	tariffs  tariff.Repository
	payments payment.Repository
	audit    audit.Repository
	logger   *slog.Logger
}

// NewService creates a billing service.
func NewService(repo Repository, plots registry.Repository, tariffs tariff.Repository,
	payments payment.Repository, auditRepo audit.Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		plots:    plots,
		tariffs:  tariffs,
		payments: payments,
		audit:    auditRepo,
		logger:   logger,
	}
}

// CreatePeriod registers a new billing month in draft state.
func (s *Service) CreatePeriod(ctx context.Context, year int, month time.Month, title string, actor Actor) (*Period, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	if year < 2000 || year > 2100 {
		return nil, fmt.Errorf("invalid year %d", year)
	}
	if title == "" {
		title = PeriodTitle(year, month)
	}

	p := &Period{Year: year, Month: month, Title: title, Status: PeriodDraft}
	if err := s.repo.CreatePeriod(ctx, p); err != nil {
		return nil, err
	}
	s.appendAudit(ctx, actor, "period.create", p.ID, nil, p)
	return p, nil
}

// Lock moves a draft period to locked.
func (s *Service) Lock(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.transition(ctx, id, actor, "period.lock", PeriodLocked, PeriodDraft)
}

// Close finishes a period. Closed periods reject accrual generation until
// explicitly reopened.
func (s *Service) Close(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.transition(ctx, id, actor, "period.close", PeriodClosed, PeriodDraft, PeriodLocked)
}

// Reopen returns a closed period to draft. This is the explicit confirmation
// step required before generating into a previously closed period.
func (s *Service) Reopen(ctx context.Context, id uuid.UUID, actor Actor) error {
	p, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != PeriodClosed {
		return ErrNotReopenable
	}
	if err := s.repo.SetPeriodStatus(ctx, id, PeriodDraft); err != nil {
		return err
	}
	after := *p
	after.Status = PeriodDraft
	s.appendAudit(ctx, actor, "period.reopen", id, p, &after)
	return nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor Actor, action string, to PeriodStatus, from ...PeriodStatus) error {
	p, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		return err
	}
	allowed := false
	for _, st := range from {
		if p.Status == st {
			allowed = true
		}
	}
	if !allowed {
		if p.Status == PeriodClosed {
			return ErrPeriodClosed
		}
		return fmt.Errorf("period %s cannot move from %s to %s", id, p.Status, to)
	}
	if err := s.repo.SetPeriodStatus(ctx, id, to); err != nil {
		return err
	}
	after := *p
	after.Status = to
	s.appendAudit(ctx, actor, action, id, p, &after)
	return nil
}

// GetPeriod retrieves one period.
func (s *Service) GetPeriod(ctx context.Context, id uuid.UUID) (*Period, error) {
	return s.repo.GetPeriod(ctx, id)
}

// ListPeriods returns all periods, newest first.
func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.repo.ListPeriods(ctx)
}

// ResolvePeriod finds the period for (year, month), creating a draft one when
// none exists. A create lost to a concurrent resolver falls back to the row
// that won.
func (s *Service) ResolvePeriod(ctx context.Context, year int, month time.Month) (*Period, error) {
	p, err := s.repo.GetPeriodByMonth(ctx, year, month)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrPeriodNotFound) {
		return nil, err
	}

	p = &Period{Year: year, Month: month, Title: PeriodTitle(year, month), Status: PeriodDraft}
	err = s.repo.CreatePeriod(ctx, p)
	if errors.Is(err, ErrDuplicatePeriod) {
		return s.repo.GetPeriodByMonth(ctx, year, month)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindPeriod returns the period covering (year, month) without creating
// one. ErrPeriodNotFound when no period exists for that month.
func (s *Service) FindPeriod(ctx context.Context, year int, month time.Month) (*Period, error) {
	return s.repo.GetPeriodByMonth(ctx, year, month)
}

// GenerateAccruals posts charges for every active plot and every tariff
// active on the period's charge day. Plots already charged for a category
// are skipped, so re-running generation never double-charges.
func (s *Service) GenerateAccruals(ctx context.Context, periodID uuid.UUID, actor Actor) (GenerateResult, error) {
	var res GenerateResult

	p, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return res, err
	}
	if !p.Open() {
		return res, ErrPeriodClosed
	}

	tariffs, err := s.tariffs.ListActiveOn(ctx, p.ChargeDay())
	if err != nil {
		return res, fmt.Errorf("failed to load active tariffs: %w", err)
	}
	plots, err := s.plots.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load plots: %w", err)
	}

	for _, plot := range plots {
		for _, t := range tariffs {
			tariffID := t.ID
			a := &Accrual{
				PlotID:        plot.ID,
				PeriodID:      p.ID,
				TariffID:      &tariffID,
				Category:      string(t.Type),
				AmountAccrued: chargeAmount(&t, &plot),
			}
			created, err := s.repo.InsertAccrual(ctx, a)
			if err != nil {
				return res, err
			}
			if created {
				res.Created++
			} else {
				res.Skipped++
			}
		}
	}

	metrics.AccrualsGenerated.Add(float64(res.Created))
	s.logger.Info("accruals generated",
		slog.String("period", p.Title),
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
		slog.String("actor", actor.ID))
	s.appendAudit(ctx, actor, "accruals.generate", periodID, nil, res)
	return res, nil
}

// chargeAmount applies the tariff amount to a plot. Area tariffs charge per
// 100 m², rounded to kopecks.
func chargeAmount(t *tariff.Tariff, p *registry.Plot) decimal.Decimal {
	if t.AppliesTo != tariff.AppliesToArea {
		return t.Amount
	}
	return t.Amount.Mul(p.AreaSqM).Div(areaUnit).Round(2)
}

// EnsureAccrual guarantees an accrual line exists for the plot before a
// payment is posted against it. Existing lines are left untouched.
func (s *Service) EnsureAccrual(ctx context.Context, plotID uuid.UUID, p *Period, category string, amount decimal.Decimal) error {
	if !p.Open() {
		return ErrPeriodClosed
	}
	a := &Accrual{
		PlotID:        plotID,
		PeriodID:      p.ID,
		Category:      category,
		AmountAccrued: amount,
	}
	_, err := s.repo.InsertAccrual(ctx, a)
	return err
}

// Debts computes accrued-minus-paid per active plot. Paid amounts are always
// derived from payments, never read from a cached column.
func (s *Service) Debts(ctx context.Context) ([]PlotDebt, decimal.Decimal, error) {
	plots, err := s.plots.ListActive(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load plots: %w", err)
	}
	accrued, err := s.repo.AccruedByPlot(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}
	paid, err := s.payments.PaidByPlot(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}

	accruedBy := make(map[uuid.UUID]decimal.Decimal, len(accrued))
	for _, a := range accrued {
		accruedBy[a.PlotID] = a.Total
	}
	paidBy := make(map[uuid.UUID]decimal.Decimal, len(paid))
	for _, p := range paid {
		paidBy[p.PlotID] = p.Total
	}

	debts := make([]PlotDebt, 0, len(plots))
	total := decimal.Zero
	for _, plot := range plots {
		d := PlotDebt{
			PlotID:     plot.ID,
			PlotNumber: plot.PlotNumber,
			Owner:      plot.OwnerFullName,
			Accrued:    accruedBy[plot.ID],
			Paid:       paidBy[plot.ID],
		}
		d.Debt = d.Accrued.Sub(d.Paid)
		debts = append(debts, d)
		total = total.Add(d.Debt)
	}
	return debts, total, nil
}

var debtHeader = []string{"Участок", "Собственник", "Начислено", "Оплачено", "Долг"}

// DebtsCSV renders the debts report as a BOM-prefixed semicolon CSV.
func (s *Service) DebtsCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.debtRows(ctx)
	if err != nil {
		return nil, err
	}
	return export.CSV(debtHeader, rows), nil
}

// DebtsXLSX renders the debts report as a workbook.
func (s *Service) DebtsXLSX(ctx context.Context) ([]byte, error) {
	rows, err := s.debtRows(ctx)
	if err != nil {
		return nil, err
	}
	return export.XLSX("Долги", debtHeader, rows)
}

func (s *Service) debtRows(ctx context.Context) ([][]string, error) {
	debts, _, err := s.Debts(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(debts))
	for _, d := range debts {
		rows = append(rows, []string{
			d.PlotNumber,
			d.Owner,
			money.ExportCell(d.Accrued),
			money.ExportCell(d.Paid),
			money.ExportCell(d.Debt),
		})
	}
	return rows, nil
}

// TotalDebt recomputes the outstanding total, for the snapshot job.
func (s *Service) TotalDebt(ctx context.Context) (decimal.Decimal, error) {
	_, total, err := s.Debts(ctx)
	return total, err
}

func (s *Service) appendAudit(ctx context.Context, actor Actor, action string, id uuid.UUID, before, after any) {
	entry := audit.Record(actor.ID, actor.Role, action, "period", id.String(), before, after)
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry",
			slog.String("action", action),
			slog.Any("error", err))
	}
}
