package tariff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/audit"
)

var maxAmount = decimal.NewFromInt(1_000_000)

// Actor identifies the operator performing a mutation, for the audit trail.
type Actor struct {
	ID   string
	Role string
}

// CreateInput carries a new tariff. Dates are ISO strings as received from
// the admin form.
type CreateInput struct {
	Type            Type
	Title           string
	Amount          decimal.Decimal
	AppliesTo       AppliesTo
	ActiveFrom      string
	ActiveTo        string // empty = open-ended
	Status          Status
	OverrideOverlap bool
}

// UpdateInput is a partial tariff update. Nil fields keep current values.
type UpdateInput struct {
	ID              uuid.UUID
	Title           *string
	Amount          *decimal.Decimal
	AppliesTo       *AppliesTo
	ActiveFrom      *string
	ActiveTo        *string // pointer to "" clears the end date
	Status          *Status
	OverrideOverlap bool
}

// Service validates and persists tariffs.
type Service struct {
	repo   Repository
	audit  audit.Repository
	logger *slog.Logger
}

// NewService creates a tariff service.
func NewService(repo Repository, auditRepo audit.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: auditRepo, logger: logger}
}

// Create validates input, enforces the overlap invariant and stores the
// tariff. OverrideOverlap skips the check entirely; it is an explicit
// operator acknowledgement, recorded in the audit entry.
func (s *Service) Create(ctx context.Context, in CreateInput, actor Actor) (*Tariff, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	from, to, err := parseWindow(in.ActiveFrom, in.ActiveTo)
	if err != nil {
		return nil, err
	}

	t := &Tariff{
		ID:         uuid.New(),
		Type:       in.Type,
		Title:      in.Title,
		Amount:     in.Amount,
		AppliesTo:  in.AppliesTo,
		ActiveFrom: from,
		ActiveTo:   to,
		Status:     in.Status,
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.AppliesTo == "" {
		t.AppliesTo = AppliesToPlot
	}

	if t.Status == StatusActive && !in.OverrideOverlap {
		if err := s.checkOverlap(ctx, t, uuid.Nil); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, actor, "tariff.create", t.ID, nil, t, in.OverrideOverlap)
	return t, nil
}

// Update applies a partial patch with the same validation as Create. The
// overlap check excludes the tariff itself and only runs when the resulting
// status is active.
func (s *Service) Update(ctx context.Context, in UpdateInput, actor Actor) (*Tariff, error) {
	current, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	before := *current

	t := *current
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Amount != nil {
		if err := validateAmount(*in.Amount); err != nil {
			return nil, err
		}
		t.Amount = *in.Amount
	}
	if in.AppliesTo != nil {
		t.AppliesTo = *in.AppliesTo
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.ActiveFrom != nil {
		from, err := parseDate(*in.ActiveFrom)
		if err != nil {
			return nil, err
		}
		t.ActiveFrom = from
	}
	if in.ActiveTo != nil {
		if *in.ActiveTo == "" {
			t.ActiveTo = nil
		} else {
			to, err := parseDate(*in.ActiveTo)
			if err != nil {
				return nil, err
			}
			t.ActiveTo = &to
		}
	}
	if t.ActiveTo != nil && t.ActiveTo.Before(t.ActiveFrom) {
		return nil, fmt.Errorf("%w: activeTo precedes activeFrom", ErrInvalidWindow)
	}

	if t.Status == StatusActive && !in.OverrideOverlap {
		if err := s.checkOverlap(ctx, &t, t.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &t); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, actor, "tariff.update", t.ID, &before, &t, in.OverrideOverlap)
	return &t, nil
}

// List returns all tariffs.
func (s *Service) List(ctx context.Context) ([]Tariff, error) {
	return s.repo.List(ctx)
}

// Get returns one tariff by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	return s.repo.GetByID(ctx, id)
}

// checkOverlap compares the candidate window against other active tariffs of
// the same type.
func (s *Service) checkOverlap(ctx context.Context, t *Tariff, excludeID uuid.UUID) error {
	peers, err := s.repo.ListByType(ctx, t.Type)
	if err != nil {
		return fmt.Errorf("failed to load tariffs for overlap check: %w", err)
	}
	for _, peer := range peers {
		if peer.ID == excludeID || peer.Status != StatusActive {
			continue
		}
		if Overlaps(t.ActiveFrom, t.ActiveTo, peer.ActiveFrom, peer.ActiveTo) {
			return fmt.Errorf("%w: %s", ErrOverlap, peer.Title)
		}
	}
	return nil
}

func (s *Service) appendAudit(ctx context.Context, actor Actor, action string, id uuid.UUID, before, after *Tariff, override bool) {
	entry := audit.Record(actor.ID, actor.Role, action, "tariff", id.String(), before, after)
	if override {
		entry.Action += ".override_overlap"
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append tariff audit entry", slog.Any("error", err))
	}
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

func parseWindow(fromStr, toStr string) (time.Time, *time.Time, error) {
	from, err := parseDate(fromStr)
	if err != nil {
		return time.Time{}, nil, err
	}
	if toStr == "" {
		return from, nil, nil
	}
	to, err := parseDate(toStr)
	if err != nil {
		return time.Time{}, nil, err
	}
	if to.Before(from) {
		return time.Time{}, nil, fmt.Errorf("%w: activeTo precedes activeFrom", ErrInvalidWindow)
	}
	return from, &to, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidWindow, s)
	}
	return t, nil
}
