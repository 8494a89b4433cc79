// Package tariff manages fee tariffs and the active-window overlap invariant.
package tariff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the charge category a tariff belongs to.
type Type string

const (
	TypeMembership  Type = "membership"
	TypeElectricity Type = "electricity"
	TypeTarget      Type = "target"
)

// Status is the tariff lifecycle state. Only active tariffs participate in
// overlap checks and accrual generation.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

// AppliesTo selects how the amount is applied.
type AppliesTo string

const (
	AppliesToPlot AppliesTo = "plot" // flat amount per plot
	AppliesToArea AppliesTo = "area" // amount per 100 m² of plot area
)

var (
	// ErrOverlap signals that an active tariff of the same type already covers
	// part of the requested window.
	ErrOverlap = errors.New("tariff window overlaps an active tariff of the same type")
	// ErrNotFound is returned when the tariff id is unknown.
	ErrNotFound = errors.New("tariff not found")
	// ErrInvalidAmount is returned for non-positive or oversized amounts.
	ErrInvalidAmount = errors.New("tariff amount must be in (0, 1000000]")
	// ErrInvalidWindow is returned for unparseable or inverted date windows.
	ErrInvalidWindow = errors.New("invalid tariff window")
)

// Tariff is a named charge rule with an effective window. A nil ActiveTo
// means the window is open-ended.
type Tariff struct {
	ID         uuid.UUID
	Type       Type
	Title      string
	Amount     decimal.Decimal
	AppliesTo  AppliesTo
	ActiveFrom time.Time
	ActiveTo   *time.Time
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ActiveOn reports whether the tariff window covers the given day.
func (t *Tariff) ActiveOn(day time.Time) bool {
	if t.Status != StatusActive {
		return false
	}
	if day.Before(t.ActiveFrom) {
		return false
	}
	return t.ActiveTo == nil || !day.After(*t.ActiveTo)
}

// Overlaps reports whether two windows intersect. Either end may be open
// (nil = +∞): [aFrom, aTo] ∩ [bFrom, bTo] ≠ ∅ iff aFrom <= bTo && bFrom <= aTo.
func Overlaps(aFrom time.Time, aTo *time.Time, bFrom time.Time, bTo *time.Time) bool {
	if aTo != nil && bFrom.After(*aTo) {
		return false
	}
	if bTo != nil && aFrom.After(*bTo) {
		return false
	}
	return true
}

// Repository stores tariffs.
type Repository interface {
	Create(ctx context.Context, t *Tariff) error
	Update(ctx context.Context, t *Tariff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error)
	// ListByType returns all tariffs of one type regardless of status.
	ListByType(ctx context.Context, typ Type) ([]Tariff, error)
	// ListActiveOn returns active tariffs whose window covers the given day.
	ListActiveOn(ctx context.Context, day time.Time) ([]Tariff, error)
	List(ctx context.Context) ([]Tariff, error)
}
