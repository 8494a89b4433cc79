// Package registry holds the plot register: the anchor entity every accrual
// and payment references. Plots are archived, never hard-deleted.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlotStatus is the lifecycle state of a plot record.
type PlotStatus string

const (
	StatusActive   PlotStatus = "active"
	StatusArchived PlotStatus = "archived"
)

var (
	// ErrNotFound is returned when the referenced plot does not exist.
	ErrNotFound = errors.New("plot not found")
	// ErrDuplicateNumber is returned when a plot number is already registered.
	ErrDuplicateNumber = errors.New("plot number already registered")
)

// Plot is a registered lot.
type Plot struct {
	ID            uuid.UUID
	PlotNumber    string
	Street        string
	OwnerFullName string
	Phone         string
	Email         string
	Cadastral     string
	AreaSqM       decimal.Decimal
	Status        PlotStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Label is the display form used in statements and matching ("уч. 12, Садовая").
func (p *Plot) Label() string {
	if p.Street == "" {
		return "уч. " + p.PlotNumber
	}
	return "уч. " + p.PlotNumber + ", " + p.Street
}

// NormalizeNumber canonicalizes a plot number for comparisons: trimmed,
// uppercased, leading zeros stripped ("012а" == "12А").
func NormalizeNumber(n string) string {
	n = strings.ToUpper(strings.TrimSpace(n))
	i := 0
	for i < len(n)-1 && n[i] == '0' {
		i++
	}
	return n[i:]
}

// Repository stores plots.
type Repository interface {
	Create(ctx context.Context, p *Plot) error
	Update(ctx context.Context, p *Plot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plot, error)
	GetByNumber(ctx context.Context, number string) (*Plot, error)
	ListActive(ctx context.Context) ([]Plot, error)
	Archive(ctx context.Context, id uuid.UUID) error
}
