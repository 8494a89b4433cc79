package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type accrualKey struct {
	plotID   uuid.UUID
	periodID uuid.UUID
	category string
}

// MemoryRepository is an in-memory Repository for tests. One lock covers the
// accrual existence check and the insert, mirroring ON CONFLICT DO NOTHING.
type MemoryRepository struct {
	mu       sync.Mutex
	periods  map[uuid.UUID]Period
	accruals map[accrualKey]Accrual
}

// NewMemoryRepository creates an empty in-memory billing repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		periods:  make(map[uuid.UUID]Period),
		accruals: make(map[accrualKey]Accrual),
	}
}

func (r *MemoryRepository) CreatePeriod(_ context.Context, p *Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.periods {
		if existing.Year == p.Year && existing.Month == p.Month {
			return ErrDuplicatePeriod
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.periods[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetPeriod(_ context.Context, id uuid.UUID) (*Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok {
		return nil, ErrPeriodNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetPeriodByMonth(_ context.Context, year int, month time.Month) (*Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.Year == year && p.Month == month {
			out := p
			return &out, nil
		}
	}
	return nil, ErrPeriodNotFound
}

func (r *MemoryRepository) ListPeriods(_ context.Context) ([]Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Period, 0, len(r.periods))
	for _, p := range r.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (r *MemoryRepository) SetPeriodStatus(_ context.Context, id uuid.UUID, status PeriodStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok {
		return ErrPeriodNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	r.periods[id] = p
	return nil
}

func (r *MemoryRepository) InsertAccrual(_ context.Context, a *Accrual) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accrualKey{plotID: a.PlotID, periodID: a.PeriodID, category: a.Category}
	if _, exists := r.accruals[key]; exists {
		return false, nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	r.accruals[key] = *a
	return true, nil
}

func (r *MemoryRepository) ListAccrualsByPeriod(_ context.Context, periodID uuid.UUID) ([]Accrual, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Accrual
	for _, a := range r.accruals {
		if a.PeriodID == periodID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) AccruedByPlot(_ context.Context) ([]PlotAccrued, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byPlot := make(map[uuid.UUID]decimal.Decimal)
	for _, a := range r.accruals {
		byPlot[a.PlotID] = byPlot[a.PlotID].Add(a.AmountAccrued)
	}
	totals := make([]PlotAccrued, 0, len(byPlot))
	for id, total := range byPlot {
		totals = append(totals, PlotAccrued{PlotID: id, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].PlotID.String() < totals[j].PlotID.String() })
	return totals, nil
}
