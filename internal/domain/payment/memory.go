package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryRepository is an in-memory Repository for tests. The fingerprint
// check and the insert happen under one lock, mirroring the unique-index
// guarantee of the Postgres implementation.
type MemoryRepository struct {
	mu           sync.Mutex
	payments     map[uuid.UUID]Payment
	fingerprints map[string]struct{}
}

// NewMemoryRepository creates an empty in-memory payment repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		payments:     make(map[uuid.UUID]Payment),
		fingerprints: make(map[string]struct{}),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fingerprints[p.Fingerprint]; exists {
		return ErrDuplicateFingerprint
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	r.fingerprints[p.Fingerprint] = struct{}{}
	r.payments[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListByPlot(_ context.Context, plotID uuid.UUID) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.payments {
		if p.PlotID == plotID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

func (r *MemoryRepository) Fingerprints(_ context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.fingerprints))
	for fp := range r.fingerprints {
		out[fp] = struct{}{}
	}
	return out, nil
}

func (r *MemoryRepository) SumPaid(_ context.Context, plotID, periodID uuid.UUID, category string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, p := range r.payments {
		if p.PlotID == plotID && p.PeriodID == periodID && p.Category == category {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *MemoryRepository) PaidByPlot(_ context.Context) ([]PlotTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byPlot := make(map[uuid.UUID]decimal.Decimal)
	for _, p := range r.payments {
		byPlot[p.PlotID] = byPlot[p.PlotID].Add(p.Amount)
	}
	totals := make([]PlotTotal, 0, len(byPlot))
	for id, total := range byPlot {
		totals = append(totals, PlotTotal{PlotID: id, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].PlotID.String() < totals[j].PlotID.String() })
	return totals, nil
}

func (r *MemoryRepository) AttachTargetFund(_ context.Context, id, fundID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.TargetFundID = &fundID
	r.payments[id] = p
	return nil
}

// Count returns the number of stored payments (test helper).
func (r *MemoryRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}
