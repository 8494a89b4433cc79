package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	plots map[uuid.UUID]Plot
}

// NewMemoryRepository creates an empty in-memory plot repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{plots: make(map[uuid.UUID]Plot)}
}

func (r *MemoryRepository) Create(_ context.Context, p *Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	p.PlotNumber = NormalizeNumber(p.PlotNumber)
	for _, existing := range r.plots {
		if existing.PlotNumber == p.PlotNumber {
			return ErrDuplicateNumber
		}
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.plots[p.ID] = *p
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, p *Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.plots[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.PlotNumber = existing.PlotNumber
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	r.plots[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetByNumber(_ context.Context, number string) (*Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	normalized := NormalizeNumber(number)
	for _, p := range r.plots {
		if p.PlotNumber == normalized {
			plot := p
			return &plot, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListActive(_ context.Context) ([]Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Plot
	for _, p := range r.plots {
		if p.Status == StatusActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlotNumber < out[j].PlotNumber })
	return out, nil
}

func (r *MemoryRepository) Archive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plots[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = StatusArchived
	p.UpdatedAt = time.Now()
	r.plots[id] = p
	return nil
}
