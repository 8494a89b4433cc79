package tariff

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	tariffs map[uuid.UUID]Tariff
}

// NewMemoryRepository creates an empty in-memory tariff repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tariffs: make(map[uuid.UUID]Tariff)}
}

func (r *MemoryRepository) Create(_ context.Context, t *Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.tariffs[t.ID] = *t
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, t *Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tariffs[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()
	r.tariffs[t.ID] = *t
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tariffs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) ListByType(_ context.Context, typ Type) ([]Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tariff
	for _, t := range r.tariffs {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	sortByWindow(out)
	return out, nil
}

func (r *MemoryRepository) ListActiveOn(_ context.Context, day time.Time) ([]Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tariff
	for _, t := range r.tariffs {
		tariff := t
		if tariff.ActiveOn(day) {
			out = append(out, tariff)
		}
	}
	sortByWindow(out)
	return out, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Tariff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tariff, 0, len(r.tariffs))
	for _, t := range r.tariffs {
		out = append(out, t)
	}
	sortByWindow(out)
	return out, nil
}

func sortByWindow(ts []Tariff) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Type != ts[j].Type {
			return ts[i].Type < ts[j].Type
		}
		return ts[i].ActiveFrom.Before(ts[j].ActiveFrom)
	})
}
