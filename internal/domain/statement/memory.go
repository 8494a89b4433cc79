package statement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu      sync.Mutex
	batches map[uuid.UUID]ImportBatch
}

// NewMemoryRepository creates an empty in-memory batch repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{batches: make(map[uuid.UUID]ImportBatch)}
}

func (r *MemoryRepository) CreateBatch(_ context.Context, b *ImportBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	r.batches[b.ID] = *b
	return nil
}

func (r *MemoryRepository) GetBatch(_ context.Context, id uuid.UUID) (*ImportBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) ListBatches(_ context.Context) ([]ImportBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ImportBatch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
