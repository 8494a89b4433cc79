// Package audit records who changed what in the billing core. Entries are
// append-only; totals and error lists are attached at write time and never
// mutated afterwards.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit record.
type Entry struct {
	ID        uuid.UUID
	Actor     string // user id or login of the operator
	Role      string
	Action    string // e.g. "tariff.create", "accruals.generate", "import.confirm"
	Entity    string // entity kind: "tariff", "period", "import_batch"
	EntityID  string
	Before    json.RawMessage
	After     json.RawMessage
	CreatedAt time.Time
}

// Repository stores audit entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByEntity(ctx context.Context, entity, entityID string) ([]Entry, error)
}

// Record is a helper building an entry from before/after values. Marshal
// failures degrade to null snapshots rather than blocking the business write.
func Record(actor, role, action, entity, entityID string, before, after any) *Entry {
	e := &Entry{
		ID:       uuid.New(),
		Actor:    actor,
		Role:     role,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			e.Before = b
		}
	}
	if after != nil {
		if a, err := json.Marshal(after); err == nil {
			e.After = a
		}
	}
	return e
}
