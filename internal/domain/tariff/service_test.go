package tariff

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/audit"
)

func newTestService() (*Service, *audit.MemoryRepository) {
	auditRepo := audit.NewMemoryRepository()
	svc := NewService(NewMemoryRepository(), auditRepo, slog.Default())
	return svc, auditRepo
}

func membershipInput(from, to string) CreateInput {
	return CreateInput{
		Type:       TypeMembership,
		Title:      "Членский взнос",
		Amount:     decimal.NewFromInt(1500),
		AppliesTo:  AppliesToPlot,
		ActiveFrom: from,
		ActiveTo:   to,
		Status:     StatusActive,
	}
}

func TestService_Create_OverlapRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	actor := Actor{ID: "admin-1", Role: "admin"}

	_, err := svc.Create(ctx, membershipInput("2025-01-01", "2025-12-31"), actor)
	require.NoError(t, err)

	t.Run("open-ended window overlapping an existing one fails", func(t *testing.T) {
		_, err := svc.Create(ctx, membershipInput("2025-06-01", ""), actor)
		assert.ErrorIs(t, err, ErrOverlap)
	})

	t.Run("override bypasses the check", func(t *testing.T) {
		in := membershipInput("2025-06-01", "")
		in.OverrideOverlap = true
		created, err := svc.Create(ctx, in, actor)
		require.NoError(t, err)
		assert.NotNil(t, created)
	})

	t.Run("different type may overlap freely", func(t *testing.T) {
		in := membershipInput("2025-06-01", "")
		in.Type = TypeElectricity
		_, err := svc.Create(ctx, in, actor)
		assert.NoError(t, err)
	})

	t.Run("draft tariffs may overlap freely", func(t *testing.T) {
		in := membershipInput("2025-03-01", "2025-04-01")
		in.Status = StatusDraft
		_, err := svc.Create(ctx, in, actor)
		assert.NoError(t, err)
	})

	t.Run("adjacent non-overlapping window is fine", func(t *testing.T) {
		// The first override tariff is open-ended, so close it out of the way first.
		svc2, _ := newTestService()
		_, err := svc2.Create(ctx, membershipInput("2024-01-01", "2024-12-31"), actor)
		require.NoError(t, err)
		_, err = svc2.Create(ctx, membershipInput("2025-01-01", ""), actor)
		assert.NoError(t, err)
	})
}

func TestService_Create_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	actor := Actor{ID: "admin-1", Role: "admin"}

	t.Run("zero amount", func(t *testing.T) {
		in := membershipInput("2025-01-01", "")
		in.Amount = decimal.Zero
		_, err := svc.Create(ctx, in, actor)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("amount over the ceiling", func(t *testing.T) {
		in := membershipInput("2025-01-01", "")
		in.Amount = decimal.NewFromInt(1_000_001)
		_, err := svc.Create(ctx, in, actor)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.Create(ctx, membershipInput("01.01.2025", ""), actor)
		assert.Error(t, err)
	})

	t.Run("inverted window", func(t *testing.T) {
		_, err := svc.Create(ctx, membershipInput("2025-06-01", "2025-01-01"), actor)
		assert.Error(t, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, auditRepo := newTestService()
	actor := Actor{ID: "board-2", Role: "board"}

	created, err := svc.Create(ctx, membershipInput("2025-01-01", "2025-06-30"), actor)
	require.NoError(t, err)
	other, err := svc.Create(ctx, membershipInput("2025-07-01", "2025-12-31"), actor)
	require.NoError(t, err)

	t.Run("patch keeps unset fields", func(t *testing.T) {
		title := "Членский взнос 2025"
		updated, err := svc.Update(ctx, UpdateInput{ID: created.ID, Title: &title}, actor)
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.True(t, created.Amount.Equal(updated.Amount))
	})

	t.Run("self window is excluded from the overlap check", func(t *testing.T) {
		amount := decimal.NewFromInt(1600)
		_, err := svc.Update(ctx, UpdateInput{ID: created.ID, Amount: &amount}, actor)
		assert.NoError(t, err)
	})

	t.Run("extending into a peer window fails", func(t *testing.T) {
		to := "2025-08-01"
		_, err := svc.Update(ctx, UpdateInput{ID: created.ID, ActiveTo: &to}, actor)
		assert.ErrorIs(t, err, ErrOverlap)
	})

	t.Run("deactivated tariff may overlap", func(t *testing.T) {
		status := StatusInactive
		to := "2025-08-01"
		_, err := svc.Update(ctx, UpdateInput{ID: created.ID, Status: &status, ActiveTo: &to}, actor)
		assert.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdateInput{ID: uuid.New()}, actor)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("audit trail captures before and after", func(t *testing.T) {
		entries, err := auditRepo.ListByEntity(ctx, "tariff", other.ID.String())
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, "board-2", entries[0].Actor)
		assert.Equal(t, "board", entries[0].Role)
		assert.NotNil(t, entries[0].After)
	})
}

func TestOverlaps(t *testing.T) {
	from1, _ := parseDate("2025-01-01")
	to1, _ := parseDate("2025-12-31")
	from2, _ := parseDate("2026-01-01")

	assert.True(t, Overlaps(from1, &to1, from1, nil))
	assert.False(t, Overlaps(from1, &to1, from2, nil))
	assert.True(t, Overlaps(from1, nil, from2, nil))
	// single-day touching boundary counts as overlap
	assert.True(t, Overlaps(from1, &to1, to1, nil))
}
