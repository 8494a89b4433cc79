package billing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/audit"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/payment"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/registry"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/tariff"
)

type billingFixture struct {
	svc      *Service
	repo     *MemoryRepository
	plots    *registry.MemoryRepository
	tariffs  *tariff.MemoryRepository
	payments *payment.MemoryRepository
	audit    *audit.MemoryRepository
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		repo:     NewMemoryRepository(),
		plots:    registry.NewMemoryRepository(),
		tariffs:  tariff.NewMemoryRepository(),
		payments: payment.NewMemoryRepository(),
		audit:    audit.NewMemoryRepository(),
	}
	f.svc = NewService(f.repo, f.plots, f.tariffs, f.payments, f.audit, slog.Default())
	return f
}

func (f *billingFixture) addPlot(t *testing.T, number, owner string, areaSqM int64) *registry.Plot {
	t.Helper()
	p := &registry.Plot{
		PlotNumber:    number,
		OwnerFullName: owner,
		AreaSqM:       decimal.NewFromInt(areaSqM),
		Status:        registry.StatusActive,
	}
	require.NoError(t, f.plots.Create(context.Background(), p))
	return p
}

func (f *billingFixture) addTariff(t *testing.T, typ tariff.Type, amount string, appliesTo tariff.AppliesTo) *tariff.Tariff {
	t.Helper()
	tf := &tariff.Tariff{
		Type:       typ,
		Title:      string(typ) + " 2025",
		Amount:     decimal.RequireFromString(amount),
		AppliesTo:  appliesTo,
		ActiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     tariff.StatusActive,
	}
	require.NoError(t, f.tariffs.Create(context.Background(), tf))
	return tf
}

var testActor = Actor{ID: "admin-1", Role: "admin"}

func TestGenerateAccruals(t *testing.T) {
	ctx := context.Background()

	t.Run("second run skips everything the first created", func(t *testing.T) {
		f := newBillingFixture(t)
		f.addPlot(t, "1", "Иванов И.И.", 600)
		f.addPlot(t, "2", "Петров П.П.", 800)
		f.addPlot(t, "3", "Сидорова А.В.", 450)
		f.addTariff(t, tariff.TypeMembership, "1500", tariff.AppliesToPlot)
		f.addTariff(t, tariff.TypeTarget, "200", tariff.AppliesToPlot)

		p, err := f.svc.CreatePeriod(ctx, 2025, time.March, "", testActor)
		require.NoError(t, err)

		first, err := f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.NoError(t, err)
		assert.Equal(t, GenerateResult{Created: 6, Skipped: 0}, first)

		second, err := f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.NoError(t, err)
		assert.Equal(t, GenerateResult{Created: 0, Skipped: 6}, second)

		accruals, err := f.repo.ListAccrualsByPeriod(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, accruals, 6)
	})

	t.Run("area tariff scales by plot area per 100 sqm", func(t *testing.T) {
		f := newBillingFixture(t)
		plot := f.addPlot(t, "7", "Кузнецов Н.Н.", 650)
		f.addTariff(t, tariff.TypeMembership, "120", tariff.AppliesToArea)

		p, err := f.svc.CreatePeriod(ctx, 2025, time.May, "", testActor)
		require.NoError(t, err)
		_, err = f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.NoError(t, err)

		accruals, err := f.repo.ListAccrualsByPeriod(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, accruals, 1)
		assert.Equal(t, plot.ID, accruals[0].PlotID)
		assert.True(t, accruals[0].AmountAccrued.Equal(decimal.RequireFromString("780")),
			"120 rub per 100 sqm on 650 sqm, got %s", accruals[0].AmountAccrued)
	})

	t.Run("closed period rejects generation until reopened", func(t *testing.T) {
		f := newBillingFixture(t)
		f.addPlot(t, "1", "Иванов И.И.", 600)
		f.addTariff(t, tariff.TypeMembership, "1500", tariff.AppliesToPlot)

		p, err := f.svc.CreatePeriod(ctx, 2025, time.June, "", testActor)
		require.NoError(t, err)
		require.NoError(t, f.svc.Close(ctx, p.ID, testActor))

		_, err = f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.ErrorIs(t, err, ErrPeriodClosed)

		require.NoError(t, f.svc.Reopen(ctx, p.ID, testActor))
		res, err := f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
	})

	t.Run("inactive tariffs do not charge", func(t *testing.T) {
		f := newBillingFixture(t)
		f.addPlot(t, "1", "Иванов И.И.", 600)
		tf := f.addTariff(t, tariff.TypeMembership, "1500", tariff.AppliesToPlot)
		tf.Status = tariff.StatusInactive
		require.NoError(t, f.tariffs.Update(ctx, tf))

		p, err := f.svc.CreatePeriod(ctx, 2025, time.July, "", testActor)
		require.NoError(t, err)
		res, err := f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.NoError(t, err)
		assert.Equal(t, GenerateResult{}, res)
	})

	t.Run("generation is audit logged with counts", func(t *testing.T) {
		f := newBillingFixture(t)
		f.addPlot(t, "1", "Иванов И.И.", 600)
		f.addTariff(t, tariff.TypeMembership, "1500", tariff.AppliesToPlot)

		p, err := f.svc.CreatePeriod(ctx, 2025, time.August, "", testActor)
		require.NoError(t, err)
		_, err = f.svc.GenerateAccruals(ctx, p.ID, testActor)
		require.NoError(t, err)

		entries, err := f.audit.ListByEntity(ctx, "period", p.ID.String())
		require.NoError(t, err)
		var found bool
		for _, e := range entries {
			if e.Action == "accruals.generate" {
				found = true
				assert.Equal(t, "admin-1", e.Actor)
				assert.JSONEq(t, `{"created":1,"skipped":0}`, string(e.After))
			}
		}
		assert.True(t, found, "expected accruals.generate audit entry")
	})
}

func TestPeriodLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate month rejected", func(t *testing.T) {
		f := newBillingFixture(t)
		_, err := f.svc.CreatePeriod(ctx, 2025, time.March, "", testActor)
		require.NoError(t, err)
		_, err = f.svc.CreatePeriod(ctx, 2025, time.March, "повтор", testActor)
		require.ErrorIs(t, err, ErrDuplicatePeriod)
	})

	t.Run("default title is the russian month name", func(t *testing.T) {
		f := newBillingFixture(t)
		p, err := f.svc.CreatePeriod(ctx, 2025, time.March, "", testActor)
		require.NoError(t, err)
		assert.Equal(t, "март 2025", p.Title)
	})

	t.Run("reopen requires a closed period", func(t *testing.T) {
		f := newBillingFixture(t)
		p, err := f.svc.CreatePeriod(ctx, 2025, time.April, "", testActor)
		require.NoError(t, err)
		require.ErrorIs(t, f.svc.Reopen(ctx, p.ID, testActor), ErrNotReopenable)

		require.NoError(t, f.svc.Lock(ctx, p.ID, testActor))
		require.NoError(t, f.svc.Close(ctx, p.ID, testActor))
		require.NoError(t, f.svc.Reopen(ctx, p.ID, testActor))

		got, err := f.svc.GetPeriod(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, PeriodDraft, got.Status)
	})

	t.Run("lock requires draft", func(t *testing.T) {
		f := newBillingFixture(t)
		p, err := f.svc.CreatePeriod(ctx, 2025, time.May, "", testActor)
		require.NoError(t, err)
		require.NoError(t, f.svc.Close(ctx, p.ID, testActor))
		require.ErrorIs(t, f.svc.Lock(ctx, p.ID, testActor), ErrPeriodClosed)
	})
}

func TestResolvePeriod(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	created, err := f.svc.ResolvePeriod(ctx, 2025, time.September)
	require.NoError(t, err)
	assert.Equal(t, PeriodDraft, created.Status)
	assert.Equal(t, "сентябрь 2025", created.Title)

	again, err := f.svc.ResolvePeriod(ctx, 2025, time.September)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "second resolve must reuse the period")
}

func TestDebts(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	plot := f.addPlot(t, "12", "Иванов И.И.", 600)
	f.addTariff(t, tariff.TypeMembership, "1500", tariff.AppliesToPlot)

	p, err := f.svc.CreatePeriod(ctx, 2025, time.March, "", testActor)
	require.NoError(t, err)
	_, err = f.svc.GenerateAccruals(ctx, p.ID, testActor)
	require.NoError(t, err)

	require.NoError(t, f.payments.Insert(ctx, &payment.Payment{
		PlotID:      plot.ID,
		PeriodID:    p.ID,
		Amount:      decimal.RequireFromString("500"),
		PaidAt:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Method:      "bank",
		Category:    string(tariff.TypeMembership),
		Fingerprint: "fp-1",
	}))

	debts, total, err := f.svc.Debts(ctx)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, "12", debts[0].PlotNumber)
	assert.True(t, debts[0].Accrued.Equal(decimal.RequireFromString("1500")))
	assert.True(t, debts[0].Paid.Equal(decimal.RequireFromString("500")))
	assert.True(t, debts[0].Debt.Equal(decimal.RequireFromString("1000")))
	assert.True(t, total.Equal(decimal.RequireFromString("1000")))

	csv, err := f.svc.DebtsCSV(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(csv), `"12";"Иванов И.И.";"1500,00";"500,00";"1000,00"`)
}
