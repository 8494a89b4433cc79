package statement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("1500")

	t.Run("deterministic", func(t *testing.T) {
		a := Fingerprint("plot-1", "membership", day, amount, "взнос", "док 77")
		b := Fingerprint("plot-1", "membership", day, amount, "взнос", "док 77")
		assert.Equal(t, a, b)
		assert.Len(t, a, 32)
	})

	t.Run("every field participates", func(t *testing.T) {
		base := Fingerprint("plot-1", "membership", day, amount, "взнос", "")
		assert.NotEqual(t, base, Fingerprint("plot-2", "membership", day, amount, "взнос", ""))
		assert.NotEqual(t, base, Fingerprint("plot-1", "electricity", day, amount, "взнос", ""))
		assert.NotEqual(t, base, Fingerprint("plot-1", "membership", day.AddDate(0, 0, 1), amount, "взнос", ""))
		assert.NotEqual(t, base, Fingerprint("plot-1", "membership", day, amount.Add(decimal.New(1, -2)), "взнос", ""))
		assert.NotEqual(t, base, Fingerprint("plot-1", "membership", day, amount, "другое", ""))
		assert.NotEqual(t, base, Fingerprint("plot-1", "membership", day, amount, "взнос", "ref"))
	})

	t.Run("adjacent fields cannot collide", func(t *testing.T) {
		a := Fingerprint("A", "1", day, amount, "", "")
		b := Fingerprint("A1", "", day, amount, "", "")
		assert.NotEqual(t, a, b)
	})

	t.Run("whitespace-only purpose equals empty", func(t *testing.T) {
		a := Fingerprint("plot-1", "membership", day, amount, "  ", "")
		b := Fingerprint("plot-1", "membership", day, amount, "", "")
		assert.Equal(t, a, b)
	})

	t.Run("time of day is ignored", func(t *testing.T) {
		a := Fingerprint("plot-1", "membership", day, amount, "", "")
		b := Fingerprint("plot-1", "membership", day.Add(14*time.Hour), amount, "", "")
		assert.Equal(t, a, b)
	})
}
