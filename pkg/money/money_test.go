package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain integer", "1500", "1500"},
		{"dot decimal", "1500.50", "1500.5"},
		{"comma decimal", "1500,50", "1500.5"},
		{"space thousands comma decimal", "1 500,00", "1500"},
		{"us grouping", "1,500.00", "1500"},
		{"european grouping", "1.500,25", "1500.25"},
		{"negative", "-250,00", "-250"},
		{"parenthesized negative", "(99.90)", "-99.9"},
		{"currency suffix", "1500,00 руб.", "1500"},
		{"ruble sign", "2 300,50 ₽", "2300.5"},
		{"comma thousands only", "1,500", "1500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			want, _ := decimal.NewFromString(tt.want)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}

	t.Run("empty input", func(t *testing.T) {
		_, err := Parse("   ")
		assert.ErrorIs(t, err, ErrEmptyAmount)
	})

	t.Run("garbage input", func(t *testing.T) {
		for _, in := range []string{"1.2.3,4", "12,3456", "1,23.45"} {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
		}
	})
}

func TestKopecksRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("1234.56")
	assert.Equal(t, int64(123456), Kopecks(d))
	assert.True(t, d.Equal(FromKopecks(123456)))
}

func TestExportCell(t *testing.T) {
	assert.Equal(t, "1500,00", ExportCell(decimal.RequireFromString("1500")))
	assert.Equal(t, "-99,90", ExportCell(decimal.RequireFromString("-99.9")))
}
