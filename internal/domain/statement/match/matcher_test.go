package match

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/registry"
)

func testPlots() []registry.Plot {
	return []registry.Plot{
		{ID: uuid.New(), PlotNumber: "12", OwnerFullName: "Иванов Иван Иванович", Phone: "+7 916 123-45-67"},
		{ID: uuid.New(), PlotNumber: "7", OwnerFullName: "Петрова Анна Сергеевна", Phone: "89031112233"},
		{ID: uuid.New(), PlotNumber: "101А", OwnerFullName: "Сидоров Николай Петрович"},
	}
}

func TestMatch(t *testing.T) {
	plots := testPlots()
	m := New(plots, nil)

	t.Run("explicit plot number cell", func(t *testing.T) {
		res := m.Match(Input{PlotNumber: "12"})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[0].ID, *res.PlotID)
		assert.Equal(t, StagePlotNumber, res.Stage)
		assert.InDelta(t, 0.9, res.Confidence, 0.001)
		assert.False(t, res.Warning)
	})

	t.Run("leading zeros and case normalize", func(t *testing.T) {
		res := m.Match(Input{PlotNumber: "0101а"})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[2].ID, *res.PlotID)
	})

	t.Run("plot number extracted from purpose text", func(t *testing.T) {
		for _, purpose := range []string{
			"членский взнос за участок 12",
			"взнос уч. 12",
			"оплата №12",
			"У-12 за март",
		} {
			res := m.Match(Input{Purpose: purpose})
			require.Equal(t, StatusMatched, res.Status, purpose)
			assert.Equal(t, plots[0].ID, *res.PlotID, purpose)
		}
	})

	t.Run("phone is a warning tier fallback", func(t *testing.T) {
		res := m.Match(Input{Phone: "8 (916) 123-45-67"})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[0].ID, *res.PlotID)
		assert.Equal(t, StagePhone, res.Stage)
		assert.True(t, res.Warning)
		assert.InDelta(t, 0.6, res.Confidence, 0.001)
	})

	t.Run("plot number beats phone of another plot", func(t *testing.T) {
		res := m.Match(Input{
			Purpose: "взнос за участок 12",
			Phone:   "89031112233", // plot 7's phone
		})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[0].ID, *res.PlotID, "plot-number stage takes precedence")
		assert.Equal(t, StagePlotNumber, res.Stage)
	})

	t.Run("owner name substring either direction", func(t *testing.T) {
		res := m.Match(Input{OwnerName: "ПЕТРОВА АННА СЕРГЕЕВНА (ПЕРЕВОД)"})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[1].ID, *res.PlotID)
		assert.Equal(t, StageOwnerName, res.Stage)

		res = m.Match(Input{OwnerName: "Петрова Анна"})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[1].ID, *res.PlotID)
	})

	t.Run("payer surname in purpose is the last resort", func(t *testing.T) {
		res := m.Match(Input{Purpose: "перевод от Сидоров за электричество"})
		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, plots[2].ID, *res.PlotID)
		assert.Equal(t, StagePayerOnly, res.Stage)
		assert.InDelta(t, 0.5, res.Confidence, 0.001)
	})

	t.Run("unmatched", func(t *testing.T) {
		res := m.Match(Input{OwnerName: "Неизвестный Плательщик", Purpose: "оплата"})
		assert.Equal(t, StatusUnmatched, res.Status)
		assert.Nil(t, res.PlotID)
	})

	t.Run("two plots in purpose text is ambiguous", func(t *testing.T) {
		res := m.Match(Input{Purpose: "за участок 12 и участок 7"})
		require.Equal(t, StatusAmbiguous, res.Status)
		assert.Nil(t, res.PlotID)
		assert.ElementsMatch(t, []uuid.UUID{plots[0].ID, plots[1].ID}, res.Candidates)
	})

	t.Run("shared owner name across plots is ambiguous", func(t *testing.T) {
		shared := testPlots()
		shared[1].OwnerFullName = shared[0].OwnerFullName
		res := New(shared, nil).Match(Input{OwnerName: "Иванов Иван Иванович"})
		require.Equal(t, StatusAmbiguous, res.Status)
		assert.Len(t, res.Candidates, 2)
	})
}

func TestPrecedenceConfigurable(t *testing.T) {
	plots := testPlots()
	m := New(plots, []Stage{StageOwnerName, StagePlotNumber, StagePhone, StagePayerOnly})

	res := m.Match(Input{
		OwnerName:  "Петрова Анна Сергеевна",
		PlotNumber: "12",
	})
	require.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, plots[1].ID, *res.PlotID, "owner stage runs first under the custom order")
}

func TestExtractPlotNumbers(t *testing.T) {
	assert.Equal(t, []string{"12"}, ExtractPlotNumbers("взнос за участок 12"))
	assert.Equal(t, []string{"5"}, ExtractPlotNumbers("уч.5"))
	assert.Empty(t, ExtractPlotNumbers("членский взнос"))
	assert.ElementsMatch(t, []string{"12", "7"}, ExtractPlotNumbers("участок 12 и уч. 7"))
}

func TestPhoneKey(t *testing.T) {
	a := phoneKey("+7 916 123-45-67")
	b := phoneKey("8 (916) 123-45-67")
	c := phoneKey("89161234567")
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Empty(t, phoneKey(""))
	assert.Empty(t, phoneKey("12345"), "short numbers never match")
}
