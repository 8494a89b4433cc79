package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCSV(t *testing.T) {
	out := CSV(
		[]string{"Участок", "Долг"},
		[][]string{{"12", "1500,00"}, {`ООО "Ромашка"`, "0,00"}},
	)

	require.True(t, bytes.HasPrefix(out, []byte("\xEF\xBB\xBF")), "BOM prefix")
	body := strings.TrimPrefix(string(out), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Участок";"Долг"`, lines[0])
	assert.Equal(t, `"12";"1500,00"`, lines[1])
	assert.Equal(t, `"ООО ""Ромашка""";"0,00"`, lines[2], "internal quotes doubled")
}

func TestXLSX(t *testing.T) {
	out, err := XLSX("Долги", []string{"Участок", "Долг"}, [][]string{{"12", "1500,00"}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Долги")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Участок", "Долг"}, rows[0])
	assert.Equal(t, []string{"12", "1500,00"}, rows[1])
}
