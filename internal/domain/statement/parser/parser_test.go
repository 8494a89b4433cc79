package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("semicolon delimited", func(t *testing.T) {
		rows := Parse([]byte("a;b;c\n1;2;3"), 0)
		assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}}, rows)
	})

	t.Run("comma delimited", func(t *testing.T) {
		rows := Parse([]byte("a,b,c\n1,2,3"), 0)
		assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}}, rows)
	})

	t.Run("quoted field keeps the other delimiter", func(t *testing.T) {
		rows := Parse([]byte("\"a\",\"b;c\",\"d\"\n"), 0)
		assert.Equal(t, [][]string{{"a", "b;c", "d"}}, rows)
	})

	t.Run("escaped quote inside quoted field", func(t *testing.T) {
		rows := Parse([]byte(`"он сказал ""да""";1500`), 0)
		assert.Equal(t, [][]string{{`он сказал "да"`, "1500"}}, rows)
	})

	t.Run("quoted newline stays in one cell", func(t *testing.T) {
		rows := Parse([]byte("\"first\nsecond\";x\n"), 0)
		assert.Equal(t, [][]string{{"first\nsecond", "x"}}, rows)
	})

	t.Run("crlf input", func(t *testing.T) {
		rows := Parse([]byte("a;b\r\n1;2\r\n"), 0)
		assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
	})

	t.Run("bom stripped", func(t *testing.T) {
		rows := Parse([]byte("\xEF\xBB\xBFдата;сумма\n01.03.2025;1500"), 0)
		assert.Equal(t, "дата", rows[0][0])
	})

	t.Run("trailing blank rows dropped", func(t *testing.T) {
		rows := Parse([]byte("a;b\n1;2\n;\n\n"), 0)
		assert.Len(t, rows, 2)
	})

	t.Run("cells are trimmed", func(t *testing.T) {
		rows := Parse([]byte("  a ; b\t\n"), 0)
		assert.Equal(t, [][]string{{"a", "b"}}, rows)
	})

	t.Run("delimiter hint overrides sniffing", func(t *testing.T) {
		rows := Parse([]byte("a,b;c"), ',')
		assert.Equal(t, [][]string{{"a", "b;c"}}, rows)
	})
}

func TestSniff(t *testing.T) {
	assert.Equal(t, ';', Sniff("a;b;c"))
	assert.Equal(t, ',', Sniff("a,b,c"))
	assert.Equal(t, ';', Sniff("a;b,c;d"), "more semicolons")
	assert.Equal(t, ';', Sniff("a;b,c"), "tie favors semicolon")
	assert.Equal(t, ',', Sniff(`"x;y;z",a,b`), "quoted span does not count")
	assert.Equal(t, ';', Sniff("a;b\n1,2,3"), "only the first line is inspected")
}

func TestResolveHeader(t *testing.T) {
	t.Run("russian aliases", func(t *testing.T) {
		cols := ResolveHeader([]string{"Дата", "Сумма", "Участок", "ФИО", "Телефон", "Назначение платежа"})
		assert.Equal(t, 0, cols.Date)
		assert.Equal(t, 1, cols.Amount)
		assert.Equal(t, 2, cols.PlotNumber)
		assert.Equal(t, 3, cols.OwnerName)
		assert.Equal(t, 4, cols.Phone)
		assert.Equal(t, 5, cols.Comment)
		assert.Equal(t, -1, cols.Cadastral)
	})

	t.Run("unknown columns are skipped", func(t *testing.T) {
		cols := ResolveHeader([]string{"Дата", "Сумма", "Статус членства", "Подтвержден", "ФИО"})
		assert.Equal(t, 0, cols.Date)
		assert.Equal(t, 1, cols.Amount)
		assert.Equal(t, 4, cols.OwnerName)
		assert.Equal(t, -1, cols.PlotNumber)
	})

	t.Run("english aliases with noise", func(t *testing.T) {
		cols := ResolveHeader([]string{"Date", "amount", "Plot Number", "payer"})
		assert.Equal(t, 0, cols.Date)
		assert.Equal(t, 1, cols.Amount)
		assert.Equal(t, 2, cols.PlotNumber)
		assert.Equal(t, 3, cols.OwnerName)
	})

	t.Run("first claim wins", func(t *testing.T) {
		cols := ResolveHeader([]string{"фио", "плательщик"})
		assert.Equal(t, 0, cols.OwnerName)
	})
}

func TestLooksLikeHeader(t *testing.T) {
	assert.True(t, LooksLikeHeader([]string{"дата", "сумма", "участок"}))
	assert.False(t, LooksLikeHeader([]string{"01.03.2025", "1500", "12"}))
	assert.False(t, LooksLikeHeader([]string{"дата"}), "one hit is not enough")
}
