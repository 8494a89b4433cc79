package parser

import "strings"

// Columns maps canonical statement fields to cell indexes. -1 means the
// column is absent.
type Columns struct {
	Date       int
	Amount     int
	PlotNumber int
	OwnerName  int
	Phone      int
	Comment    int
	Reference  int
	Cadastral  int
}

// header aliases, keyed by the punctuation-stripped lowercase form.
var aliases = map[string]string{
	"date": "date", "дата": "date", "датаоперации": "date",
	"amount": "amount", "сумма": "amount", "суммаоперации": "amount",
	"plotnumber": "plot", "plot": "plot", "участок": "plot", "номер": "plot", "номеручастка": "plot",
	"ownername": "owner", "owner": "owner", "фио": "owner", "собственник": "owner",
	"payer": "owner", "плательщик": "owner",
	"phone": "phone", "телефон": "phone",
	"comment": "comment", "purpose": "comment", "назначение": "comment",
	"назначениеплатежа": "comment", "комментарий": "comment",
	"reference": "reference", "документ": "reference", "номердокумента": "reference",
	"cadastral": "cadastral", "кадастровыйномер": "cadastral",
}

// NormalizeHeader canonicalizes a header cell: lowercased with spaces and
// punctuation stripped, so "Назначение платежа" and "назначение_платежа"
// resolve the same way.
func NormalizeHeader(cell string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(cell) {
		switch r {
		case ' ', '\t', '.', ',', '_', '-', ':', ';', '"', '\'', '№', '(', ')':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikeHeader reports whether a row reads as a header line: at least two
// cells resolving to known aliases.
func LooksLikeHeader(cells []string) bool {
	hits := 0
	for _, cell := range cells {
		if _, ok := aliases[NormalizeHeader(cell)]; ok {
			hits++
		}
	}
	return hits >= 2
}

// ResolveHeader maps a header row to column indexes. The first cell claiming
// a field wins.
func ResolveHeader(cells []string) Columns {
	cols := emptyColumns()
	for i, cell := range cells {
		field, ok := aliases[NormalizeHeader(cell)]
		if !ok {
			continue
		}
		claim(&cols, field, i)
	}
	return cols
}

// DefaultStatementColumns is the positional fallback for header-less bank
// exports: date, amount, plot number, payer name, phone, purpose.
func DefaultStatementColumns() Columns {
	cols := emptyColumns()
	cols.Date = 0
	cols.Amount = 1
	cols.PlotNumber = 2
	cols.OwnerName = 3
	cols.Phone = 4
	cols.Comment = 5
	return cols
}

func emptyColumns() Columns {
	return Columns{
		Date: -1, Amount: -1, PlotNumber: -1, OwnerName: -1, Phone: -1,
		Comment: -1, Reference: -1, Cadastral: -1,
	}
}

func claim(cols *Columns, field string, i int) {
	set := func(dst *int) {
		if *dst == -1 {
			*dst = i
		}
	}
	switch field {
	case "date":
		set(&cols.Date)
	case "amount":
		set(&cols.Amount)
	case "plot":
		set(&cols.PlotNumber)
	case "owner":
		set(&cols.OwnerName)
	case "phone":
		set(&cols.Phone)
	case "comment":
		set(&cols.Comment)
	case "reference":
		set(&cols.Reference)
	case "cadastral":
		set(&cols.Cadastral)
	}
}

// Cell returns the trimmed cell at index i, or "" when the column is absent
// or the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
