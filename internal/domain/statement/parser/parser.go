// Package parser turns raw statement bytes into rows of trimmed string
// cells. Bank exports arrive with BOMs, mixed delimiters and uneven quoting,
// so parsing is tolerant: it never fails on a malformed cell, it produces
// the best row it can and lets validation downstream reject bad data.
package parser

import (
	"strings"
	"unicode/utf8"
)

// Sniff inspects the first line and picks the delimiter by counting `,` and
// `;` outside quoted spans. Ties favor `;`, the dominant separator in
// Russian bank exports.
func Sniff(raw string) rune {
	line := raw
	if i := strings.IndexAny(raw, "\r\n"); i >= 0 {
		line = raw[:i]
	}

	var commas, semis int
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case r == ',':
			commas++
		case r == ';':
			semis++
		}
	}
	if commas > semis {
		return ','
	}
	return ';'
}

// Parse tokenizes raw statement text. A zero delimiterHint triggers
// auto-detection. Quoting follows RFC4180: a quoted cell may contain the
// delimiter or newlines, and a doubled quote is a literal quote. Unquoted
// \r is dropped so CRLF input parses the same as LF. All-blank trailing
// rows are removed and every cell is trimmed.
func Parse(raw []byte, delimiterHint rune) [][]string {
	text := normalize(raw)
	delim := delimiterHint
	if delim == 0 {
		delim = Sniff(text)
	}

	var (
		rows     [][]string
		row      []string
		cell     strings.Builder
		inQuotes bool
	)
	runes := []rune(text)

	endCell := func() {
		row = append(row, strings.TrimSpace(cell.String()))
		cell.Reset()
	}
	endRow := func() {
		endCell()
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes:
			if r == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cell.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cell.WriteRune(r)
			}
		case r == '"':
			inQuotes = true
		case r == delim:
			endCell()
		case r == '\n':
			endRow()
		case r == '\r':
		default:
			cell.WriteRune(r)
		}
	}
	if cell.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return dropBlankRows(rows)
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if cell != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}

// normalize strips the UTF-8 BOM and falls back to a byte-per-rune decode
// for files that are not valid UTF-8, which keeps Windows-1251 exports from
// corrupting the row structure even when their text is unreadable.
func normalize(raw []byte) string {
	raw = stripBOM(raw)
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String()
}

func stripBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}
