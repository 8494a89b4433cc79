// Package export renders tabular reports as CSV and XLSX downloads. CSV
// output carries a UTF-8 BOM and semicolon delimiters so Excel opens Russian
// text correctly without an import wizard.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\xEF\xBB\xBF"

// CSV renders a header plus rows as semicolon-delimited, quoted, BOM-prefixed
// bytes.
func CSV(header []string, rows [][]string) []byte {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	writeCSVRow(&buf, header)
	for _, row := range rows {
		writeCSVRow(&buf, row)
	}
	return buf.Bytes()
}

func writeCSVRow(buf *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(';')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

// XLSX renders a single-sheet workbook with the header on row 1.
func XLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil && sheet != "Sheet1" {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, n int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", n), &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", n, err)
	}
	return nil
}
