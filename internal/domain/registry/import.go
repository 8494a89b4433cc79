package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// PlotRow is a raw registry-import CSV row. Tags cover the header variants
// seen in board spreadsheets (gocsv matches by header name).
type PlotRow struct {
	PlotNumber  string `csv:"plotnumber"`
	Plot        string `csv:"plot"`
	Uchastok    string `csv:"участок"`
	Nomer       string `csv:"номер"`
	OwnerName   string `csv:"ownername"`
	Owner       string `csv:"owner"`
	FIO         string `csv:"фио"`
	Sobstvennik string `csv:"собственник"`
	Phone       string `csv:"phone"`
	Telefon     string `csv:"телефон"`
	Email       string `csv:"email"`
	Street      string `csv:"street"`
	Ulitsa      string `csv:"улица"`
	Cadastral   string `csv:"cadastral"`
	KadastrNum  string `csv:"кадастровый номер"`
	Area        string `csv:"area"`
	Ploshchad   string `csv:"площадь"`
}

// PlotPreviewRow is one analyzed registry-import row.
type PlotPreviewRow struct {
	RowIndex      int    `json:"rowIndex"`
	PlotNumber    string `json:"plotNumber"`
	OwnerFullName string `json:"ownerName"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	Cadastral     string `json:"cadastral"`
	OK            bool   `json:"ok"`
	Exists        bool   `json:"exists"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// PlotImportPreview is the dry-run report for a registry upload.
type PlotImportPreview struct {
	Rows      []PlotPreviewRow `json:"rows"`
	TotalRows int              `json:"totalRows"`
	ValidRows int              `json:"validRows"`
	ErrorRows int              `json:"errorRows"`
	Existing  int              `json:"existingRows"`
}

// ImportResult reports a confirmed registry import.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Importer parses registry CSV uploads and creates plots.
type Importer struct {
	repo Repository
}

// NewImporter creates a registry importer over the given repository.
func NewImporter(repo Repository) *Importer {
	return &Importer{repo: repo}
}

// Preview parses the upload and reports per-row validity without writing.
// The header row is required for this path.
func (im *Importer) Preview(ctx context.Context, data []byte) (*PlotImportPreview, error) {
	rows, err := parsePlotRows(data)
	if err != nil {
		return nil, err
	}

	preview := &PlotImportPreview{TotalRows: len(rows)}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		p := rowToPlot(row)
		pr := PlotPreviewRow{
			RowIndex:      i + 2, // 1-indexed plus header
			PlotNumber:    p.PlotNumber,
			OwnerFullName: p.OwnerFullName,
			Phone:         p.Phone,
			Street:        p.Street,
			Cadastral:     p.Cadastral,
		}

		switch {
		case p.PlotNumber == "":
			pr.ErrorMessage = "номер участка не указан"
		case seen[p.PlotNumber]:
			pr.ErrorMessage = fmt.Sprintf("участок %s повторяется в файле", p.PlotNumber)
		default:
			seen[p.PlotNumber] = true
			if _, err := im.repo.GetByNumber(ctx, p.PlotNumber); err == nil {
				pr.Exists = true
				preview.Existing++
			}
			pr.OK = true
		}

		if pr.OK {
			preview.ValidRows++
		} else {
			preview.ErrorRows++
		}
		preview.Rows = append(preview.Rows, pr)
	}

	return preview, nil
}

// Confirm creates plots for valid, not-yet-registered rows. Rows that fail
// are counted and skipped; one bad row never aborts the upload.
func (im *Importer) Confirm(ctx context.Context, data []byte) (*ImportResult, error) {
	rows, err := parsePlotRows(data)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		p := rowToPlot(row)
		if p.PlotNumber == "" || seen[p.PlotNumber] {
			result.Skipped++
			continue
		}
		seen[p.PlotNumber] = true
		if err := im.repo.Create(ctx, &p); err != nil {
			result.Skipped++
			continue
		}
		result.Created++
	}
	return result, nil
}

func parsePlotRows(data []byte) ([]PlotRow, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = sniffDelimiter(data)
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		return r
	})

	var rows []PlotRow
	if err := gocsv.UnmarshalBytes(normalizeHeaders(data), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse registry CSV: %w", err)
	}
	return rows, nil
}

// normalizeHeaders lowercases the header line so gocsv tag matching is
// case-insensitive across Russian and English column names.
func normalizeHeaders(data []byte) []byte {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		return bytes.ToLower(data)
	}
	header := bytes.ToLower(data[:idx])
	return append(append([]byte{}, header...), data[idx:]...)
}

func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	if bytes.Count(line, []byte(",")) > bytes.Count(line, []byte(";")) {
		return ','
	}
	return ';'
}

func rowToPlot(row PlotRow) Plot {
	area := decimal.Zero
	if raw := coalesce(row.Area, row.Ploshchad); raw != "" {
		if d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1)); err == nil {
			area = d
		}
	}
	return Plot{
		PlotNumber:    NormalizeNumber(coalesce(row.PlotNumber, row.Plot, row.Uchastok, row.Nomer)),
		OwnerFullName: coalesce(row.OwnerName, row.Owner, row.FIO, row.Sobstvennik),
		Phone:         coalesce(row.Phone, row.Telefon),
		Email:         strings.TrimSpace(row.Email),
		Street:        coalesce(row.Street, row.Ulitsa),
		Cadastral:     coalesce(row.Cadastral, row.KadastrNum),
		AreaSqM:       area,
		Status:        StatusActive,
	}
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
