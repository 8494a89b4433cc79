// Package money provides ruble-safe financial arithmetic on top of
// shopspring/decimal, with go-money used for display formatting. Amounts are
// stored as decimals with two fractional digits (kopecks).
package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// RUB is the only currency the portal settles in.
const RUB = "RUB"

var (
	// ErrEmptyAmount is returned when the input contains no digits at all.
	ErrEmptyAmount = errors.New("empty amount")
	// ErrInvalidAmount is returned for inputs that cannot be read as a number.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Parse reads a statement amount string into a decimal. It accepts the formats
// seen in Russian bank exports: "1500", "1500.00", "1500,00", "1 500,00",
// "1,500.00" and a leading minus or parenthesized negative.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	// Strip currency markers and grouping spaces (including NBSP). A `,` or
	// `.` survives only between two digits, so the dot of "руб." or a
	// trailing period never becomes a phantom decimal separator.
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ',' || r == '.':
			if i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				b.WriteRune(r)
			}
		}
	}
	s = b.String()
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		// The rightmost separator is the decimal one, the other kind must
		// form valid thousands groups.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			if strings.Count(s, ",") != 1 || !validGroups(s[:strings.Index(s, ",")], '.') {
				return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
			}
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			if strings.Count(s, ".") != 1 || !validGroups(s[:strings.Index(s, ".")], ',') {
				return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
			}
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if decimalSuffix(s, ',') && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else if validGroups(s, ',') {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}

// validGroups reports whether the integer part reads as digits split by sep
// into thousands groups: 1-3 digits first, exactly 3 in every later group.
func validGroups(intPart string, sep rune) bool {
	groups := strings.Split(intPart, string(sep))
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// decimalSuffix reports whether sep is followed by one or two digits only,
// i.e. acts as a decimal separator rather than a thousands one.
func decimalSuffix(s string, sep rune) bool {
	idx := strings.LastIndex(s, string(sep))
	if idx == -1 || idx == len(s)-1 {
		return false
	}
	tail := s[idx+1:]
	if len(tail) > 2 {
		return false
	}
	for _, r := range tail {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Kopecks converts a ruble decimal to integer kopecks.
func Kopecks(d decimal.Decimal) int64 {
	return d.Mul(decimal.New(1, 2)).Round(0).IntPart()
}

// FromKopecks converts integer kopecks back to a ruble decimal.
func FromKopecks(k int64) decimal.Decimal {
	return decimal.New(k, -2)
}

// FormatRUB renders the amount for receipts and exports ("1 500,00 ₽" style
// is handled by go-money's RUB locale).
func FormatRUB(d decimal.Decimal) string {
	return gomoney.New(Kopecks(d), gomoney.RUB).Display()
}

// ExportCell renders the amount for CSV cells: plain digits, comma decimal.
func ExportCell(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
