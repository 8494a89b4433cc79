// Package statement implements the bank-statement import pipeline: parse,
// match, deduplicate, preview, confirm.
package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fingerprint derives the duplicate-detection key for a payment. Fields are
// joined with a separator before hashing so adjacent values cannot collide
// ("A"+"1" vs "A1"+""). Optional purpose/reference normalize to the empty
// string, making a missing field and a blank field equivalent.
func Fingerprint(plotID, category string, paidAt time.Time, amount decimal.Decimal, purpose, reference string) string {
	parts := []string{
		plotID,
		category,
		paidAt.UTC().Format("2006-01-02"),
		amount.StringFixed(2),
		strings.TrimSpace(purpose),
		strings.TrimSpace(reference),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:32]
}
