// Package bucket derives the identity and time-bucket keys used to recognise
// repeated observations of the same ledger event.
package bucket

import (
	"fmt"
	"strings"
	"time"

	"github.com/estensen/roi-dashboard/internal/models"
)

const invalidBucket = "invalid"

// DayKey returns "Y-M-D" for the UTC calendar day of t. The month is zero-based
// so keys stay compatible with the ones the web dashboard already produces.
func DayKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month())-1, t.Day())
}

// MinuteKey returns "Y-M-D-H-Min" for the UTC minute of t.
func MinuteKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-%d-%d-%d-%d", t.Year(), int(t.Month())-1, t.Day(), t.Hour(), t.Minute())
}

// EffectiveDate returns ProcessedAt when the backend supplied one, else CreatedAt.
func EffectiveDate(tx models.Transaction) models.Timestamp {
	if tx.ProcessedAt.Present() {
		return tx.ProcessedAt
	}
	return tx.CreatedAt
}

// DayKeyOf buckets a transaction by the UTC day of its effective date.
func DayKeyOf(tx models.Transaction) string {
	ts := EffectiveDate(tx)
	if !ts.Valid {
		return invalidBucket + ":" + ts.Raw
	}
	return DayKey(ts.Time)
}

// IdentityKey identifies a transaction for exact-duplicate removal.
func IdentityKey(tx models.Transaction) string {
	if tx.Reference != "" {
		return "ref:" + tx.Reference
	}

	ts := EffectiveDate(tx)
	minute := invalidBucket + ":" + ts.Raw
	if ts.Valid {
		minute = MinuteKey(ts.Time)
	}

	return strings.Join([]string{
		"cmp",
		tx.UserID,
		string(tx.Type),
		tx.InvestmentID,
		tx.Amount.String(),
		string(tx.Currency),
		minute,
	}, "|")
}

// Later reports whether a is strictly later than b. Invalid timestamps never win.
func Later(a, b models.Timestamp) bool {
	if !a.Valid {
		return false
	}
	if !b.Valid {
		return true
	}
	return a.Time.After(b.Time)
}
