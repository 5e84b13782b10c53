package presenter

import (
	"sort"
	"time"

	"github.com/estensen/roi-dashboard/internal/bucket"
	"github.com/estensen/roi-dashboard/internal/models"
)

// Summarize totals the reconciled list per UTC day, type and currency.
// Transactions without a usable date are left out.
func Summarize(list []models.Transaction) []models.DailySummary {
	dataMap := make(map[string]*models.DailySummary)

	for _, txn := range list {
		ts := bucket.EffectiveDate(txn)
		if !ts.Valid {
			continue
		}

		date := ts.Time.UTC().Truncate(24 * time.Hour)
		key := date.Format("2006-01-02") + "|" + string(txn.Type) + "|" + string(txn.Currency)

		summary, exists := dataMap[key]
		if !exists {
			summary = &models.DailySummary{
				Date:     date,
				Type:     string(txn.Type),
				Currency: string(txn.Currency),
			}
			dataMap[key] = summary
		}

		summary.TransactionCount++
		summary.TotalAmount += txn.Amount.Float64()
	}

	summaries := make([]models.DailySummary, 0, len(dataMap))
	for _, s := range dataMap {
		summaries = append(summaries, *s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Currency < b.Currency
	})

	return summaries
}

// SummariesFor narrows summaries to a single UTC day.
func SummariesFor(summaries []models.DailySummary, day time.Time) []models.DailySummary {
	day = day.UTC().Truncate(24 * time.Hour)
	out := make([]models.DailySummary, 0)
	for _, s := range summaries {
		if s.Date.Equal(day) {
			out = append(out, s)
		}
	}
	return out
}
