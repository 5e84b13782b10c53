package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/estensen/roi-dashboard/internal/models"
)

// FetchSummaries returns the daily summaries the most recent run stored for
// the given date. Groups missing from that run are not returned.
func FetchSummaries(ctx context.Context, conn clickhouse.Conn, date time.Time) ([]models.DailySummary, error) {
	var summaries []models.DailySummary
	query := `
        SELECT
            date,
            type,
            currency,
            transaction_count,
            total_amount
        FROM roi_daily_summary FINAL
        WHERE date = ?
          AND run_at = (SELECT max(run_at) FROM roi_daily_summary WHERE date = ?)
        ORDER BY type, currency
        `

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if err := conn.Select(ctx, &summaries, query, day, day); err != nil {
		return nil, fmt.Errorf("error executing summary query: %w", err)
	}

	if summaries == nil {
		summaries = []models.DailySummary{}
	}
	return summaries, nil
}
