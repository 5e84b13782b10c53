package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/estensen/roi-dashboard/internal/bucket"
	"github.com/estensen/roi-dashboard/internal/dedup"
	"github.com/estensen/roi-dashboard/internal/models"
)

// LedgerRow is one reconciled transaction as stored in roi_ledger.
type LedgerRow struct {
	GroupKey      string
	IdentityKey   string
	TransactionID string
	Type          string
	Status        string
	Currency      string
	Amount        float64
	Reference     string
	InvestmentID  string
	Label         string
	EffectiveAt   *time.Time
	EffectiveRaw  string
	RunAt         time.Time
}

// ClickHouseLoader writes reconciled ledgers and summaries into ClickHouse.
type ClickHouseLoader struct {
	Conn clickhouse.Conn
}

func NewClickHouseLoader(conn clickhouse.Conn) *ClickHouseLoader {
	return &ClickHouseLoader{
		Conn: conn,
	}
}

// LedgerRows flattens presented transactions into rows stamped with runAt.
// Rows are keyed by recurrence group, so a posting that supersedes an earlier
// one in a later run replaces its row.
func LedgerRows(items []models.PresentedTransaction, runAt time.Time) []LedgerRow {
	txs := make([]models.Transaction, 0, len(items))
	for _, item := range items {
		txs = append(txs, item.Transaction)
	}
	groupKeys := dedup.GroupKeys(txs)

	rows := make([]LedgerRow, 0, len(items))
	for i, item := range items {
		txn := item.Transaction
		date := bucket.EffectiveDate(txn)

		row := LedgerRow{
			GroupKey:      groupKeys[i],
			IdentityKey:   bucket.IdentityKey(txn),
			TransactionID: txn.ID,
			Type:          string(txn.Type),
			Status:        string(txn.Status),
			Currency:      string(txn.Currency),
			Amount:        txn.Amount.Float64(),
			Reference:     txn.Reference,
			InvestmentID:  txn.InvestmentID,
			Label:         item.Label,
			EffectiveRaw:  date.Raw,
			RunAt:         runAt.UTC(),
		}
		if date.Valid {
			at := date.Time
			row.EffectiveAt = &at
		}
		rows = append(rows, row)
	}
	return rows
}

// LoadTransactions inserts the reconciled ledger of one run.
func (l *ClickHouseLoader) LoadTransactions(ctx context.Context, items []models.PresentedTransaction, runAt time.Time) error {
	if len(items) == 0 {
		return nil
	}

	batch, err := l.Conn.PrepareBatch(ctx, `INSERT INTO roi_ledger (group_key, identity_key, transaction_id, type, status, currency,
		amount, reference, investment_id, label, effective_at, effective_raw, run_at)`)
	if err != nil {
		return fmt.Errorf("error preparing ledger batch: %w", err)
	}

	for _, r := range LedgerRows(items, runAt) {
		if err := batch.Append(r.GroupKey, r.IdentityKey, r.TransactionID, r.Type, r.Status, r.Currency,
			r.Amount, r.Reference, r.InvestmentID, r.Label, r.EffectiveAt, r.EffectiveRaw, r.RunAt); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("error appending to ledger batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("error sending ledger batch: %w", err)
	}
	return nil
}

// LoadSummaries inserts daily summaries of one run.
func (l *ClickHouseLoader) LoadSummaries(ctx context.Context, summaries []models.DailySummary, runAt time.Time) error {
	if len(summaries) == 0 {
		return nil
	}

	batch, err := l.Conn.PrepareBatch(ctx, "INSERT INTO roi_daily_summary (date, type, currency, transaction_count, total_amount, run_at)")
	if err != nil {
		return fmt.Errorf("error preparing summary batch: %w", err)
	}

	for _, s := range summaries {
		if err := batch.Append(s.Date, s.Type, s.Currency, s.TransactionCount, s.TotalAmount, runAt.UTC()); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("error appending to summary batch: %w", err)
		}
	}

	return batch.Send()
}

// FetchSummaries reads back stored summaries for a day.
func (l *ClickHouseLoader) FetchSummaries(ctx context.Context, date time.Time) ([]models.DailySummary, error) {
	return FetchSummaries(ctx, l.Conn, date)
}
