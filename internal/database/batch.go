package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/storage"
)

// LedgerStore persists reconciled runs.
type LedgerStore interface {
	LoadTransactions(ctx context.Context, items []models.PresentedTransaction, runAt time.Time) error
	LoadSummaries(ctx context.Context, summaries []models.DailySummary, runAt time.Time) error
}

// BatchJob pushes one snapshot to ClickHouse and MinIO. Either sink may be nil.
type BatchJob struct {
	Store   LedgerStore
	Storage storage.Storage
	Logger  *slog.Logger
}

func NewBatchJob(store LedgerStore, s storage.Storage, logger *slog.Logger) *BatchJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchJob{
		Store:   store,
		Storage: s,
		Logger:  logger,
	}
}

// Enabled reports whether any sink is configured.
func (b *BatchJob) Enabled() bool {
	return b != nil && (b.Store != nil || b.Storage != nil)
}

// Run writes the snapshot to every configured sink. A failing sink does not
// stop the others; all failures are returned joined.
func (b *BatchJob) Run(ctx context.Context, snap storage.Snapshot) error {
	var errs []error

	if b.Store != nil {
		if err := b.Store.LoadTransactions(ctx, snap.Transactions, snap.TakenAt); err != nil {
			errs = append(errs, fmt.Errorf("error loading ledger: %w", err))
		} else if err := b.Store.LoadSummaries(ctx, snap.Summaries, snap.TakenAt); err != nil {
			errs = append(errs, fmt.Errorf("error loading summaries: %w", err))
		}
	}

	if b.Storage != nil {
		names, err := storage.ArchiveSnapshot(ctx, b.Storage, snap)
		if err != nil {
			errs = append(errs, err)
		} else {
			b.Logger.Info("archived snapshot", "run_id", snap.RunID, "objects", len(names))
		}
	}

	return errors.Join(errs...)
}
