package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/estensen/roi-dashboard/internal/dedup"
	"github.com/estensen/roi-dashboard/internal/feed"
	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/presenter"
	"github.com/estensen/roi-dashboard/internal/storage"
)

// Countdowns receives every refreshed investment set.
type Countdowns interface {
	Replace(investments []models.Investment) error
}

// Sink persists a reconciled snapshot.
type Sink interface {
	Run(ctx context.Context, snap storage.Snapshot) error
}

// State is the reconciled view produced by the latest successful refresh.
type State struct {
	RunID        uuid.UUID
	RefreshedAt  time.Time
	Transactions []models.Transaction
	Investments  []models.Investment
	Summaries    []models.DailySummary
	Stats        dedup.Stats
}

// Poller periodically pulls both feeds, reconciles them and fans the result out
// to the countdown scheduler and the configured sinks.
type Poller struct {
	source     feed.Source
	countdowns Countdowns
	dedup      *dedup.LedgerDeduplicator
	sink       Sink
	presenter  []presenter.Option
	clock      clockwork.Clock
	interval   time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	cron       gocron.Scheduler

	refresh sync.Mutex
	mu      sync.RWMutex
	state   State
	loaded  bool
}

type Option func(*Poller)

func WithSink(s Sink) Option {
	return func(p *Poller) { p.sink = s }
}

func WithDeduplicator(d *dedup.LedgerDeduplicator) Option {
	return func(p *Poller) {
		if d != nil {
			p.dedup = d
		}
	}
}

func WithPresenterOptions(opts ...presenter.Option) Option {
	return func(p *Poller) { p.presenter = append(p.presenter, opts...) }
}

func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithRefreshTimeout bounds a single scheduled refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(source feed.Source, countdowns Countdowns, opts ...Option) (*Poller, error) {
	p := &Poller{
		source:     source,
		countdowns: countdowns,
		clock:      clockwork.NewRealClock(),
		interval:   time.Minute,
		timeout:    30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dedup == nil {
		p.dedup = dedup.NewDeduplicator(dedup.WithLogger(p.logger))
	}

	cron, err := gocron.NewScheduler(
		gocron.WithClock(p.clock),
		gocron.WithLogger(p.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll scheduler: %w", err)
	}
	p.cron = cron
	return p, nil
}

// Refresh fetches both feeds, reconciles them and publishes the new state.
// On fetch failure the previous state is kept. Sink failures are logged only.
func (p *Poller) Refresh(ctx context.Context) error {
	p.refresh.Lock()
	defer p.refresh.Unlock()

	txs, err := p.source.FetchTransactions(ctx)
	if err != nil {
		return fmt.Errorf("error fetching transactions: %w", err)
	}
	invs, err := p.source.FetchInvestments(ctx)
	if err != nil {
		return fmt.Errorf("error fetching investments: %w", err)
	}

	reconciled, stats := p.dedup.Run(txs)
	state := State{
		RunID:        uuid.New(),
		RefreshedAt:  p.clock.Now().UTC(),
		Transactions: reconciled,
		Investments:  invs,
		Summaries:    presenter.Summarize(reconciled),
		Stats:        stats,
	}

	p.mu.Lock()
	p.state = state
	p.loaded = true
	p.mu.Unlock()

	var errs []error
	if p.countdowns != nil {
		if err := p.countdowns.Replace(invs); err != nil {
			errs = append(errs, fmt.Errorf("error replacing countdowns: %w", err))
		}
	}

	if p.sink != nil {
		snap := storage.Snapshot{
			RunID:        state.RunID,
			TakenAt:      state.RefreshedAt,
			Transactions: p.Presenter().PresentAll(reconciled),
			Summaries:    state.Summaries,
		}
		if err := p.sink.Run(ctx, snap); err != nil {
			p.logger.Warn("snapshot sink failed", "run_id", state.RunID, "error", err)
		}
	}

	p.logger.Info("dashboard refreshed",
		"run_id", state.RunID,
		"transactions", stats.Output,
		"dropped", stats.Input-stats.Output,
		"investments", len(invs),
	)
	return errors.Join(errs...)
}

// Snapshot returns the latest state and whether any refresh has succeeded yet.
func (p *Poller) Snapshot() (State, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.loaded
}

// Presenter builds a presenter over the latest investments.
func (p *Poller) Presenter() *presenter.Presenter {
	p.mu.RLock()
	invs := p.state.Investments
	p.mu.RUnlock()
	return presenter.New(invs, p.presenter...)
}

// Start schedules Refresh every interval, the first run immediately.
func (p *Poller) Start() error {
	_, err := p.cron.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.scheduledRefresh),
		gocron.WithName("poll:feeds"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}
	p.cron.Start()
	return nil
}

func (p *Poller) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.Refresh(ctx); err != nil {
		p.logger.Error("refresh failed", "error", err)
	}
}

func (p *Poller) Stop() error {
	return p.cron.Shutdown()
}
