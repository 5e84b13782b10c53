package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/storage"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ts(s string) models.Timestamp {
	return models.ParseTimestamp(s)
}

type fakeSource struct {
	mu    sync.Mutex
	txs   []models.Transaction
	invs  []models.Investment
	err   error
	calls atomic.Int32
}

func (f *fakeSource) FetchTransactions(ctx context.Context) ([]models.Transaction, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs, f.err
}

func (f *fakeSource) FetchInvestments(ctx context.Context) ([]models.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invs, f.err
}

type fakeCountdowns struct {
	replaced [][]models.Investment
	err      error
}

func (f *fakeCountdowns) Replace(investments []models.Investment) error {
	f.replaced = append(f.replaced, investments)
	return f.err
}

type fakeSink struct {
	snaps []storage.Snapshot
	err   error
}

func (f *fakeSink) Run(ctx context.Context, snap storage.Snapshot) error {
	f.snaps = append(f.snaps, snap)
	return f.err
}

func roiFeed() []models.Transaction {
	return []models.Transaction{
		{ID: "a", Type: models.TypeROI, InvestmentID: "inv1", Amount: 100, Currency: models.CurrencyNaira, CreatedAt: ts("2024-06-01T10:00:00Z")},
		{ID: "b", Type: models.TypeROI, InvestmentID: "inv1", Amount: 100.5, Currency: models.CurrencyNaira, CreatedAt: ts("2024-06-01T11:00:00Z")},
		{ID: "c", Type: models.TypeDeposit, Reference: "dep-1", Amount: 50, Currency: models.CurrencyNaira, CreatedAt: ts("2024-05-31T09:00:00Z")},
		{ID: "c", Type: models.TypeDeposit, Reference: "dep-1", Amount: 50, Currency: models.CurrencyNaira, CreatedAt: ts("2024-05-31T09:00:00Z")},
	}
}

func TestRefresh(t *testing.T) {
	source := &fakeSource{
		txs:  roiFeed(),
		invs: []models.Investment{{ID: "inv1", Plan: &models.PlanRef{Name: "Gold"}}},
	}
	countdowns := &fakeCountdowns{}
	sink := &fakeSink{}

	p, err := New(source, countdowns, WithSink(sink), WithClock(clockwork.NewFakeClockAt(now)))
	require.NoError(t, err)

	_, loaded := p.Snapshot()
	assert.False(t, loaded)

	require.NoError(t, p.Refresh(context.Background()))

	state, loaded := p.Snapshot()
	require.True(t, loaded)
	require.Len(t, state.Transactions, 2)
	assert.Equal(t, "b", state.Transactions[0].ID, "latest ROI posting of the day wins")
	assert.Equal(t, "c", state.Transactions[1].ID)
	assert.Equal(t, now, state.RefreshedAt)
	assert.Equal(t, 4, state.Stats.Input)
	assert.Len(t, state.Summaries, 2)

	require.Len(t, countdowns.replaced, 1)
	assert.Equal(t, "inv1", countdowns.replaced[0][0].ID)

	require.Len(t, sink.snaps, 1)
	assert.Equal(t, state.RunID, sink.snaps[0].RunID)
	assert.Equal(t, "ROI payment for Gold", sink.snaps[0].Transactions[0].Label)
}

func TestRefreshKeepsStateOnFetchError(t *testing.T) {
	source := &fakeSource{txs: roiFeed()}
	countdowns := &fakeCountdowns{}

	p, err := New(source, countdowns)
	require.NoError(t, err)
	require.NoError(t, p.Refresh(context.Background()))
	before, _ := p.Snapshot()

	source.mu.Lock()
	source.err = errors.New("wallet API down")
	source.mu.Unlock()

	err = p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet API down")

	after, loaded := p.Snapshot()
	assert.True(t, loaded)
	assert.Equal(t, before.RunID, after.RunID)
	assert.Len(t, countdowns.replaced, 1)
}

func TestRefreshSinkFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{txs: roiFeed()}
	sink := &fakeSink{err: errors.New("bucket unavailable")}

	p, err := New(source, nil, WithSink(sink))
	require.NoError(t, err)

	require.NoError(t, p.Refresh(context.Background()))
	state, loaded := p.Snapshot()
	assert.True(t, loaded)
	assert.Len(t, state.Transactions, 2)
}

func TestRefreshReportsCountdownFailure(t *testing.T) {
	source := &fakeSource{txs: roiFeed()}
	countdowns := &fakeCountdowns{err: errors.New("scheduler stopped")}

	p, err := New(source, countdowns)
	require.NoError(t, err)

	err = p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler stopped")

	_, loaded := p.Snapshot()
	assert.True(t, loaded)
}

func TestStartPollsOnInterval(t *testing.T) {
	source := &fakeSource{txs: roiFeed()}

	p, err := New(source, nil, WithInterval(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return source.calls.Load() >= 3
	}, 3*time.Second, 10*time.Millisecond)

	_, loaded := p.Snapshot()
	assert.True(t, loaded)
}
