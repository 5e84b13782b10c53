package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/poller"
	"github.com/estensen/roi-dashboard/internal/presenter"
)

var refreshedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type mockDashboard struct {
	state  poller.State
	loaded bool
}

func (m *mockDashboard) Snapshot() (poller.State, bool) {
	return m.state, m.loaded
}

func (m *mockDashboard) Presenter() *presenter.Presenter {
	return presenter.New(m.state.Investments, presenter.WithLocation(time.UTC))
}

type mockCountdowns map[string]string

func (m mockCountdowns) Snapshot() map[string]string {
	return m
}

type mockSummaryStore struct {
	summaries []models.DailySummary
	err       error
	date      time.Time
}

func (m *mockSummaryStore) FetchSummaries(ctx context.Context, date time.Time) ([]models.DailySummary, error) {
	m.date = date
	return m.summaries, m.err
}

func loadedDashboard() *mockDashboard {
	txs := make([]models.Transaction, 0, 12)
	for i := 0; i < 12; i++ {
		txs = append(txs, models.Transaction{
			ID:        string(rune('a' + i)),
			Type:      models.TypeDeposit,
			Status:    models.StatusCompleted,
			Amount:    models.Amount(10 * (i + 1)),
			CreatedAt: models.NewTimestamp(refreshedAt.Add(-time.Duration(i) * time.Hour)),
		})
	}
	txs[0].Type = models.TypeROI
	txs[0].InvestmentID = "inv1"

	return &mockDashboard{
		loaded: true,
		state: poller.State{
			RefreshedAt:  refreshedAt,
			Transactions: txs,
			Investments:  []models.Investment{{ID: "inv1", Plan: &models.PlanRef{Name: "Gold"}}},
			Summaries:    presenter.Summarize(txs),
		},
	}
}

func do(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestTransactionsHandler(t *testing.T) {
	s := NewServer(loadedDashboard(), mockCountdowns{}, nil, nil)

	rr := do(t, s, "/transactions")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var list models.PresentedList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, models.PageMeta{Page: 1, PageSize: 10, TotalCount: 12, TotalPages: 2}, list.Meta)
	require.Len(t, list.Items, 10)
	assert.Equal(t, "ROI payment for Gold", list.Items[0].Label)

	rr = do(t, s, "/transactions?page=2&pageSize=10&sort=amount&order=asc")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, models.Amount(110), list.Items[0].Transaction.Amount)

	rr = do(t, s, "/transactions?type=roi")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Meta.TotalCount)
}

func TestTransactionsHandlerBadQuery(t *testing.T) {
	s := NewServer(loadedDashboard(), mockCountdowns{}, nil, nil)

	for _, target := range []string{
		"/transactions?page=abc",
		"/transactions?pageSize=-1",
		"/transactions?sort=color",
		"/transactions?order=sideways",
	} {
		rr := do(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestTransactionsHandlerNotLoaded(t *testing.T) {
	s := NewServer(&mockDashboard{}, mockCountdowns{}, nil, nil)
	rr := do(t, s, "/transactions")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCountdownsHandler(t *testing.T) {
	s := NewServer(loadedDashboard(), mockCountdowns{"inv1": "5h 7m"}, nil, nil)

	rr := do(t, s, "/countdowns")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"inv1":"5h 7m"}`, rr.Body.String())
}

func TestSummaryHandler(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		expectCode int
	}{
		{"Missing date", "/summary", http.StatusBadRequest},
		{"Bad date", "/summary?date=01-06-2024", http.StatusBadRequest},
		{"Valid date", "/summary?date=2024-06-01", http.StatusOK},
	}

	s := NewServer(loadedDashboard(), mockCountdowns{}, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, tt.target)
			assert.Equal(t, tt.expectCode, rr.Code)
		})
	}

	rr := do(t, s, "/summary?date=2024-06-01")
	var summaries []models.DailySummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)
	for _, sum := range summaries {
		assert.Equal(t, "2024-06-01", sum.Date.Format("2006-01-02"))
	}
}

func TestSummaryHandlerUsesStore(t *testing.T) {
	store := &mockSummaryStore{summaries: []models.DailySummary{{Type: "roi", Currency: "naira", TransactionCount: 4}}}
	s := NewServer(loadedDashboard(), mockCountdowns{}, store, nil)

	rr := do(t, s, "/summary?date=2024-05-30")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC), store.date)
	assert.Contains(t, rr.Body.String(), `"transactionCount":4`)

	store.err = errors.New("clickhouse down")
	rr = do(t, s, "/summary?date=2024-05-30")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	s := NewServer(loadedDashboard(), mockCountdowns{"inv1": "Due now"}, nil, nil)

	rr := do(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","loaded":true,"refreshedAt":"2024-06-01T12:00:00Z","trackedInvestments":1}`, rr.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(loadedDashboard(), mockCountdowns{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
