package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/poller"
	"github.com/estensen/roi-dashboard/internal/presenter"
)

// Dashboard exposes the latest reconciled state.
type Dashboard interface {
	Snapshot() (poller.State, bool)
	Presenter() *presenter.Presenter
}

// Countdowns exposes the live countdown map.
type Countdowns interface {
	Snapshot() map[string]string
}

// SummaryStore reads persisted daily summaries.
type SummaryStore interface {
	FetchSummaries(ctx context.Context, date time.Time) ([]models.DailySummary, error)
}

// Server represents the API server with necessary dependencies.
type Server struct {
	Dashboard  Dashboard
	Countdowns Countdowns
	Summaries  SummaryStore // optional; in-memory summaries are used when nil
	logger     *slog.Logger
	router     *mux.Router
}

// NewServer initializes a new API server instance.
func NewServer(dashboard Dashboard, countdowns Countdowns, summaries SummaryStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Dashboard:  dashboard,
		Countdowns: countdowns,
		Summaries:  summaries,
		logger:     logger,
		router:     mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/transactions", s.TransactionsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/countdowns", s.CountdownsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/summary", s.SummaryHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// TransactionsHandler handles the /transactions endpoint.
func (s *Server) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, loaded := s.Dashboard.Snapshot()
	if !loaded {
		respondError(w, http.StatusServiceUnavailable, "dashboard has not been refreshed yet")
		return
	}

	respondJSON(w, http.StatusOK, s.Dashboard.Presenter().Present(state.Transactions, q))
}

func parseQuery(r *http.Request) (presenter.Query, error) {
	values := r.URL.Query()
	q := presenter.Query{
		Filter: presenter.Filter{
			Search: values.Get("search"),
			Status: values.Get("status"),
			Type:   values.Get("type"),
		},
		Sort: presenter.SortOptions{
			By:    values.Get("sort"),
			Order: values.Get("order"),
		},
	}

	if err := q.Sort.Validate(); err != nil {
		return q, err
	}

	var err error
	if q.Page, err = intParam(values.Get("page")); err != nil {
		return q, fmt.Errorf("invalid 'page' parameter: %w", err)
	}
	if q.PageSize, err = intParam(values.Get("pageSize")); err != nil {
		return q, fmt.Errorf("invalid 'pageSize' parameter: %w", err)
	}
	return q, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

// CountdownsHandler handles the /countdowns endpoint.
func (s *Server) CountdownsHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Countdowns.Snapshot())
}

// SummaryHandler handles the /summary endpoint.
func (s *Server) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		respondError(w, http.StatusBadRequest, "Missing 'date' query parameter")
		return
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		return
	}

	if s.Summaries != nil {
		summaries, err := s.Summaries.FetchSummaries(r.Context(), date)
		if err != nil {
			s.logger.Error("error fetching summaries", "date", dateStr, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		respondJSON(w, http.StatusOK, summaries)
		return
	}

	state, _ := s.Dashboard.Snapshot()
	respondJSON(w, http.StatusOK, presenter.SummariesFor(state.Summaries, date))
}

type health struct {
	Status      string     `json:"status"`
	Loaded      bool       `json:"loaded"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
	Tracked     int        `json:"trackedInvestments"`
}

// HealthHandler handles the /healthz endpoint.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	state, loaded := s.Dashboard.Snapshot()
	h := health{Status: "ok", Loaded: loaded, Tracked: len(s.Countdowns.Snapshot())}
	if loaded {
		at := state.RefreshedAt
		h.RefreshedAt = &at
	}
	respondJSON(w, http.StatusOK, h)
}

// Serve runs the API on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server is running", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown: %w", err)
		}
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}
