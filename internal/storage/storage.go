package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estensen/roi-dashboard/internal/models"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// Storage is an interface for uploading files.
type Storage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, contentType string) error
}

// Snapshot is one reconciled state of the dashboard.
type Snapshot struct {
	RunID        uuid.UUID                     `json:"runId"`
	TakenAt      time.Time                     `json:"takenAt"`
	Transactions []models.PresentedTransaction `json:"transactions"`
	Summaries    []models.DailySummary         `json:"-"`
}

// ArchiveSnapshot writes the reconciled list as JSON and the daily summary as CSV under
// snapshots/<yyyy-mm-dd>/<run id>. It returns the uploaded object names.
func ArchiveSnapshot(ctx context.Context, s Storage, snap Snapshot) ([]string, error) {
	if snap.RunID == uuid.Nil {
		snap.RunID = uuid.New()
	}
	prefix := path.Join("snapshots", snap.TakenAt.UTC().Format("2006-01-02"), snap.RunID.String())

	listJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("error encoding snapshot: %w", err)
	}

	summaryCSV, err := SummaryCSV(snap.Summaries)
	if err != nil {
		return nil, err
	}

	objects := []struct {
		name        string
		body        []byte
		contentType string
	}{
		{path.Join(prefix, "transactions.json"), listJSON, ContentTypeJSON},
		{path.Join(prefix, "summary.csv"), summaryCSV, ContentTypeCSV},
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if err := s.UploadFile(ctx, obj.name, bytes.NewReader(obj.body), obj.contentType); err != nil {
			return names, fmt.Errorf("error archiving snapshot %s: %w", snap.RunID, err)
		}
		names = append(names, obj.name)
	}
	return names, nil
}

// SummaryCSV renders daily summaries with a header row.
func SummaryCSV(summaries []models.DailySummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"date", "type", "currency", "transaction_count", "total_amount"}); err != nil {
		return nil, fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, s := range summaries {
		record := []string{
			s.Date.Format("2006-01-02"),
			s.Type,
			s.Currency,
			strconv.FormatUint(s.TransactionCount, 10),
			decimal.NewFromFloat(s.TotalAmount).StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("error writing CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return buf.Bytes(), nil
}

var ErrObjectNotFound = errors.New("object not found")

// MemoryStorage keeps uploads in memory. It backs dry runs and tests.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MemoryStorage) UploadFile(ctx context.Context, objectName string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = data
	m.types[objectName] = contentType
	return nil
}

func (m *MemoryStorage) Object(name string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	return data, m.types[name], nil
}

func (m *MemoryStorage) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
