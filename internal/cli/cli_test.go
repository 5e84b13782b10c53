package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/presenter"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

const history = `{"data":{"transactions":[
	{"id":"1","type":"roi","investmentId":"inv1","amount":100,"currency":"naira","status":"completed","createdAt":"2024-06-01T10:00:00Z"},
	{"id":"2","type":"roi","investmentId":"inv1","amount":"100.4","currency":"NGN","status":"completed","createdAt":"2024-06-01T11:00:00Z"},
	{"id":"3","type":"deposit","reference":"dep-1","amount":5000,"currency":"naira","status":"completed","createdAt":"2024-05-30T09:00:00Z"},
	{"id":"3","type":"deposit","reference":"dep-1","amount":5000,"currency":"naira","status":"completed","createdAt":"2024-05-30T09:00:00Z"}
],"pagination":{"page":1,"totalPages":1}}}`

const investments = `{"data":[{"id":"inv1","plan":{"name":"Gold"},"amount":10000,"currency":"naira","nextRoiUpdate":"2999-01-01T00:00:00Z"}]}`

func TestReconcileJSON(t *testing.T) {
	dir := t.TempDir()
	txFile := writeFile(t, dir, "history.json", history)
	invFile := writeFile(t, dir, "investments.json", investments)

	out, err := run(t, "reconcile", "--transactions", txFile, "--investments", invFile, "--json")
	require.NoError(t, err)

	var list models.PresentedList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "2", list.Items[0].Transaction.ID)
	assert.Equal(t, "ROI payment for Gold", list.Items[0].Label)
	assert.Equal(t, "3", list.Items[1].Transaction.ID)
	assert.Equal(t, 2, list.Meta.TotalCount)
}

func TestReconcileTable(t *testing.T) {
	dir := t.TempDir()
	txFile := writeFile(t, dir, "history.json", history)

	out, err := run(t, "reconcile", "-t", txFile, "--type", "deposit")
	require.NoError(t, err)
	assert.Contains(t, out, "₦5,000.00")
	assert.NotContains(t, out, "ROI payment")
}

func TestReconcileSummary(t *testing.T) {
	dir := t.TempDir()
	txFile := writeFile(t, dir, "history.json", history)

	out, err := run(t, "reconcile", "-t", txFile, "--summary", "--json")
	require.NoError(t, err)

	var summaries []models.DailySummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "roi", summaries[0].Type)
	assert.Equal(t, uint64(1), summaries[0].TransactionCount)
}

func TestReconcileRejectsUnknownSort(t *testing.T) {
	dir := t.TempDir()
	txFile := writeFile(t, dir, "history.json", history)

	_, err := run(t, "reconcile", "-t", txFile, "--sort", "foo")
	assert.ErrorIs(t, err, presenter.ErrInvalidSort)

	_, err = run(t, "reconcile", "-t", txFile, "--order", "sideways")
	assert.ErrorIs(t, err, presenter.ErrInvalidSort)
}

func TestReconcileSearchMatchesLabel(t *testing.T) {
	dir := t.TempDir()
	txFile := writeFile(t, dir, "history.json", history)
	invFile := writeFile(t, dir, "investments.json", investments)

	out, err := run(t, "reconcile", "-t", txFile, "-i", invFile, "--search", "gold", "--json")
	require.NoError(t, err)

	var list models.PresentedList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "ROI payment for Gold", list.Items[0].Label)
}

func TestReconcileRequiresTransactions(t *testing.T) {
	_, err := run(t, "reconcile")
	assert.Error(t, err)
}

func TestReconcileMissingFile(t *testing.T) {
	_, err := run(t, "reconcile", "-t", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading transactions")
}

func TestCountdownOnce(t *testing.T) {
	dir := t.TempDir()
	invFile := writeFile(t, dir, "investments.json", investments)

	out, err := run(t, "countdown", "-i", invFile, "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "inv1")
	assert.Contains(t, out, "Gold")
	assert.Contains(t, out, "h ")
}

func TestCountdownDuration(t *testing.T) {
	dir := t.TempDir()
	invFile := writeFile(t, dir, "investments.json", `[{"id":"inv2","startDate":"2024-01-01T00:00:00Z"}]`)
	t.Setenv("ROIDASH_COUNTDOWN_INTERVAL", "20ms")

	start := time.Now()
	out, err := run(t, "countdown", "-i", invFile, "--duration", "100ms")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Contains(t, out, "Due now")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("ROIDASH_POLL_INTERVAL", "0s")

	_, err := run(t, "countdown", "-i", "whatever.json", "--once")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll.interval")
}
