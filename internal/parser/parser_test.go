package parser_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/parser"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = `id,userId,type,amount,currency,status,reference,investmentId,planId,planName,createdAt,processedAt
t1,u1,ROI,"1,500.50",NGN,completed,,inv1,p1,Gold Plan,2024-06-01 10:15:00,2024-06-01T10:16:00Z
t2,u1,deposit,100,USDT,pending,dep-9
`

func TestParseCSV(t *testing.T) {
	p := parser.NewFileParser()
	transactions, err := p.ParseTransactions(writeFile(t, "history.csv", sampleCSV))
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	first := transactions[0]
	assert.Equal(t, "t1", first.ID)
	assert.Equal(t, models.TypeROI, first.Type)
	assert.Equal(t, models.Amount(1500.5), first.Amount)
	assert.Equal(t, models.CurrencyNaira, first.Currency)
	assert.Equal(t, "inv1", first.InvestmentID)
	assert.Equal(t, &models.PlanRef{ID: "p1", Name: "Gold Plan"}, first.Plan)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 16, 0, 0, time.UTC), first.ProcessedAt.Time)

	second := transactions[1]
	assert.Equal(t, "dep-9", second.Reference)
	assert.Equal(t, models.CurrencyUSDT, second.Currency)
	assert.Nil(t, second.Plan)
	assert.False(t, second.CreatedAt.Present())
}

func TestParseCSVReportsLine(t *testing.T) {
	p := parser.NewFileParser()
	_, err := p.ParseTransactions(writeFile(t, "bad.csv", "id,userId,type,amount\nt1,u1,roi,lots\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name     string
		record   []string
		expected models.Transaction
		wantErr  bool
	}{
		{
			name:   "Full row",
			record: []string{"t1", "u1", "Withdrawal", "250", "ngn", "Failed", "wd-1", "", "", "", "2024-01-01", ""},
			expected: models.Transaction{
				ID:        "t1",
				UserID:    "u1",
				Type:      models.TypeWithdrawal,
				Amount:    250,
				Currency:  models.CurrencyNaira,
				Status:    models.StatusFailed,
				Reference: "wd-1",
				CreatedAt: models.ParseTimestamp("2024-01-01"),
			},
		},
		{
			name:   "Short row",
			record: []string{"t2", "u2", "bonus"},
			expected: models.Transaction{
				ID:     "t2",
				UserID: "u2",
				Type:   models.TypeBonus,
			},
		},
		{
			name:    "Missing type",
			record:  []string{"t3", "u3", ""},
			wantErr: true,
		},
		{
			name:    "Bad amount",
			record:  []string{"t4", "u4", "roi", "12abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn, err := parser.ParseRecord(tt.record)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, txn)
		})
	}
}

func TestParseTransactionsJSON(t *testing.T) {
	body := `{"success":true,"data":{"transactions":[
		{"id":"t1","type":"roi","amount":"10.5","currency":"NGN","createdAt":"2024-06-01T10:00:00Z","planId":{"_id":"p1","name":"Gold"}}
	],"pagination":{"page":1,"limit":20,"total":1,"totalPages":1}}}`

	p := parser.NewFileParser()
	transactions, err := p.ParseTransactions(writeFile(t, "history.json", body))
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.Amount(10.5), transactions[0].Amount)
	assert.Equal(t, models.CurrencyNaira, transactions[0].Currency)
	assert.Equal(t, "Gold", transactions[0].Plan.Name)
}

func TestParseInvestments(t *testing.T) {
	body := `{"data":[{"id":"inv1","status":"active","currency":"USDT","nextRoiUpdate":"2024-06-02T00:00:00Z","plan":{"name":"Silver"}}]}`

	p := parser.NewFileParser()
	investments, err := p.ParseInvestments(writeFile(t, "investments.json", body))
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, models.CurrencyUSDT, investments[0].Currency)
	assert.Equal(t, "Silver", investments[0].PlanName())
	assert.True(t, investments[0].NextROIUpdate.Valid)
}

func TestParseMissingFile(t *testing.T) {
	p := parser.NewFileParser()
	_, err := p.ParseTransactions(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
