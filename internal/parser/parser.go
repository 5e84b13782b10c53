package parser

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/estensen/roi-dashboard/internal/currency"
	"github.com/estensen/roi-dashboard/internal/models"
)

type Parser interface {
	ParseTransactions(filePath string) ([]models.Transaction, error)
	ParseInvestments(filePath string) ([]models.Investment, error)
}

// CSV export column order.
const (
	colID = iota
	colUserID
	colType
	colAmount
	colCurrency
	colStatus
	colReference
	colInvestmentID
	colPlanID
	colPlanName
	colCreatedAt
	colProcessedAt
)

type FileParser struct{}

func NewFileParser() *FileParser {
	return &FileParser{}
}

// ParseTransactions reads a transaction feed from a .csv export or a JSON API dump.
func (p *FileParser) ParseTransactions(filePath string) ([]models.Transaction, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".csv") {
		return p.ParseCSV(filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	txs, _, err := DecodeTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return txs, nil
}

// ParseInvestments reads an investment feed from a JSON API dump.
func (p *FileParser) ParseInvestments(filePath string) ([]models.Investment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	invs, err := DecodeInvestments(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return invs, nil
}

func (p *FileParser) ParseCSV(filePath string) ([]models.Transaction, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Trailing optional columns may be omitted
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	transactions := make([]models.Transaction, 0, len(records))
	for i, record := range records {
		if i == 0 {
			continue // Skip header
		}
		txn, err := ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

// ParseRecord converts one CSV export row into a Transaction.
func ParseRecord(record []string) (models.Transaction, error) {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var txn models.Transaction

	if field(colType) == "" {
		return txn, fmt.Errorf("missing transaction type")
	}

	amount, err := parseAmount(field(colAmount))
	if err != nil {
		return txn, err
	}

	txn.ID = field(colID)
	txn.UserID = field(colUserID)
	txn.Type = models.TransactionType(strings.ToLower(field(colType)))
	txn.Amount = amount
	txn.Currency = currency.Normalize(field(colCurrency))
	txn.Status = models.Status(strings.ToLower(field(colStatus)))
	txn.Reference = field(colReference)
	txn.InvestmentID = field(colInvestmentID)
	if id, name := field(colPlanID), field(colPlanName); id != "" || name != "" {
		txn.Plan = &models.PlanRef{ID: id, Name: name}
	}
	txn.CreatedAt = models.ParseTimestamp(field(colCreatedAt))
	txn.ProcessedAt = models.ParseTimestamp(field(colProcessedAt))

	return txn, nil
}

func parseAmount(s string) (models.Amount, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return models.Amount(v), nil
}
