package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/estensen/roi-dashboard/internal/currency"
	"github.com/estensen/roi-dashboard/internal/models"
)

var ErrUnrecognizedPayload = errors.New("unrecognized feed payload")

// Pagination is the paging block of the transaction-history response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type envelope struct {
	Data         json.RawMessage `json:"data"`
	Transactions json.RawMessage `json:"transactions"`
	Investments  json.RawMessage `json:"investments"`
	Pagination   *Pagination     `json:"pagination"`
}

// DecodeTransactions accepts a bare array, {"data": [...]},
// {"data": {"transactions": [...], "pagination": {...}}} or {"transactions": [...]}.
// Pagination is nil when the payload carries none.
func DecodeTransactions(data []byte) ([]models.Transaction, *Pagination, error) {
	raw, pagination, err := unwrap(data, func(e envelope) json.RawMessage { return e.Transactions })
	if err != nil {
		return nil, nil, err
	}

	var txs []models.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	currency.NormalizeTransactions(txs)
	return txs, pagination, nil
}

// DecodeInvestments accepts the same envelope shapes keyed by "investments".
func DecodeInvestments(data []byte) ([]models.Investment, error) {
	raw, _, err := unwrap(data, func(e envelope) json.RawMessage { return e.Investments })
	if err != nil {
		return nil, err
	}

	var invs []models.Investment
	if err := json.Unmarshal(raw, &invs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}
	if invs == nil {
		invs = []models.Investment{}
	}
	currency.NormalizeInvestments(invs)
	return invs, nil
}

// unwrap descends through at most two envelope levels to the JSON array.
func unwrap(data []byte, list func(envelope) json.RawMessage) (json.RawMessage, *Pagination, error) {
	var pagination *Pagination
	current := bytes.TrimSpace(data)

	for depth := 0; depth < 3; depth++ {
		if len(current) == 0 {
			return nil, nil, fmt.Errorf("%w: empty body", ErrUnrecognizedPayload)
		}
		switch current[0] {
		case '[':
			return current, pagination, nil
		case 'n':
			return json.RawMessage("[]"), pagination, nil
		case '{':
		default:
			return nil, nil, fmt.Errorf("%w: unexpected token %q", ErrUnrecognizedPayload, current[0])
		}

		var e envelope
		if err := json.Unmarshal(current, &e); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
		}
		if e.Pagination != nil {
			pagination = e.Pagination
		}

		switch {
		case len(list(e)) > 0:
			current = bytes.TrimSpace(list(e))
		case len(e.Data) > 0:
			current = bytes.TrimSpace(e.Data)
		default:
			return nil, nil, fmt.Errorf("%w: no data field", ErrUnrecognizedPayload)
		}
	}

	return nil, nil, fmt.Errorf("%w: nested too deeply", ErrUnrecognizedPayload)
}
