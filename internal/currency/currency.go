package currency

import (
	"strings"

	"github.com/estensen/roi-dashboard/internal/models"
)

// Normalize maps the currency spellings seen in feeds and exports
// like "NGN" or "USDT.TRC20" to their canonical wallet currency.
func Normalize(symbol string) models.Currency {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if i := strings.IndexAny(s, ".-_ "); i > 0 {
		s = s[:i]
	}

	switch s {
	case "ngn", "₦", "naira":
		return models.CurrencyNaira
	case "usdt", "usd₮", "tether":
		return models.CurrencyUSDT
	default:
		return models.Currency(s)
	}
}

// NormalizeTransactions rewrites currencies in place on a freshly decoded feed.
func NormalizeTransactions(txs []models.Transaction) {
	for i := range txs {
		txs[i].Currency = Normalize(string(txs[i].Currency))
	}
}

// NormalizeInvestments rewrites currencies in place on a freshly decoded feed.
func NormalizeInvestments(invs []models.Investment) {
	for i := range invs {
		invs[i].Currency = Normalize(string(invs[i].Currency))
	}
}
