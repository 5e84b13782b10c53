package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/estensen/roi-dashboard/internal/models"
)

// FormatAmount renders a two-decimal amount with thousands separators and the
// wallet's currency marker, e.g. "₦1,500.50" or "20.00 USDT".
func FormatAmount(amount models.Amount, currency models.Currency) string {
	d := decimal.NewFromFloat(amount.Float64())
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	grouped := groupThousands(d.StringFixed(2))

	switch currency {
	case models.CurrencyNaira:
		return sign + "₦" + grouped
	case "":
		return sign + grouped
	default:
		return sign + grouped + " " + strings.ToUpper(string(currency))
	}
}

func groupThousands(fixed string) string {
	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Transactions prints one presented page.
func Transactions(w io.Writer, list models.PresentedList) {
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No transactions to display.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Type", "Description", "Amount", "Status", "Reference"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})

	for _, item := range list.Items {
		txn := item.Transaction
		t.AppendRow(table.Row{
			item.FormattedDate,
			string(txn.Type),
			item.Label,
			FormatAmount(txn.Amount, txn.Currency),
			string(txn.Status),
			txn.Reference,
		})
	}

	m := list.Meta
	t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("Page %d of %d, %d total", m.Page, m.TotalPages, m.TotalCount)})
	t.Render()
}

// Countdowns prints the ROI countdown of every tracked investment, ordered by id.
func Countdowns(w io.Writer, displays map[string]string, investments []models.Investment) {
	if len(displays) == 0 {
		fmt.Fprintln(w, "No active investments.")
		return
	}

	plans := make(map[string]models.Investment, len(investments))
	for _, inv := range investments {
		plans[inv.ID] = inv
	}

	ids := make([]string, 0, len(displays))
	for id := range displays {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Investment", "Plan", "Amount", "Next ROI"})
	for _, id := range ids {
		inv := plans[id]
		t.AppendRow(table.Row{id, inv.PlanName(), FormatAmount(inv.Amount, inv.Currency), displays[id]})
	}
	t.Render()
}

// Summaries prints daily totals per type and currency.
func Summaries(w io.Writer, summaries []models.DailySummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No summaries to display.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Type", "Currency", "Transaction Count", "Total Amount"})

	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Date.Format("2006-01-02"),
			s.Type,
			s.Currency,
			s.TransactionCount,
			FormatAmount(models.Amount(s.TotalAmount), models.Currency(s.Currency)),
		})
	}

	t.Render()
}
