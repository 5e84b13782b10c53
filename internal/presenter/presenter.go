// Package presenter turns a reconciled transaction list into what a dashboard
// screen shows: labelled, filtered, sorted and paginated rows.
package presenter

import (
	"math"
	"strings"
	"time"

	"github.com/estensen/roi-dashboard/internal/bucket"
	"github.com/estensen/roi-dashboard/internal/models"
)

const (
	FilterAll = "all"

	SortByDate   = "date"
	SortByAmount = "amount"
	OrderAsc     = "asc"
	OrderDesc    = "desc"

	DefaultPageSize   = 10
	DefaultDateLayout = "Jan 2, 2006 3:04 PM"

	notAvailable = "N/A"
)

type Filter struct {
	Search string
	Status string
	Type   string
}

type SortOptions struct {
	By    string
	Order string
}

type Query struct {
	Filter   Filter
	Sort     SortOptions
	Page     int
	PageSize int
}

// Presenter labels transactions against one investment snapshot.
type Presenter struct {
	investments map[string]models.Investment
	location    *time.Location
	dateLayout  string
}

type Option func(*Presenter)

func WithLocation(loc *time.Location) Option {
	return func(p *Presenter) {
		if loc != nil {
			p.location = loc
		}
	}
}

func WithDateLayout(layout string) Option {
	return func(p *Presenter) {
		if layout != "" {
			p.dateLayout = layout
		}
	}
}

func New(investments []models.Investment, opts ...Option) *Presenter {
	p := &Presenter{
		investments: make(map[string]models.Investment, len(investments)),
		location:    time.UTC,
		dateLayout:  DefaultDateLayout,
	}
	for _, inv := range investments {
		if inv.ID != "" {
			p.investments[inv.ID] = inv
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Label returns the human description of a transaction. ROI rows name the plan
// when it can be resolved from the transaction or its investment.
func (p *Presenter) Label(txn models.Transaction) string {
	if txn.Type != models.TypeROI {
		return string(txn.Type)
	}

	if txn.Plan != nil && txn.Plan.Name != "" {
		return "ROI payment for " + txn.Plan.Name
	}

	inv, found := p.investments[txn.InvestmentID]
	if txn.InvestmentID == "" || !found {
		return "ROI payment"
	}

	name := inv.PlanName()
	if name == "" {
		name = "Investment"
	}
	return "ROI payment for " + name
}

// FormatDate renders the effective date in the presenter's zone, "N/A" when unknown.
func (p *Presenter) FormatDate(txn models.Transaction) string {
	ts := bucket.EffectiveDate(txn)
	if !ts.Valid {
		return notAvailable
	}
	return ts.Time.In(p.location).Format(p.dateLayout)
}

// Filter keeps transactions matching the search text and the exact status/type
// filters. "all" or an empty value disables a filter.
func (p *Presenter) Filter(list []models.Transaction, f Filter) []models.Transaction {
	search := strings.ToLower(f.Search)
	out := make([]models.Transaction, 0, len(list))

	for _, txn := range list {
		if !matchesExact(string(txn.Status), f.Status) || !matchesExact(string(txn.Type), f.Type) {
			continue
		}
		if search != "" && !p.matchesSearch(txn, search) {
			continue
		}
		out = append(out, txn)
	}

	return out
}

func (p *Presenter) matchesSearch(txn models.Transaction, search string) bool {
	for _, field := range []string{string(txn.Type), txn.Amount.String(), p.Label(txn)} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func matchesExact(value, filter string) bool {
	return filter == "" || filter == FilterAll || value == filter
}

// Present runs filter, sort and pagination and attaches labels and dates.
// A page below 1 means the first page; a non-positive page size uses DefaultPageSize.
func (p *Presenter) Present(list []models.Transaction, q Query) models.PresentedList {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := p.Filter(list, q.Filter)
	sorted := Sort(filtered, q.Sort)
	rows := Paginate(sorted, page, pageSize)

	return models.PresentedList{
		Items: p.PresentAll(rows),
		Meta:  NewPageMeta(len(filtered), page, pageSize),
	}
}

// PresentAll labels and dates every transaction, keeping the given order.
func (p *Presenter) PresentAll(list []models.Transaction) []models.PresentedTransaction {
	items := make([]models.PresentedTransaction, 0, len(list))
	for _, txn := range list {
		items = append(items, models.PresentedTransaction{
			Transaction:   txn,
			Label:         p.Label(txn),
			FormattedDate: p.FormatDate(txn),
		})
	}
	return items
}

func NewPageMeta(total, page, pageSize int) models.PageMeta {
	meta := models.PageMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}
