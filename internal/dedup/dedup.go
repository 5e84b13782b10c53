package dedup

import (
	"log/slog"
	"math"
	"sort"

	"github.com/estensen/roi-dashboard/internal/bucket"
	"github.com/estensen/roi-dashboard/internal/models"
)

type Deduplicator interface {
	Deduplicate(transactions []models.Transaction) []models.Transaction
}

// Tolerance decides when two ROI postings on the same day are the same payout.
// Amounts a and b match when |a-b| <= max(Absolute, min(|a|,|b|)*Relative).
type Tolerance struct {
	Absolute float64
	Relative float64
}

var DefaultTolerance = Tolerance{Absolute: 1, Relative: 0.01}

func (t Tolerance) RoughlyEqual(a, b float64) bool {
	limit := math.Max(t.Absolute, math.Min(math.Abs(a), math.Abs(b))*t.Relative)
	return math.Abs(a-b) <= limit
}

// Stats describes what a single reconciliation pass removed or kept.
type Stats struct {
	Input           int
	ExactDuplicates int
	Collapsed       int
	DistinctSameDay int
	Output          int
}

type LedgerDeduplicator struct {
	tolerance Tolerance
	logger    *slog.Logger
}

type Option func(*LedgerDeduplicator)

func WithTolerance(t Tolerance) Option {
	return func(d *LedgerDeduplicator) {
		d.tolerance = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *LedgerDeduplicator) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDeduplicator(opts ...Option) *LedgerDeduplicator {
	d := &LedgerDeduplicator{
		tolerance: DefaultTolerance,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deduplicate returns one transaction per real-world event, newest first.
func (d *LedgerDeduplicator) Deduplicate(transactions []models.Transaction) []models.Transaction {
	out, _ := d.Run(transactions)
	return out
}

// Run is Deduplicate plus the counters of the pass.
func (d *LedgerDeduplicator) Run(transactions []models.Transaction) ([]models.Transaction, Stats) {
	stats := Stats{Input: len(transactions)}

	unique := d.dropExactDuplicates(transactions, &stats)

	g := newGroups(len(unique))
	for _, txn := range unique {
		if txn.Type == models.TypeROI {
			d.collapseROI(g, txn, &stats)
			continue
		}

		g.keepLatest(otherKey(txn), txn, &stats)
	}

	out := g.values()
	sort.SliceStable(out, func(i, j int) bool {
		return bucket.Later(bucket.EffectiveDate(out[i]), bucket.EffectiveDate(out[j]))
	})
	stats.Output = len(out)

	d.logger.Debug("reconciled transaction feed",
		"input", stats.Input,
		"exact_duplicates", stats.ExactDuplicates,
		"collapsed", stats.Collapsed,
		"distinct_same_day_roi", stats.DistinctSameDay,
		"output", stats.Output,
	)

	return out, stats
}

// dropExactDuplicates keeps the first record seen per identity key.
func (d *LedgerDeduplicator) dropExactDuplicates(transactions []models.Transaction, stats *Stats) []models.Transaction {
	seen := make(map[string]struct{}, len(transactions))
	unique := make([]models.Transaction, 0, len(transactions))

	for _, txn := range transactions {
		key := bucket.IdentityKey(txn)
		if _, exists := seen[key]; exists {
			stats.ExactDuplicates++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, txn)
	}

	return unique
}

// collapseROI merges postings of the same payout (same investment, currency and
// UTC day, amounts within tolerance). A same-day posting with a different amount
// is kept under its own amount-qualified key.
func (d *LedgerDeduplicator) collapseROI(g *groups, txn models.Transaction, stats *Stats) {
	key := roiKey(txn)

	existing, exists := g.get(key)
	if !exists {
		g.put(key, txn)
		return
	}

	if d.tolerance.RoughlyEqual(existing.Amount.Float64(), txn.Amount.Float64()) {
		stats.Collapsed++
		if bucket.Later(bucket.EffectiveDate(txn), bucket.EffectiveDate(existing)) {
			g.put(key, txn)
		}
		return
	}

	stats.DistinctSameDay++
	g.keepLatest(key+":"+txn.Amount.String(), txn, stats)
}

func roiKey(txn models.Transaction) string {
	return "roi:" + txn.InvestmentID + ":" + string(txn.Currency) + ":" + bucket.DayKeyOf(txn)
}

func otherKey(txn models.Transaction) string {
	if txn.Reference != "" {
		return "other:" + txn.Reference
	}
	return "other:" + bucket.IdentityKey(txn)
}

// GroupKeys names the recurrence group of each transaction in an already
// reconciled list. The newest ROI posting of an investment, currency and day
// owns the plain day key and older distinct payouts of that day are qualified
// by amount, so a later posting that replaces an earlier one keeps its key.
func GroupKeys(reconciled []models.Transaction) []string {
	order := make([]int, len(reconciled))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bucket.Later(bucket.EffectiveDate(reconciled[order[a]]), bucket.EffectiveDate(reconciled[order[b]]))
	})

	keys := make([]string, len(reconciled))
	claimed := make(map[string]struct{}, len(reconciled))
	for _, i := range order {
		txn := reconciled[i]
		if txn.Type != models.TypeROI {
			keys[i] = otherKey(txn)
			continue
		}
		key := roiKey(txn)
		if _, taken := claimed[key]; taken {
			key += ":" + txn.Amount.String()
		}
		claimed[key] = struct{}{}
		keys[i] = key
	}
	return keys
}

// groups is an insertion-ordered map so output is deterministic before sorting.
type groups struct {
	order   []string
	entries map[string]models.Transaction
}

func newGroups(size int) *groups {
	return &groups{
		order:   make([]string, 0, size),
		entries: make(map[string]models.Transaction, size),
	}
}

func (g *groups) get(key string) (models.Transaction, bool) {
	txn, ok := g.entries[key]
	return txn, ok
}

func (g *groups) put(key string, txn models.Transaction) {
	if _, exists := g.entries[key]; !exists {
		g.order = append(g.order, key)
	}
	g.entries[key] = txn
}

func (g *groups) keepLatest(key string, txn models.Transaction, stats *Stats) {
	existing, exists := g.get(key)
	if !exists {
		g.put(key, txn)
		return
	}
	stats.Collapsed++
	if bucket.Later(bucket.EffectiveDate(txn), bucket.EffectiveDate(existing)) {
		g.put(key, txn)
	}
}

func (g *groups) values() []models.Transaction {
	out := make([]models.Transaction, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.entries[key])
	}
	return out
}
