package presenter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/estensen/roi-dashboard/internal/bucket"
	"github.com/estensen/roi-dashboard/internal/models"
)

var ErrInvalidSort = errors.New("invalid sort option")

// Validate rejects unknown sort keys and orders. Empty values select the defaults.
func (o SortOptions) Validate() error {
	switch o.By {
	case "", SortByDate, SortByAmount:
	default:
		return fmt.Errorf("%w: sort by %q, want %s or %s", ErrInvalidSort, o.By, SortByDate, SortByAmount)
	}
	switch o.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("%w: order %q, want %s or %s", ErrInvalidSort, o.Order, OrderAsc, OrderDesc)
	}
	return nil
}

// Sort returns a stably sorted copy. By defaults to date, Order to desc.
// Unparseable dates count as the oldest.
func Sort(list []models.Transaction, opts SortOptions) []models.Transaction {
	out := append([]models.Transaction(nil), list...)
	asc := opts.Order == OrderAsc

	var less func(a, b models.Transaction) bool
	switch opts.By {
	case SortByAmount:
		less = func(a, b models.Transaction) bool {
			return a.Amount < b.Amount
		}
	default:
		less = func(a, b models.Transaction) bool {
			return bucket.Later(bucket.EffectiveDate(b), bucket.EffectiveDate(a))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})

	return out
}

// Paginate returns the 1-indexed page of items. Pages outside the list are empty.
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}
