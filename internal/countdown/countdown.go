// Package countdown keeps a live "time until next ROI payout" string for every
// investment in the current snapshot.
package countdown

import (
	"fmt"
	"time"

	"github.com/estensen/roi-dashboard/internal/models"
)

const (
	NotAvailable = "N/A"
	DueNow       = "Due now"

	// FallbackDelay approximates the next payout when the backend sent no nextRoiUpdate.
	FallbackDelay = 24 * time.Hour
)

// Target returns the instant of the next ROI update for inv. nextRoiUpdate is
// authoritative; a malformed value yields no target rather than the fallback.
func Target(inv models.Investment) (time.Time, bool) {
	if inv.NextROIUpdate.Present() {
		if !inv.NextROIUpdate.Valid {
			return time.Time{}, false
		}
		return inv.NextROIUpdate.Time, true
	}
	if inv.StartDate.Valid {
		return inv.StartDate.Time.Add(FallbackDelay), true
	}
	return time.Time{}, false
}

// Format renders the countdown for inv at now.
func Format(inv models.Investment, now time.Time) string {
	target, ok := Target(inv)
	if !ok {
		return NotAvailable
	}
	return FormatRemaining(target.Sub(now))
}

// FormatRemaining renders a remaining duration, floored to whole seconds.
func FormatRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return DueNow
	}

	hours := int64(remaining / time.Hour)
	minutes := int64((remaining % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}

	seconds := int64((remaining % time.Minute) / time.Second)
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
