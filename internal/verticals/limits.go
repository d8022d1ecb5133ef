package verticals

import (
	"time"

	"github.com/wolfman30/carehub/internal/flow"
)

// Upper bounds on user-entered counts. Quotes clamp to them so totals stay
// well inside int64.
const (
	maxQuantity = 99
	maxDays     = 365
	maxHours    = 24
)

// validDate reports key when it is set but not a YYYY-MM-DD date.
func validDate(key string) func(flow.State) []string {
	return func(s flow.State) []string {
		if !s.Has(key) {
			return nil
		}
		if _, err := time.Parse(time.DateOnly, s.String(key)); err != nil {
			return []string{key}
		}
		return nil
	}
}

// inRange reports key when its integer value falls outside [lo, hi].
func inRange(s flow.State, key string, lo, hi int64) []string {
	if n := s.Int(key); n < lo || n > hi {
		return []string{key}
	}
	return nil
}

// clamp bounds n to [lo, hi].
func clamp(n, lo, hi int64) int64 {
	return min(max(n, lo), hi)
}

// all combines checks into one, preserving order.
func all(checks ...func(flow.State) []string) func(flow.State) []string {
	return func(s flow.State) []string {
		var missing []string
		for _, check := range checks {
			missing = append(missing, check(s)...)
		}
		return missing
	}
}
