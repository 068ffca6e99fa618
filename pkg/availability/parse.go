package availability

import (
	"math"
	"strconv"
	"strings"
)

// Blocked and open status keywords. A blocked keyword forces a date
// unavailable for that row, an open keyword forces it available, and any
// other status defers to the inventory count.
var blockedStatuses = map[string]struct{}{
	"reserved":      {},
	"unavailable":   {},
	"blocked":       {},
	"booked":        {},
	"closed":        {},
	"close":         {},
	"blackout":      {},
	"soldout":       {},
	"sold_out":      {},
	"not available": {},
}

var openStatuses = map[string]struct{}{
	"available": {},
	"open":      {},
}

// ParsePrice extracts a numeric price from upstream text, stripping currency
// symbols and grouping noise. Unparseable input yields 0.
func ParsePrice(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// ParseInventoryCount interprets the upstream availability indicator as a
// non-negative integer count. Numeric strings are floored at zero, the
// keywords true/yes/available count as one, and anything else counts as
// zero.
func ParseInventoryCount(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
			return 0
		}
		return int(n)
	}
	switch s {
	case "true", "yes", "available":
		return 1
	}
	return 0
}

// ResolveAvailability decides whether a single row marks its date bookable:
// explicit status keywords win, otherwise inventory decides.
func ResolveAvailability(status string, inventoryCount int) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s != "" {
		if _, blocked := blockedStatuses[s]; blocked {
			return false
		}
		if _, open := openStatuses[s]; open {
			return true
		}
	}
	return inventoryCount > 0
}
