package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Limit expresses "Count requests per Window".
type Limit struct {
	Count  int
	Window time.Duration
}

func (l Limit) String() string {
	return fmt.Sprintf("%d per %s", l.Count, l.Window)
}

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseLimit parses limit strings in the form used by the service
// configuration, e.g. "100 per hour" or "1 per 5 minutes". The unit may be
// singular or plural and may carry an optional multiplier.
func ParseLimit(s string) (Limit, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) < 3 || fields[1] != "per" {
		return Limit{}, fmt.Errorf("invalid rate limit %q: want \"<count> per [n] <unit>\"", s)
	}

	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return Limit{}, fmt.Errorf("invalid rate limit count in %q", s)
	}

	multiplier := 1
	unitField := fields[2]
	if len(fields) == 4 {
		multiplier, err = strconv.Atoi(fields[2])
		if err != nil || multiplier <= 0 {
			return Limit{}, fmt.Errorf("invalid rate limit window multiplier in %q", s)
		}
		unitField = fields[3]
	} else if len(fields) != 3 {
		return Limit{}, fmt.Errorf("invalid rate limit %q", s)
	}

	unit, ok := units[strings.TrimSuffix(unitField, "s")]
	if !ok {
		return Limit{}, fmt.Errorf("invalid rate limit unit in %q", s)
	}

	return Limit{Count: count, Window: time.Duration(multiplier) * unit}, nil
}
