package trader

import (
	"fmt"
	"strings"
	"time"
)

// Hours is a set of intraday "HH:MM-HH:MM" windows during which the
// live loop is allowed to trade.
type Hours struct {
	windows []window
}

type window struct {
	start int // minutes since midnight, inclusive
	end   int // exclusive
}

// ParseHours parses window specs like "09:30-11:30". Windows may not
// wrap past midnight. An empty spec list means always open.
func ParseHours(specs []string) (*Hours, error) {
	h := &Hours{}
	for _, spec := range specs {
		parts := strings.SplitN(spec, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid trading window %q, expected HH:MM-HH:MM", spec)
		}
		start, err := parseHHMM(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := parseHHMM(parts[1])
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("invalid trading window %q, end before start", spec)
		}
		h.windows = append(h.windows, window{start: start, end: end})
	}
	return h, nil
}

// Open reports whether t falls inside any window.
func (h *Hours) Open(t time.Time) bool {
	if len(h.windows) == 0 {
		return true
	}
	mins := t.Hour()*60 + t.Minute()
	for _, w := range h.windows {
		if mins >= w.start && mins < w.end {
			return true
		}
	}
	return false
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}
