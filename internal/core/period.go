package core

import (
	"fmt"
	"strings"
)

// Period is a reporting mode of the usage source.
type Period string

const (
	PeriodToday    Period = "today"
	PeriodFiveHour Period = "5h"
	PeriodOneHour  Period = "1h"
	PeriodWeek     Period = "week"
)

// AllPeriods lists periods in menu order.
var AllPeriods = []Period{
	PeriodToday,
	PeriodFiveHour,
	PeriodOneHour,
	PeriodWeek,
}

func ParsePeriod(raw string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today", "day", "daily":
		return PeriodToday, nil
	case "5h", "5hrs", "5hr", "five_hour":
		return PeriodFiveHour, nil
	case "1h", "1hr", "one_hour":
		return PeriodOneHour, nil
	case "week", "7d", "weekly":
		return PeriodWeek, nil
	default:
		return "", fmt.Errorf("unknown period %q (want today, 5h, 1h or week)", raw)
	}
}

func (p Period) Label() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodFiveHour:
		return "5 Hrs"
	case PeriodOneHour:
		return "1 Hr"
	case PeriodWeek:
		return "Week"
	default:
		return string(p)
	}
}

// IsSession reports whether the period is served by rolling session blocks
// rather than calendar days.
func (p Period) IsSession() bool {
	return p == PeriodFiveHour || p == PeriodOneHour
}

// SessionHours returns the block length passed to the usage tool, or 0 for
// calendar periods.
func (p Period) SessionHours() int {
	switch p {
	case PeriodFiveHour:
		return 5
	case PeriodOneHour:
		return 1
	default:
		return 0
	}
}

func (p Period) Valid() bool {
	for _, known := range AllPeriods {
		if p == known {
			return true
		}
	}
	return false
}
