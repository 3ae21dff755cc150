package core

import (
	"fmt"

	"github.com/samber/lo"
)

// MenuLine is one per-model row handed to the host menu.
type MenuLine struct {
	Model  string
	Label  string
	Detail string
}

// FormatCost renders a USD amount the way the tray title shows it.
func FormatCost(usd float64) string {
	return fmt.Sprintf("$%.2f", usd)
}

// Title returns the tray badge text, or "" when hidden or nothing is cached.
func Title(usage AggregatedUsage, show bool) string {
	if !show || usage == nil {
		return ""
	}
	return FormatCost(usage.TotalCost())
}

func MenuLines(usage AggregatedUsage) []MenuLine {
	return lo.Map(usage.Sorted(), func(b ModelBreakdown, _ int) MenuLine {
		return MenuLine{
			Model:  b.Model,
			Label:  DisplayName(b.Model),
			Detail: fmt.Sprintf("%s · %s in / %s out", FormatCost(b.CostUSD), FormatTokens(b.InputTokens), FormatTokens(b.OutputTokens)),
		}
	})
}

// FormatTokens abbreviates large token counts (12.3K, 3.4M).
func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d", n)
	}
}
