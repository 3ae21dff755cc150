package ccusage

import (
	"strconv"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

const sinceLayout = "20060102"

// Options tweaks the generated argument lists.
type Options struct {
	// ActiveOnly adds --active to session queries.
	ActiveOnly bool
}

// Args returns the ccusage arguments for a reporting period. The week window
// starts seven days before now, in now's location.
func Args(period core.Period, now time.Time, opts Options) []string {
	switch {
	case period == core.PeriodWeek:
		since := now.AddDate(0, 0, -7).Format(sinceLayout)
		return []string{"daily", "--json", "--breakdown", "--since", since}
	case period.IsSession():
		args := []string{
			"blocks", "--json", "--breakdown", "--recent",
			"--session-length", strconv.Itoa(period.SessionHours()),
		}
		if opts.ActiveOnly {
			args = append(args, "--active")
		}
		return args
	default:
		return []string{"daily", "--json", "--breakdown"}
	}
}
