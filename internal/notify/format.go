package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// FormatFinding renders a finding as a short alert title and body.
func FormatFinding(f domain.Finding) (title, message string) {
	title = fmt.Sprintf("%s: %s", f.Kind, eventLabel(f))

	var b strings.Builder
	if !f.CommenceTime.IsZero() {
		fmt.Fprintf(&b, "Starts %s\n", f.CommenceTime.UTC().Format("Mon 02 Jan 15:04 MST"))
	}

	switch f.Kind {
	case domain.KindBackArb:
		fmt.Fprintf(&b, "Implied sum %.4f (margin %.2f%%)\n", f.ImpliedSum, (1-f.ImpliedSum)*100)
		for _, name := range sortedKeys(f.BestBack) {
			o := f.BestBack[name]
			fmt.Fprintf(&b, "%s @ %.2f (%s)\n", name, o.Price, strings.Join(o.Bookmakers, ", "))
		}
	case domain.KindPointArb:
		point := 0.0
		if f.Point != nil {
			point = *f.Point
		}
		fmt.Fprintf(&b, "%s ±%g implied sum %.4f\n", f.Market, point, f.ImpliedSum)
	case domain.KindLayArb:
		fmt.Fprintf(&b, "%s back %.2f (%s) lay %.2f (%s)\n",
			f.Outcome,
			f.BackPrice, strings.Join(f.BackBookmakers, ", "),
			f.LayPrice, strings.Join(f.LayBookmakers, ", "),
		)
	case domain.KindLayAllocation:
		if a := f.Allocation; a != nil {
			fmt.Fprintf(&b, "Stake %.2f fee %.2f%% min profit %.2f\n", a.TotalStake, a.Fee*100, a.MinProfit())
			for i, name := range a.Outcomes {
				fmt.Fprintf(&b, "lay %s @ %.2f stake %.2f\n", name, a.LayOdds[i], a.Stakes[i])
			}
		}
	}
	return title, strings.TrimRight(b.String(), "\n")
}

func eventLabel(f domain.Finding) string {
	switch {
	case f.SportTitle != "" && f.EventID != "":
		return f.SportTitle + " " + f.EventID
	case f.SportTitle != "":
		return f.SportTitle
	default:
		return f.EventID
	}
}

func sortedKeys(m map[string]domain.BestOdds) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
