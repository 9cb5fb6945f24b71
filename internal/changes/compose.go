package changes

import (
	"fmt"
	"strings"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// Compose renders the alert body. It walks current in order and applies
// the same Significant rule as Detect; locations missing from previous
// are skipped. ok is false when there is nothing to say.
func Compose(current, previous domain.Snapshot, threshold int) (body string, ok bool) {
	var lines []string
	for _, cur := range current.Records {
		prev, found := previous.Find(cur.Location)
		if !found {
			continue
		}
		if _, sig := Significant(cur, prev, threshold); !sig {
			continue
		}
		lines = append(lines, alertLine(cur))
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

func alertLine(r domain.SlotRecord) string {
	line := fmt.Sprintf("%s: %s dates", r.Location, r.TotalDates)
	if r.EarliestDate != "" {
		line += fmt.Sprintf(" (earliest: %s)", r.EarliestDate)
	}
	return line
}
