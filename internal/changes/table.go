package changes

import (
	"fmt"
	"strings"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// Table renders a side-by-side Location/Previous/Current report over the
// union of both snapshots, previous order first. Missing cells print "-".
func Table(previous, current domain.Snapshot) string {
	seen := make(map[string]struct{}, previous.Len()+current.Len())
	var locations []string
	for _, s := range []domain.Snapshot{previous, current} {
		for _, r := range s.Records {
			if _, ok := seen[r.Location]; ok {
				continue
			}
			seen[r.Location] = struct{}{}
			locations = append(locations, r.Location)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s%-10s%-10s\n", "Location", "Previous", "Current")
	for _, loc := range locations {
		fmt.Fprintf(&b, "%-20s%-10s%-10s\n", loc, cell(previous, loc), cell(current, loc))
	}
	return b.String()
}

func cell(s domain.Snapshot, location string) string {
	r, ok := s.Find(location)
	if !ok {
		return "-"
	}
	return r.TotalDates
}
