// Package changes compares two snapshots of the availability table.
package changes

import "github.com/hamed0406/slotwatch/internal/domain"

// DefaultThreshold is the smallest increase in available dates worth an alert.
const DefaultThreshold = 2

// Change is one location that moved enough to report.
type Change struct {
	Location string
	Current  int
	Previous int
	Delta    int
	// New is set when the location has no row in the previous snapshot.
	// Only Current is meaningful then, and only if it parsed.
	New bool
}

// Result is what Detect found, in the order of the current snapshot.
type Result struct {
	Changes []Change
}

// Changed reports whether anything warrants composing an alert. New
// locations count here even though they never produce an alert line.
func (r Result) Changed() bool { return len(r.Changes) > 0 }

// Quantified returns only the changes that carry a delta.
func (r Result) Quantified() []Change {
	out := make([]Change, 0, len(r.Changes))
	for _, c := range r.Changes {
		if !c.New {
			out = append(out, c)
		}
	}
	return out
}

// Significant applies the threshold rule to one pair of rows. ok is false
// if either count does not parse or the increase is below threshold.
func Significant(cur, prev domain.SlotRecord, threshold int) (delta int, ok bool) {
	c, okC := cur.Count()
	p, okP := prev.Count()
	if !okC || !okP {
		return 0, false
	}
	// Counts are date tallies on a public page; c - p cannot overflow for them.
	delta = c - p
	return delta, delta >= threshold
}

// Detect compares current against previous. previous must be a real
// observation; the caller skips detection until a baseline exists.
func Detect(current, previous domain.Snapshot, threshold int) Result {
	var res Result
	for _, cur := range current.Records {
		prev, found := previous.Find(cur.Location)
		if !found {
			c, _ := cur.Count()
			res.Changes = append(res.Changes, Change{Location: cur.Location, Current: c, New: true})
			continue
		}
		delta, ok := Significant(cur, prev, threshold)
		if !ok {
			continue
		}
		c, _ := cur.Count()
		p, _ := prev.Count()
		res.Changes = append(res.Changes, Change{
			Location: cur.Location,
			Current:  c,
			Previous: p,
			Delta:    delta,
		})
	}
	return res
}
