package domain

import (
	"strconv"
	"strings"
	"time"
)

// SlotRecord is one row of the availability table.
type SlotRecord struct {
	Location     string `json:"location"`
	TotalDates   string `json:"total_dates"`             // raw cell text, may be "N/A" or empty
	EarliestDate string `json:"earliest_date,omitempty"` // empty when the source does not publish it
}

// NewSlotRecord trims the raw cell values.
func NewSlotRecord(location, totalDates, earliest string) SlotRecord {
	return SlotRecord{
		Location:     strings.TrimSpace(location),
		TotalDates:   strings.TrimSpace(totalDates),
		EarliestDate: strings.TrimSpace(earliest),
	}
}

// Count parses TotalDates. ok is false when the cell is not an integer;
// such a record is not comparable for this cycle. Values outside the int
// range are treated the same way.
func (r SlotRecord) Count() (n int, ok bool) {
	n, err := strconv.Atoi(leadingInt(r.TotalDates))
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingInt keeps an optional sign and the leading digits, so "12 dates"
// reads as 12 while "N/A" stays unparseable.
func leadingInt(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return ""
	}
	return s[:end]
}

// Snapshot is one observation of every tracked location.
type Snapshot struct {
	Records []SlotRecord `json:"records"`
	TakenAt time.Time    `json:"taken_at"`
}

func NewSnapshot(records []SlotRecord, takenAt time.Time) Snapshot {
	cp := make([]SlotRecord, len(records))
	copy(cp, records)
	return Snapshot{Records: cp, TakenAt: takenAt}
}

// Find returns the first record whose location matches exactly.
func (s Snapshot) Find(location string) (SlotRecord, bool) {
	for _, r := range s.Records {
		if r.Location == location {
			return r, true
		}
	}
	return SlotRecord{}, false
}

func (s Snapshot) Len() int { return len(s.Records) }

// Clone returns a copy that shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	return NewSnapshot(s.Records, s.TakenAt)
}
