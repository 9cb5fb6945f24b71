package scheduler

import (
	"time"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// State is what the monitor carries from one cycle to the next.
// The zero value is the uninitialized state: no baseline yet.
type State struct {
	Previous    domain.Snapshot
	Initialized bool
}

// Seeded returns an initialized state holding snap.
func Seeded(snap domain.Snapshot) State {
	return State{Previous: snap, Initialized: true}
}

// CycleReport describes one finished cycle.
type CycleReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Records    int       `json:"records"`
	Changed    bool      `json:"changed"`
	Alert      string    `json:"alert,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Status is the read-only view published after every cycle.
type Status struct {
	Initialized bool            `json:"initialized"`
	Cycles      int64           `json:"cycles"`
	Last        *CycleReport    `json:"last,omitempty"`
	Snapshot    domain.Snapshot `json:"-"`
}
