// Package fetch retrieves the current availability table.
package fetch

import (
	"context"
	"fmt"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// Fetcher returns the current snapshot. Failures are *RetrievalError.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.Snapshot, error)
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context) (domain.Snapshot, error)

func (f Func) Fetch(ctx context.Context) (domain.Snapshot, error) { return f(ctx) }

// RetrievalError reports which stage of a fetch failed
// ("navigate", "wait_selector", "extract", "empty").
type RetrievalError struct {
	Stage string
	URL   string
	Err   error
}

func (e *RetrievalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("retrieve %s: %s failed", e.URL, e.Stage)
	}
	return fmt.Sprintf("retrieve %s: %s: %v", e.URL, e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
