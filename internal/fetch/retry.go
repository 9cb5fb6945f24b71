package fetch

import (
	"context"
	"time"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// RetryFetcher retries Inner with a fixed backoff while ctx allows.
type RetryFetcher struct {
	Inner    Fetcher
	Attempts int
	Backoff  time.Duration
}

func (r *RetryFetcher) Fetch(ctx context.Context) (domain.Snapshot, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		snap, err := r.Inner.Fetch(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return domain.Snapshot{}, lastErr
		case <-time.After(r.Backoff):
		}
	}
	return domain.Snapshot{}, lastErr
}
