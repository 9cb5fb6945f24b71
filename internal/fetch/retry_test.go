package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// fake fetcher you can control
type fakeFetcher struct {
	results []error
	i       int
}

func (f *fakeFetcher) Fetch(ctx context.Context) (domain.Snapshot, error) {
	if f.i >= len(f.results) {
		return domain.Snapshot{}, errors.New("no more")
	}
	err := f.results[f.i]
	f.i++
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot([]domain.SlotRecord{{Location: "A", TotalDates: "1"}}, time.Now()), nil
}

func TestRetryFetcher_SucceedsAfterRetry(t *testing.T) {
	f := &fakeFetcher{results: []error{
		&RetrievalError{Stage: "navigate", URL: "u", Err: errors.New("boom")},
		nil,
	}}
	rf := &RetryFetcher{Inner: f, Attempts: 3, Backoff: 5 * time.Millisecond}

	snap, err := rf.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if snap.Len() != 1 || f.i != 2 {
		t.Fatalf("unexpected snapshot=%+v calls=%d", snap, f.i)
	}
}

func TestRetryFetcher_AllFailReturnsLast(t *testing.T) {
	last := &RetrievalError{Stage: "wait_selector", URL: "u", Err: context.DeadlineExceeded}
	f := &fakeFetcher{results: []error{
		&RetrievalError{Stage: "navigate", URL: "u"},
		last,
	}}
	rf := &RetryFetcher{Inner: f, Attempts: 2}

	_, err := rf.Fetch(context.Background())
	var re *RetrievalError
	if !errors.As(err, &re) || re.Stage != "wait_selector" {
		t.Fatalf("want last RetrievalError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want wrapped deadline error, got %v", err)
	}
}

func TestRetryFetcher_StopsOnCancel(t *testing.T) {
	f := &fakeFetcher{results: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	rf := &RetryFetcher{Inner: f, Attempts: 3, Backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rf.Fetch(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if f.i != 1 {
		t.Fatalf("want 1 attempt before giving up, got %d", f.i)
	}
}
