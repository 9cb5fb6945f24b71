package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
)

func TestPostgresStore_RecordAndRecent(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	// Unique body per run so earlier runs don't confuse the lookup.
	body := fmt.Sprintf("TEST-%d: 7 dates", time.Now().UTC().UnixNano())
	rec := &domain.AlertRecord{Body: body, Locations: 1, Delivered: true}
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected ID to be set")
	}

	recent, err := store.Recent(ctx, 20)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	found := false
	for _, r := range recent {
		if r.ID == rec.ID {
			found = true
			if r.Body != body || !r.Delivered || r.Locations != 1 {
				t.Fatalf("unexpected row: %+v", r)
			}
		}
	}
	if !found {
		t.Fatalf("recorded alert not found in %d recent rows", len(recent))
	}
}
