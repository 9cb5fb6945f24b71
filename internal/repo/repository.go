package repo

import (
	"context"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// AlertLog keeps dispatched alerts for the status API. It is an audit
// trail only; the monitor never restores its state from it.
type AlertLog interface {
	// Record stores r, filling ID and SentAt when empty.
	Record(ctx context.Context, r *domain.AlertRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.AlertRecord, error)
}
