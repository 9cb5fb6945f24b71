package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/repo"
)

var _ repo.AlertLog = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS alerts (
  id          TEXT PRIMARY KEY,
  body        TEXT NOT NULL,
  locations   INTEGER NOT NULL,
  delivered   BOOLEAN NOT NULL,
  error       TEXT NOT NULL DEFAULT '',
  sent_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_sent_at ON alerts (sent_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info("postgres_ready")
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Record(ctx context.Context, r *domain.AlertRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SentAt.IsZero() {
		r.SentAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (id, body, locations, delivered, error, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.Body, r.Locations, r.Delivered, r.Error, r.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, body, locations, delivered, error, sent_at
		   FROM alerts
		  ORDER BY sent_at DESC, id DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var r domain.AlertRecord
		if err := rows.Scan(&r.ID, &r.Body, &r.Locations, &r.Delivered, &r.Error, &r.SentAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
