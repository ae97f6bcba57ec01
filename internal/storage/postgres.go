package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eatbalance/web/internal"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS web_sessions (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS web_handoffs (
	session_id TEXT PRIMARY KEY,
	kcal       DOUBLE PRECISION NOT NULL,
	protein_g  DOUBLE PRECISION NOT NULL,
	carb_g     DOUBLE PRECISION NOT NULL,
	fat_g      DOUBLE PRECISION NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);`

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// --- SessionRepository ---
func (p *PostgresStorage) GetSession(ctx context.Context, id string) (*internal.Session, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM web_sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to query session: %v", err)
		return nil, err
	}
	var s internal.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (p *PostgresStorage) SaveSession(ctx context.Context, s *internal.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO web_sessions (id, data, expires_at, updated_at) VALUES ($1, $2::jsonb, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		s.ID, data, s.ExpiresAt, s.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to upsert session: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) DeleteSession(ctx context.Context, id string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Warnf("failed to roll back session delete: %v", rbErr)
		}
	}()
	if _, err := tx.Exec(ctx, `DELETE FROM web_handoffs WHERE session_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM web_sessions WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresStorage) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM web_sessions WHERE expires_at < $1`, now)
	if err != nil {
		p.logger.Errorf("failed to purge sessions: %v", err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// --- HandoffRepository ---
func (p *PostgresStorage) PutHandoff(ctx context.Context, h *internal.Handoff) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO web_handoffs (session_id, kcal, protein_g, carb_g, fat_g, expires_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET kcal = EXCLUDED.kcal, protein_g = EXCLUDED.protein_g,
			carb_g = EXCLUDED.carb_g, fat_g = EXCLUDED.fat_g, expires_at = EXCLUDED.expires_at`,
		h.SessionID, h.Totals.Kcal, h.Totals.ProteinG, h.Totals.CarbG, h.Totals.FatG, h.ExpiresAt)
	if err != nil {
		p.logger.Errorf("failed to upsert handoff: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetHandoff(ctx context.Context, sessionID string, now time.Time) (*internal.Handoff, error) {
	h := internal.Handoff{SessionID: sessionID}
	err := p.pool.QueryRow(ctx, `SELECT kcal, protein_g, carb_g, fat_g, expires_at FROM web_handoffs WHERE session_id = $1 AND expires_at >= $2`,
		sessionID, now).Scan(&h.Totals.Kcal, &h.Totals.ProteinG, &h.Totals.CarbG, &h.Totals.FatG, &h.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to query handoff: %v", err)
		return nil, err
	}
	return &h, nil
}

func (p *PostgresStorage) PurgeHandoffs(ctx context.Context, now time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM web_handoffs WHERE expires_at < $1`, now)
	if err != nil {
		p.logger.Errorf("failed to purge handoffs: %v", err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// --- Compile-time assertions ---
var _ Store = (*PostgresStorage)(nil)
