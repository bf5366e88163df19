package kv

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Postgres：_coverage_kv 表存储，表结构由 migrate.EnsureSchema 创建
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM _coverage_kv WHERE key=$1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	observe("postgres", "get", err)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (s *Postgres) Set(ctx context.Context, key string, val []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO _coverage_kv(key, value, updated_at)
        VALUES($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, key, string(val))
	observe("postgres", "set", err)
	return err
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM _coverage_kv WHERE key=$1`, key)
	observe("postgres", "del", err)
	return err
}
