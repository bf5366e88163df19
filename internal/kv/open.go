package kv

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"coverage-grid/internal/logger"
	"coverage-grid/internal/migrate"
	"coverage-grid/internal/utils"
)

// OpenFromEnv：按 KV_BACKEND 选择后端（file|memory|redis|postgres），默认 file
// 返回的 closer 由调用方在退出时执行
func OpenFromEnv(ctx context.Context) (Store, func() error, error) {
	noop := func() error { return nil }
	backend := strings.ToLower(utils.EnvOr("KV_BACKEND", "file"))
	l := logger.L()
	switch backend {
	case "memory":
		l.Info("kv_backend", "backend", backend)
		return NewMemory(), noop, nil
	case "file":
		dir := utils.EnvOr("KV_FILE_DIR", filepath.Join("data", "kv"))
		s, err := NewFile(dir)
		if err != nil {
			return nil, noop, err
		}
		l.Info("kv_backend", "backend", backend, "dir", dir)
		return s, noop, nil
	case "redis":
		rc := utils.OpenRedisFromEnv()
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		l.Info("kv_backend", "backend", backend)
		return NewRedis(rc, utils.EnvOr("REDIS_KEY_PREFIX", "coverage:")), rc.Close, nil
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, noop, fmt.Errorf("postgres open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("postgres ping: %w", err)
		}
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("postgres schema: %w", err)
		}
		l.Info("kv_backend", "backend", backend)
		return NewPostgres(db), db.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown KV_BACKEND %q", backend)
}
