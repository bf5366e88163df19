package migrate

import (
	"context"

	"coverage-grid/internal/logger"

	"github.com/jmoiron/sqlx"
)

// 背景：KV_BACKEND=postgres 首次运行时自动建表
// 约束：IF NOT EXISTS，可重复执行
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _coverage_kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
