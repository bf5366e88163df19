package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"coverage-grid/internal/catalog"
	"coverage-grid/internal/coverage"
	"coverage-grid/internal/export"
	"coverage-grid/internal/kv"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"
	"coverage-grid/internal/utils"

	"github.com/joho/godotenv"
)

// 离线导出：读取持久化的商户配置与区划目录，写出 delivery_config.json
// 输出目录取第一个参数，其次 EXPORT_DIR，默认当前目录；与界面导出结果一致
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	out := utils.EnvOr("EXPORT_DIR", ".")
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	cat := catalog.Load(ctx, catalog.SourceFromEnv(), catalog.FilesFromEnv())
	if cat.Len() == 0 {
		l.Warn("catalog_empty")
	}
	store, closeKV, err := kv.OpenFromEnv(ctx)
	if err != nil {
		l.Error("kv_open_error", "err", err)
		os.Exit(1)
	}
	defer closeKV()
	defaults, err := merchant.DefaultsFromEnv()
	if err != nil {
		l.Error("merchant_defaults_error", "err", err)
		os.Exit(1)
	}
	st, err := merchant.Open(ctx, store, defaults)
	if err != nil {
		l.Error("merchant_config_error", "err", err)
		os.Exit(1)
	}

	p, err := export.Build(coverage.NewComputer(cat), st.List()).WriteFile(out)
	if err != nil {
		l.Error("export_write_error", "err", err)
		os.Exit(1)
	}
	l.Info("export_written", "path", p)
}
