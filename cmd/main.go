// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coverage-grid/internal/api"
	"coverage-grid/internal/catalog"
	"coverage-grid/internal/controller"
	"coverage-grid/internal/coverage"
	"coverage-grid/internal/kv"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"
	"coverage-grid/internal/metrics"
	"coverage-grid/internal/middleware"
	"coverage-grid/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := strings.TrimRight(utils.EnvOr("API_BASE", "/api"), "/")
	l.Debug("config_api_base", "base", apiBase)
	ui := utils.EnvOr("UI_DIST", filepath.Join("ui", "dist"))
	l.Debug("config_ui_dir", "dir", ui)

	ctx := context.Background()

	// 目录加载完成前不接受任何交互
	loadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	cat := catalog.Load(loadCtx, catalog.SourceFromEnv(), catalog.FilesFromEnv())
	cancel()
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
	merchants, err := merchant.Open(ctx, store, defaults)
	if err != nil {
		l.Error("merchant_config_error", "err", err)
		os.Exit(1)
	}

	comp := coverage.NewComputer(cat)
	ctl := controller.New(merchants, comp)

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(ctl, comp)))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc("/config.js", api.ConfigJS(apiBase))
	// 本地目录模式下同时对前端暴露区划静态资源
	if src, ok := catalog.SourceFromEnv().(catalog.DirSource); ok {
		mux.Handle("/districts/", http.StripPrefix("/districts/", http.FileServer(http.Dir(src.Dir))))
	}
	mux.Handle("/", http.FileServer(http.Dir(ui)))

	addr := utils.EnvOr("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	handler = middleware.Guard(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := utils.EnvOr("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.EnvOr("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "coverage-grid.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil {
			l.Error("server_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil {
		l.Error("server_error", "err", err)
	}
}
