package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"coverage-grid/internal/utils"
)

// ErrMissing：资源不存在或服务端返回非 2xx
var ErrMissing = errors.New("district resource missing")

// Source：按名称读取单个区划资源
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DirSource：从本地静态目录读取
type DirSource struct {
	Dir string
}

func (s DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrMissing)
	}
	return b, err
}

// HTTPSource：从静态资源路径读取（BaseURL + "/" + name）
// 约束：单个资源体积上限 32MB
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

const maxResourceBytes = 32 << 20

func (s HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	u := strings.TrimRight(s.BaseURL, "/") + "/" + path.Base(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: status %d: %w", name, resp.StatusCode, ErrMissing)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes))
}

// SourceFromEnv：DISTRICT_BASE_URL 优先，否则读取 DISTRICT_DIR（默认 data/districts）
func SourceFromEnv() Source {
	if base := os.Getenv("DISTRICT_BASE_URL"); base != "" {
		return HTTPSource{BaseURL: base}
	}
	return DirSource{Dir: utils.EnvOr("DISTRICT_DIR", filepath.Join("data", "districts"))}
}

// FilesFromEnv：DISTRICT_FILES 逗号分隔，未设置时使用 DefaultFiles
func FilesFromEnv() []string {
	raw := os.Getenv("DISTRICT_FILES")
	if raw == "" {
		return DefaultFiles
	}
	var out []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
