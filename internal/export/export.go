// 包 export：导出全部商户配置及各自独立计算的覆盖区
package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"coverage-grid/internal/coverage"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"
	"coverage-grid/internal/metrics"
)

// Filename：导出文件名
const Filename = "delivery_config.json"

// Entry：商户字段 + mask（无覆盖区时为 null）
type Entry struct {
	merchant.Merchant
	Mask coverage.Mask `json:"mask"`
}

type Document struct {
	Merchants []Entry `json:"merchants"`
}

// Build：按存储顺序为每个商户重新计算覆盖区，不依赖当前活动商户
func Build(c *coverage.Computer, merchants []merchant.Merchant) Document {
	doc := Document{Merchants: make([]Entry, 0, len(merchants))}
	for _, m := range merchants {
		m = m.Clone()
		doc.Merchants = append(doc.Merchants, Entry{Merchant: m, Mask: c.Compute(m)})
	}
	metrics.ExportsTotal.Inc()
	logger.L().Info("export_built", "merchants", len(doc.Merchants))
	return doc
}

// Write：两空格缩进 JSON
func (d Document) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteFile：写入 dir/delivery_config.json，返回完整路径
func (d Document) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, Filename)
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if err := d.Write(f); err != nil {
		_ = f.Close()
		return "", err
	}
	return p, f.Close()
}
