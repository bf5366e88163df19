// 包 catalog：邮编区划目录，启动时并行加载后只读
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coverage-grid/internal/geometry"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/metrics"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultFiles：固定的区划资源清单（Chester / Wirral / Liverpool）
var DefaultFiles = []string{
	"CH1.geojson", "CH2.geojson", "CH3.geojson", "CH4.geojson", "CH5.geojson", "CH6.geojson", "CH7.geojson", "CH8.geojson",
	"CH25.geojson", "CH26.geojson", "CH27.geojson", "CH28.geojson", "CH29.geojson", "CH30.geojson", "CH31.geojson", "CH32.geojson", "CH33.geojson", "CH34.geojson",
	"CH41.geojson", "CH42.geojson", "CH43.geojson", "CH44.geojson", "CH45.geojson", "CH46.geojson", "CH47.geojson", "CH48.geojson", "CH49.geojson",
	"CH60.geojson", "CH61.geojson", "CH62.geojson", "CH63.geojson", "CH64.geojson", "CH65.geojson", "CH66.geojson", "CH70.geojson", "CH88.geojson", "CH99.geojson",
	"L1.geojson", "L2.geojson", "L3.geojson", "L4.geojson", "L5.geojson", "L6.geojson", "L7.geojson", "L8.geojson", "L9.geojson",
	"L10.geojson", "L11.geojson", "L12.geojson", "L13.geojson", "L14.geojson", "L15.geojson", "L16.geojson", "L17.geojson", "L18.geojson", "L19.geojson",
	"L20.geojson", "L21.geojson", "L22.geojson", "L23.geojson", "L24.geojson", "L25.geojson", "L26.geojson", "L27.geojson", "L28.geojson", "L29.geojson",
	"L30.geojson", "L31.geojson", "L32.geojson", "L33.geojson", "L34.geojson", "L35.geojson", "L36.geojson", "L37.geojson", "L38.geojson", "L39.geojson", "L40.geojson",
	"L67.geojson", "L68.geojson", "L69.geojson", "L70.geojson", "L71.geojson", "L72.geojson", "L74.geojson", "L75.geojson", "L80.geojson",
}

// District：带区划代码的多边形要素
type District struct {
	Code       string
	Geometry   orb.Geometry
	Properties geojson.Properties
	Resource   string
}

// Catalog：有序要素列表 + 代码索引
// 约束：不强制全局唯一；同一代码的多个要素在选择时一并命中
type Catalog struct {
	districts []District
	byCode    map[string][]int
	index     *rtreego.Rtree
}

// bounded：R 树条目，记录要素在目录中的下标
type bounded struct {
	i    int
	rect rtreego.Rect
}

func (b bounded) Bounds() rtreego.Rect { return b.rect }

// queryTol：点查询的外包框半宽（度），让恰好落在外包框边上的点也能命中
const queryTol = 1e-9

// New：由已规范化的要素构建目录
func New(ds []District) *Catalog {
	c := &Catalog{districts: ds, byCode: make(map[string][]int, len(ds))}
	for i, d := range ds {
		if prev, ok := c.byCode[d.Code]; ok && ds[prev[0]].Resource != d.Resource {
			logger.L().Debug("catalog_duplicate_code", "code", d.Code, "resource", d.Resource, "first", ds[prev[0]].Resource)
		}
		c.byCode[d.Code] = append(c.byCode[d.Code], i)
	}
	c.index = buildIndex(ds)
	return c
}

func buildIndex(ds []District) *rtreego.Rtree {
	var items []rtreego.Spatial
	for i, d := range ds {
		if d.Geometry == nil {
			continue
		}
		b := d.Geometry.Bound()
		r, err := rtreego.NewRectFromPoints(rtreego.Point{b.Min.Lon(), b.Min.Lat()}, rtreego.Point{b.Max.Lon(), b.Max.Lat()})
		if err != nil {
			logger.L().Debug("catalog_index_skip", "code", d.Code, "err", err)
			continue
		}
		items = append(items, bounded{i: i, rect: r})
	}
	return rtreego.NewTree(2, 25, 50, items...)
}

// Load：并行读取全部资源并规范化
// 约束：单个资源失败静默剔除，不影响其他资源；全部结束后返回；结果顺序 = 清单顺序，再按文件内要素顺序
func Load(ctx context.Context, src Source, names []string) *Catalog {
	t0 := time.Now()
	l := logger.L()
	parts := make([][]District, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			b, err := src.Fetch(ctx, name)
			if err != nil {
				metrics.CatalogFetchTotal.WithLabelValues("missing").Inc()
				l.Debug("catalog_fetch_error", "name", name, "err", err)
				return
			}
			ds, err := Normalize(name, b)
			if err != nil {
				metrics.CatalogFetchTotal.WithLabelValues("invalid").Inc()
				l.Debug("catalog_parse_error", "name", name, "err", err)
				return
			}
			metrics.CatalogFetchTotal.WithLabelValues("ok").Inc()
			parts[i] = ds
		}(i, name)
	}
	wg.Wait()
	var all []District
	loaded := 0
	for _, p := range parts {
		if p != nil {
			loaded++
		}
		all = append(all, p...)
	}
	c := New(all)
	metrics.CatalogDistricts.Set(float64(len(all)))
	metrics.CatalogLoadDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	l.Info("catalog_load_ok", "resources", len(names), "loaded", loaded, "features", len(all))
	return c
}

// CodeFromFile：资源文件名去掉 .geojson 后缀并转大写
func CodeFromFile(name string) string {
	base := name
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if strings.HasSuffix(strings.ToLower(base), ".geojson") {
		base = base[:len(base)-len(".geojson")]
	}
	return strings.ToUpper(base)
}

// Normalize：FeatureCollection / Feature / 裸几何 三种形态统一为 District 列表
// 约束：要素自带非空 code 属性（数字也接受）时优先，否则用文件名推导的代码
func Normalize(name string, data []byte) ([]District, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	fallback := CodeFromFile(name)
	switch head.Type {
	case "":
		return nil, errors.New("missing geojson type")
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		out := make([]District, 0, len(fc.Features))
		for _, f := range fc.Features {
			out = append(out, fromFeature(name, fallback, f))
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return []District{fromFeature(name, fallback, f)}, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	return []District{{
		Code:       fallback,
		Geometry:   g.Geometry(),
		Properties: geojson.Properties{"code": fallback},
		Resource:   name,
	}}, nil
}

func fromFeature(name, fallback string, f *geojson.Feature) District {
	props := geojson.Properties{}
	for k, v := range f.Properties {
		props[k] = v
	}
	code := ""
	switch v := props["code"].(type) {
	case string:
		code = v
	case float64, bool:
		code = fmt.Sprint(v)
	}
	if code == "" {
		code = fallback
	}
	props["code"] = code
	return District{Code: code, Geometry: f.Geometry, Properties: props, Resource: name}
}

func (c *Catalog) Len() int { return len(c.districts) }

// Districts：全部要素（只读，调用方不得修改）
func (c *Catalog) Districts() []District { return c.districts }

func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Codes：去重后的代码，按首次出现顺序
func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.byCode))
	seen := make(map[string]bool, len(c.byCode))
	for _, d := range c.districts {
		if !seen[d.Code] {
			seen[d.Code] = true
			out = append(out, d.Code)
		}
	}
	return out
}

// Select：代码属于 codes 的全部要素，保持目录顺序
func (c *Catalog) Select(codes []string) []District {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	var out []District
	for _, d := range c.districts {
		if _, ok := set[d.Code]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Lookup：包含该点（经度, 纬度）的区划代码，按目录顺序（最后一个即最上层）
// R 树按外包框筛选候选，再逐个做多边形判定
func (c *Catalog) Lookup(p orb.Point) []string {
	hits := c.index.SearchIntersect(rtreego.Point{p.Lon(), p.Lat()}.ToRect(queryTol))
	idx := make([]int, 0, len(hits))
	for _, h := range hits {
		idx = append(idx, h.(bounded).i)
	}
	sort.Ints(idx)
	var out []string
	for _, i := range idx {
		if d := c.districts[i]; geometry.Contains(d.Geometry, p) {
			out = append(out, d.Code)
		}
	}
	return out
}

// FeatureCollection：供前端渲染的目录 GeoJSON，selected 中的代码带 selected=true
func (c *Catalog) FeatureCollection(selected []string) *geojson.FeatureCollection {
	sel := make(map[string]bool, len(selected))
	for _, s := range selected {
		sel[s] = true
	}
	fc := geojson.NewFeatureCollection()
	for _, d := range c.districts {
		if d.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(d.Geometry)
		for k, v := range d.Properties {
			f.Properties[k] = v
		}
		f.Properties["selected"] = sel[d.Code]
		fc.Append(f)
	}
	return fc
}
