// 包 merchant：商户配置模型与纯函数式修改（merge-patch）
package merchant

import (
	"encoding/json"
	"fmt"
	"os"

	"coverage-grid/internal/geometry"

	"github.com/paulmach/orb"
)

// LatLng：[纬度, 经度]，与前端地图组件一致
type LatLng [2]float64

func (c LatLng) Lat() float64 { return c[0] }
func (c LatLng) Lng() float64 { return c[1] }

// Point：转为 orb 的 (经度, 纬度)
func (c LatLng) Point() orb.Point { return orb.Point{c[1], c[0]} }

func FromPoint(p orb.Point) LatLng { return LatLng{p.Lat(), p.Lon()} }

// Merchant：单个商户的配送配置
// 约束：Codes 语义为集合，按加入顺序保存
type Merchant struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Center      LatLng   `json:"center"`
	RadiusMiles float64  `json:"radiusMiles"`
	Codes       []string `json:"codes"`
}

// Clone：深拷贝，避免调用方与存储共享 Codes 底层数组
func (m Merchant) Clone() Merchant {
	m.Codes = append([]string{}, m.Codes...)
	return m
}

func (m Merchant) HasCode(code string) bool {
	for _, c := range m.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// RadiusMeters：显示用半径（米）
func (m Merchant) RadiusMeters() float64 { return m.RadiusMiles * geometry.MetersPerMile }

// Patch：merge-patch，nil 字段表示不修改
type Patch struct {
	Name        *string
	Center      *LatLng
	RadiusMiles *float64
	Codes       *[]string
}

// Apply：返回合并后的新值，不修改入参
func (p Patch) Apply(m Merchant) Merchant {
	out := m.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Center != nil {
		out.Center = *p.Center
	}
	if p.RadiusMiles != nil {
		out.RadiusMiles = *p.RadiusMiles
	}
	if p.Codes != nil {
		out.Codes = append([]string{}, (*p.Codes)...)
	}
	return out
}

// ToggleCode：存在则移除，不存在则追加；返回新切片
func ToggleCode(codes []string, code string) []string {
	out := make([]string, 0, len(codes)+1)
	found := false
	for _, c := range codes {
		if c == code {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		out = append(out, code)
	}
	return out
}

// Defaults：内置默认商户列表
func Defaults() []Merchant {
	return []Merchant{
		{ID: "merchant_1", Name: "Liverpool City Centre", Center: LatLng{53.405, -2.985}, RadiusMiles: 3, Codes: []string{}},
		{ID: "merchant_2", Name: "Birkenhead & Wirral", Center: LatLng{53.393, -3.02}, RadiusMiles: 4, Codes: []string{}},
		{ID: "merchant_3", Name: "Chester", Center: LatLng{53.19, -2.89}, RadiusMiles: 5, Codes: []string{}},
	}
}

// LoadDefaults：从 JSON 文件读取默认列表（MERCHANTS_DEFAULTS_PATH）
// 约束：列表不能为空，id 不能重复
func LoadDefaults(path string) ([]Merchant, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ms []Merchant
	if err := json.Unmarshal(b, &ms); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%s: empty merchant list", path)
	}
	seen := make(map[string]bool, len(ms))
	for i := range ms {
		if seen[ms[i].ID] {
			return nil, fmt.Errorf("%s: duplicate merchant id %q", path, ms[i].ID)
		}
		seen[ms[i].ID] = true
		if ms[i].Codes == nil {
			ms[i].Codes = []string{}
		}
	}
	return ms, nil
}

// DefaultsFromEnv：MERCHANTS_DEFAULTS_PATH 指定时从文件读取，否则使用内置列表
func DefaultsFromEnv() ([]Merchant, error) {
	if p := os.Getenv("MERCHANTS_DEFAULTS_PATH"); p != "" {
		return LoadDefaults(p)
	}
	return Defaults(), nil
}
