// 包 coverage：由商户的选中区划与半径推导覆盖区（coverage mask）
package coverage

import (
	"encoding/json"

	"coverage-grid/internal/geometry"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Mask：覆盖区结果
// 三种终态：无（零值）、合并后的单个（多）多边形、合并失败时的未合并碎片集合
type Mask struct {
	union  geometry.Shape
	pieces []orb.Geometry
}

func (m Mask) Present() bool { return m.union.Present() || len(m.pieces) > 0 }

// Unioned：是否为合并成功的结果
func (m Mask) Unioned() bool { return m.union.Present() }

// Geometry：合并结果；回退时为碎片集合；无结果为 nil
func (m Mask) Geometry() orb.Geometry {
	if g, ok := m.union.Get(); ok {
		return g
	}
	if len(m.pieces) > 0 {
		return orb.Collection(m.pieces)
	}
	return nil
}

// Pieces：回退状态下的碎片
func (m Mask) Pieces() []orb.Geometry { return m.pieces }

// Area：平方米
func (m Mask) Area() float64 { return geometry.Area(m.Geometry()) }

func (m Mask) Contains(p orb.Point) bool {
	g := m.Geometry()
	return g != nil && geometry.Contains(g, p)
}

// GeoJSON：合并结果为 Feature，碎片为 FeatureCollection，无结果为 nil
func (m Mask) GeoJSON() any {
	if g, ok := m.union.Get(); ok {
		return geojson.NewFeature(g)
	}
	if len(m.pieces) > 0 {
		fc := geojson.NewFeatureCollection()
		for _, p := range m.pieces {
			fc.Append(geojson.NewFeature(p))
		}
		return fc
	}
	return nil
}

func (m Mask) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.GeoJSON())
}
