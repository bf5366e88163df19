// 包 geometry：覆盖区计算用到的三个几何操作（缓冲、求交、合并）
// 背景：所有操作都可能因自相交或数值退化失败；失败与“无结果”在调用方看来完全一致，
// 因此统一返回可选值 Shape，而不是 error。
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Shape：可选的多边形结果；零值表示“无”
type Shape struct {
	g orb.Geometry
}

// None：空结果
func None() Shape { return Shape{} }

// Some：包装几何；nil 视为 None
func Some(g orb.Geometry) Shape { return Shape{g: g} }

// Get：取出几何与是否存在
func (s Shape) Get() (orb.Geometry, bool) { return s.g, s.g != nil }

func (s Shape) Present() bool { return s.g != nil }

// Geometry：不存在时返回 nil
func (s Shape) Geometry() orb.Geometry { return s.g }

// Area：球面面积（平方米），不存在时为 0
func (s Shape) Area() float64 { return Area(s.g) }

// Area：面要素球面面积之和，外环减去洞，不依赖环方向
func Area(g orb.Geometry) float64 {
	var polys orb.MultiPolygon
	collect(g, &polys)
	total := 0.0
	for _, p := range polys {
		a := math.Abs(geo.Area(orb.Polygon{p[0]}))
		for _, hole := range p[1:] {
			a -= math.Abs(geo.Area(orb.Polygon{hole}))
		}
		total += a
	}
	return total
}

// Contains：点（经度, 纬度）是否落在多边形内（平面判定，含洞处理）
func Contains(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	case orb.Collection:
		for _, c := range v {
			if Contains(c, p) {
				return true
			}
		}
	}
	return false
}

// polygonal：只保留结果中的面要素；线、点（相切）与零面积碎片视为无交
func polygonal(g orb.Geometry) orb.Geometry {
	var polys orb.MultiPolygon
	collect(g, &polys)
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	}
	return polys
}

func collect(g orb.Geometry, out *orb.MultiPolygon) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 && len(v[0]) >= 4 && math.Abs(planar.Area(v)) > 0 {
			*out = append(*out, v)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			collect(p, out)
		}
	case orb.Collection:
		for _, c := range v {
			collect(c, out)
		}
	}
}
