package geometry

import (
	"fmt"

	"coverage-grid/internal/logger"
	"coverage-grid/internal/metrics"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geo"
	sfgeom "github.com/peterstace/simplefeatures/geom"
)

const (
	MetersPerMile = 1609.344
	// BufferSteps：圆盘多边形顶点数
	BufferSteps = 64
	// 半径 0 为合法输入，按最小半径生成极小圆盘
	minRadiusMiles = 0.001
)

// Buffer：以 center（经度, 纬度）为圆心、radiusMiles 为半径的测地圆盘
// 约束：外环逆时针闭合；半径 ≤ 0 或 NaN 按最小半径处理
func Buffer(center orb.Point, radiusMiles float64) Shape {
	r := radiusMiles
	if !(r > minRadiusMiles) {
		r = minRadiusMiles
	}
	meters := r * MetersPerMile
	ring := make(orb.Ring, 0, BufferSteps+1)
	for i := 0; i < BufferSteps; i++ {
		bearing := 360 - 360*float64(i)/BufferSteps
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, meters))
	}
	ring = append(ring, ring[0])
	return Some(orb.Polygon{ring})
}

// Intersect：a 与 b 的面状交集；不相交、仅相切或计算失败均返回 None
func Intersect(a, b orb.Geometry) Shape {
	if a == nil || b == nil {
		return None()
	}
	if !a.Bound().Intersects(b.Bound()) {
		return None()
	}
	return guard("intersect", func() (orb.Geometry, error) {
		return overlay(a, b, intersectOp)
	})
}

// Union：自左向右两两合并
// 约束：某一步失败时保留累加结果（跳过失败的操作数）；空输入返回 None
func Union(gs []orb.Geometry) Shape {
	var acc orb.Geometry
	for _, g := range gs {
		if g == nil {
			continue
		}
		if acc == nil {
			acc = g
			continue
		}
		cur := acc
		if u, ok := guard("union", func() (orb.Geometry, error) {
			return overlay(cur, g, unionOp)
		}).Get(); ok {
			acc = u
		}
	}
	return Some(acc)
}

type overlayFunc func(a, b sfgeom.Geometry) (sfgeom.Geometry, error)

var (
	intersectOp overlayFunc = func(a, b sfgeom.Geometry) (sfgeom.Geometry, error) { return sfgeom.Intersection(a, b) }
	unionOp     overlayFunc = func(a, b sfgeom.Geometry) (sfgeom.Geometry, error) { return sfgeom.Union(a, b) }
)

func overlay(a, b orb.Geometry, op overlayFunc) (orb.Geometry, error) {
	ga, err := toSF(a)
	if err != nil {
		return nil, err
	}
	gb, err := toSF(b)
	if err != nil {
		return nil, err
	}
	out, err := op(ga, gb)
	if err != nil {
		return nil, err
	}
	if out.IsEmpty() {
		return nil, nil
	}
	return wkb.Unmarshal(out.AsBinary())
}

// toSF：经 WKB 在 orb 与 simplefeatures 之间转换
func toSF(g orb.Geometry) (sfgeom.Geometry, error) {
	b, err := wkb.Marshal(g)
	if err != nil {
		return sfgeom.Geometry{}, fmt.Errorf("wkb marshal: %w", err)
	}
	return sfgeom.UnmarshalWKB(b)
}

// guard：捕获错误与 panic，统一降级为 None 并计数
func guard(op string, fn func() (orb.Geometry, error)) (s Shape) {
	defer func() {
		if r := recover(); r != nil {
			fail(op, fmt.Errorf("panic: %v", r))
			s = None()
		}
	}()
	g, err := fn()
	if err != nil {
		fail(op, err)
		return None()
	}
	return Some(polygonal(g))
}

func fail(op string, err error) {
	metrics.GeometryFailuresTotal.WithLabelValues(op).Inc()
	logger.L().Debug("geometry_op_failed", "op", op, "err", err)
}
