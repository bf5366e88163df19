package coverage

import (
	"time"

	"coverage-grid/internal/catalog"
	"coverage-grid/internal/geometry"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"
	"coverage-grid/internal/metrics"
	"coverage-grid/internal/utils"

	"github.com/paulmach/orb"
)

// Computer：纯推导，只读目录与商户，不修改任何状态
type Computer struct {
	catalog *catalog.Catalog
	cache   *maskCache
}

// NewComputer：MASK_CACHE_SIZE 控制缓存条目数（默认 256，0 关闭）
func NewComputer(c *catalog.Catalog) *Computer {
	return NewComputerWithCache(c, utils.EnvInt("MASK_CACHE_SIZE", 256))
}

func NewComputerWithCache(c *catalog.Catalog, size int) *Computer {
	if c == nil {
		c = catalog.New(nil)
	}
	return &Computer{catalog: c, cache: newMaskCache(size)}
}

func (c *Computer) Catalog() *catalog.Catalog { return c.catalog }

// Buffer：商户的半径圆盘
func (c *Computer) Buffer(m merchant.Merchant) geometry.Shape {
	return geometry.Buffer(m.Center.Point(), m.RadiusMiles)
}

// Compute：圆盘 → 选中区划 → 逐个求交（丢弃空/失败） → 合并；合并失败时回退为碎片集合
func (c *Computer) Compute(m merchant.Merchant) Mask {
	key := cacheKey(m)
	if mask, ok := c.cache.get(key); ok {
		metrics.MaskRecomputeTotal.WithLabelValues("cached").Inc()
		return mask
	}
	t0 := time.Now()
	mask := c.compute(m)
	c.cache.set(key, mask)
	outcome := "none"
	switch {
	case mask.Unioned():
		outcome = "union"
	case mask.Present():
		outcome = "pieces"
	}
	metrics.MaskRecomputeTotal.WithLabelValues(outcome).Inc()
	metrics.MaskRecomputeDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	logger.L().Debug("mask_computed", "merchant", m.ID, "codes", len(m.Codes), "radius_mi", m.RadiusMiles, "outcome", outcome)
	return mask
}

func (c *Computer) compute(m merchant.Merchant) Mask {
	selected := c.catalog.Select(m.Codes)
	if len(selected) == 0 {
		return Mask{}
	}
	buf, ok := c.Buffer(m).Get()
	if !ok {
		return Mask{}
	}
	var pieces []orb.Geometry
	for _, d := range selected {
		if g, ok := geometry.Intersect(d.Geometry, buf).Get(); ok {
			pieces = append(pieces, g)
		}
	}
	if len(pieces) == 0 {
		return Mask{}
	}
	if u := geometry.Union(pieces); u.Present() {
		return Mask{union: u}
	}
	return Mask{pieces: pieces}
}
