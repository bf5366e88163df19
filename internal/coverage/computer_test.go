package coverage

import (
	"encoding/json"
	"math"
	"testing"

	"coverage-grid/internal/catalog"
	"coverage-grid/internal/geometry"
	"coverage-grid/internal/merchant"

	"github.com/paulmach/orb"
)

func rect(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

// 测试目录：BIG 完全包含圆盘；WEST/EAST 在 -3.02 经线处相邻，各覆盖圆盘一半；FAR 远离圆盘
func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.District{
		{Code: "BIG", Geometry: rect(-3.4, 53.1, -2.6, 53.7)},
		{Code: "WEST", Geometry: rect(-3.4, 53.1, -3.02, 53.7)},
		{Code: "EAST", Geometry: rect(-3.02, 53.1, -2.6, 53.7)},
		{Code: "FAR", Geometry: rect(-1.0, 51.0, -0.9, 51.1)},
	})
}

func merchantWith(radius float64, codes ...string) merchant.Merchant {
	return merchant.Merchant{
		ID:          "m",
		Name:        "M",
		Center:      merchant.LatLng{53.40, -3.02},
		RadiusMiles: radius,
		Codes:       codes,
	}
}

func near(got, want, tol float64) bool { return math.Abs(got-want) <= tol*want }

func TestEmptyCodesHaveNoMask(t *testing.T) {
	c := NewComputer(testCatalog())
	for _, r := range []float64{0, 2, 15} {
		if c.Compute(merchantWith(r)).Present() {
			t.Fatalf("radius %v: mask present without codes", r)
		}
	}
}

func TestUnknownOrDisjointCodesHaveNoMask(t *testing.T) {
	c := NewComputer(testCatalog())
	if c.Compute(merchantWith(2, "NOPE")).Present() {
		t.Fatal("unknown code produced a mask")
	}
	if c.Compute(merchantWith(2, "FAR")).Present() {
		t.Fatal("disjoint district produced a mask")
	}
}

func TestContainingDistrictMaskEqualsDisk(t *testing.T) {
	c := NewComputer(testCatalog())
	m := merchantWith(2, "BIG")
	mask := c.Compute(m)
	if !mask.Unioned() {
		t.Fatal("want unioned mask")
	}
	disk := c.Buffer(m)
	if !near(mask.Area(), disk.Area(), 1e-6) {
		t.Fatalf("mask area %.1f, disk %.1f", mask.Area(), disk.Area())
	}
}

func TestAdjacentDistrictsMergeIntoOnePolygon(t *testing.T) {
	c := NewComputer(testCatalog())
	m := merchantWith(2, "WEST", "EAST")
	mask := c.Compute(m)
	g := mask.Geometry()
	if _, ok := g.(orb.Polygon); !ok {
		t.Fatalf("want single polygon, got %T", g)
	}
	if !near(mask.Area(), c.Buffer(m).Area(), 1e-3) {
		t.Fatalf("mask area %.1f, disk %.1f", mask.Area(), c.Buffer(m).Area())
	}
	for _, p := range []orb.Point{{-3.04, 53.40}, {-3.00, 53.40}, {-3.02, 53.41}} {
		if !mask.Contains(p) {
			t.Fatalf("mask missing %v", p)
		}
	}
	if mask.Contains(orb.Point{-3.2, 53.40}) {
		t.Fatal("mask extends beyond the radius")
	}
}

func TestSingleHalfIsClippedToDistrict(t *testing.T) {
	c := NewComputer(testCatalog())
	mask := c.Compute(merchantWith(2, "WEST"))
	if !mask.Contains(orb.Point{-3.04, 53.40}) || mask.Contains(orb.Point{-3.00, 53.40}) {
		t.Fatal("mask not clipped to the west district")
	}
}

func TestMaskGrowsWithRadius(t *testing.T) {
	c := NewComputer(testCatalog())
	radii := []float64{0, 0.5, 1, 2, 4, 8}
	var prev Mask
	for i, r := range radii {
		cur := c.Compute(merchantWith(r, "WEST", "EAST"))
		if i > 0 {
			if prev.Area() > cur.Area()*(1+1e-9) {
				t.Fatalf("area shrank from r=%v to r=%v", radii[i-1], r)
			}
			for dx := -0.2; dx <= 0.2; dx += 0.01 {
				for dy := -0.1; dy <= 0.1; dy += 0.01 {
					p := orb.Point{-3.02 + dx, 53.40 + dy}
					if prev.Contains(p) && !cur.Contains(p) {
						t.Fatalf("point %v in r=%v mask but not r=%v", p, radii[i-1], r)
					}
				}
			}
		}
		prev = cur
	}
}

func TestMaskJSON(t *testing.T) {
	b, err := json.Marshal(Mask{})
	if err != nil || string(b) != "null" {
		t.Fatalf("absent mask = %s, %v", b, err)
	}

	c := NewComputer(testCatalog())
	b, _ = json.Marshal(c.Compute(merchantWith(1, "BIG")))
	var f struct {
		Type     string `json:"type"`
		Geometry struct {
			Type string `json:"type"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatal(err)
	}
	if f.Type != "Feature" || f.Geometry.Type != "Polygon" {
		t.Fatalf("unioned mask json = %s", b)
	}

	pieces := Mask{pieces: []orb.Geometry{rect(0, 0, 1, 1), rect(5, 5, 6, 6)}}
	b, _ = json.Marshal(pieces)
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("fallback mask json = %s", b)
	}
	if !pieces.Present() || pieces.Unioned() {
		t.Fatal("fallback mask flags wrong")
	}
	if !near(pieces.Area(), geometry.Area(rect(0, 0, 1, 1))*2, 0.05) {
		t.Fatal("fallback area should sum the pieces")
	}
}
