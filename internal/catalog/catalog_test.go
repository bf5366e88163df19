package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

const square = `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`

var fixtures = map[string]string{
	"CH1.geojson": `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"a"},"geometry":` + square + `},
		{"type":"Feature","properties":{"code":"CH1X"},"geometry":` + square + `},
		{"type":"Feature","properties":{"code":""},"geometry":` + square + `}
	]}`,
	"l1.geojson":     `{"type":"Feature","properties":null,"geometry":` + square + `}`,
	"L2.geojson":     square,
	"BAD.geojson":    `{not json`,
	"NOTYPE.geojson": `{"coordinates":[]}`,
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtures {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func codes(ds []District) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func TestCodeFromFile(t *testing.T) {
	tests := map[string]string{
		"ch1.geojson":        "CH1",
		"L10.GEOJSON":        "L10",
		"/static/l2.geojson": "L2",
		"CH99":               "CH99",
	}
	for in, want := range tests {
		if got := CodeFromFile(in); got != want {
			t.Errorf("CodeFromFile(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadNormalisesAndSkipsFailures(t *testing.T) {
	dir := writeFixtures(t)
	names := []string{"CH1.geojson", "MISSING.geojson", "l1.geojson", "BAD.geojson", "L2.geojson", "NOTYPE.geojson"}
	c := Load(context.Background(), DirSource{Dir: dir}, names)

	want := []string{"CH1", "CH1X", "CH1", "L1", "L2"}
	if got := codes(c.Districts()); !reflect.DeepEqual(got, want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
	d := c.Districts()[0]
	if d.Properties["name"] != "a" || d.Properties["code"] != "CH1" {
		t.Fatalf("properties not preserved: %v", d.Properties)
	}
	if _, ok := c.Districts()[4].Geometry.(orb.Polygon); !ok {
		t.Fatalf("bare geometry not wrapped: %T", c.Districts()[4].Geometry)
	}
	if got := c.Codes(); !reflect.DeepEqual(got, []string{"CH1", "CH1X", "L1", "L2"}) {
		t.Fatalf("Codes() = %v", got)
	}
}

func TestLoadEmptyWhenEverythingFails(t *testing.T) {
	c := Load(context.Background(), DirSource{Dir: t.TempDir()}, DefaultFiles)
	if c.Len() != 0 {
		t.Fatalf("want empty catalog, got %d", c.Len())
	}
}

func TestSelectIncludesDuplicates(t *testing.T) {
	dir := writeFixtures(t)
	c := Load(context.Background(), DirSource{Dir: dir}, []string{"CH1.geojson", "L2.geojson"})
	got := c.Select([]string{"CH1", "L2", "NOPE"})
	if want := []string{"CH1", "CH1", "L2"}; !reflect.DeepEqual(codes(got), want) {
		t.Fatalf("Select = %v, want %v", codes(got), want)
	}
	if c.Select(nil) != nil {
		t.Fatal("empty selection should be nil")
	}
}

func TestLookup(t *testing.T) {
	c := New([]District{
		{Code: "A", Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}},
		{Code: "B", Geometry: orb.Polygon{{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}}},
		{Code: "C"},
	})
	if got := c.Lookup(orb.Point{1.5, 0.5}); !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("Lookup = %v", got)
	}
	if got := c.Lookup(orb.Point{5, 5}); len(got) != 0 {
		t.Fatalf("Lookup outside = %v", got)
	}
}

func TestFeatureCollectionMarksSelection(t *testing.T) {
	c := New([]District{
		{Code: "A", Geometry: orb.Point{0, 0}},
		{Code: "B", Geometry: orb.Point{1, 1}},
	})
	fc := c.FeatureCollection([]string{"B"})
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	if fc.Features[0].Properties["selected"] != false || fc.Features[1].Properties["selected"] != true {
		t.Fatal("selected flags wrong")
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/static/L2.geojson" {
			_, _ = w.Write([]byte(square))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	src := HTTPSource{BaseURL: srv.URL + "/static/", Client: srv.Client()}
	c := Load(context.Background(), src, []string{"L1.geojson", "L2.geojson"})
	if got := codes(c.Districts()); !reflect.DeepEqual(got, []string{"L2"}) {
		t.Fatalf("codes = %v", got)
	}
}

func TestSourceAndFilesFromEnv(t *testing.T) {
	t.Setenv("DISTRICT_BASE_URL", "")
	t.Setenv("DISTRICT_DIR", "/srv/districts")
	if s, ok := SourceFromEnv().(DirSource); !ok || s.Dir != "/srv/districts" {
		t.Fatalf("source = %#v", SourceFromEnv())
	}
	t.Setenv("DISTRICT_BASE_URL", "https://cdn.example/districts")
	if _, ok := SourceFromEnv().(HTTPSource); !ok {
		t.Fatal("base url should select the http source")
	}

	t.Setenv("DISTRICT_FILES", "")
	if got := FilesFromEnv(); len(got) != len(DefaultFiles) {
		t.Fatalf("files = %d, want defaults", len(got))
	}
	t.Setenv("DISTRICT_FILES", " L1.geojson, ,CH41.geojson ")
	if got := FilesFromEnv(); !reflect.DeepEqual(got, []string{"L1.geojson", "CH41.geojson"}) {
		t.Fatalf("files = %v", got)
	}
}

func TestNormalizeKeepsNonStringCode(t *testing.T) {
	ds, err := Normalize("L1.geojson", []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"code":7},"geometry":`+square+`},
		{"type":"Feature","properties":{"code":null},"geometry":`+square+`}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := codes(ds); !reflect.DeepEqual(got, []string{"7", "L1"}) {
		t.Fatalf("codes = %v", got)
	}
	if ds[0].Properties["code"] != "7" {
		t.Fatalf("code property = %v", ds[0].Properties["code"])
	}
}

func TestLookupReturnsCatalogOrder(t *testing.T) {
	var ds []District
	// 大量互相重叠的要素，外包框索引返回顺序不定，结果必须按目录顺序
	for i := 0; i < 120; i++ {
		off := float64(i) * 0.001
		ds = append(ds, District{
			Code:     fmt.Sprintf("D%d", i),
			Geometry: orb.Polygon{{{off, off}, {10 + off, off}, {10 + off, 10 + off}, {off, 10 + off}, {off, off}}},
		})
	}
	ds = append(ds, District{Code: "EDGE", Geometry: orb.Polygon{{{20, 0}, {21, 0}, {21, 1}, {20, 1}, {20, 0}}}})
	c := New(ds)
	got := c.Lookup(orb.Point{5, 5})
	if len(got) != 120 {
		t.Fatalf("hits = %d", len(got))
	}
	for i, code := range got {
		if code != fmt.Sprintf("D%d", i) {
			t.Fatalf("hit %d = %s, not in catalog order", i, code)
		}
	}
	if got := c.Lookup(orb.Point{20, 0.5}); !reflect.DeepEqual(got, []string{"EDGE"}) {
		t.Fatalf("point on bound edge = %v", got)
	}
	if got := New(nil).Lookup(orb.Point{0, 0}); len(got) != 0 {
		t.Fatalf("empty catalog lookup = %v", got)
	}
}
