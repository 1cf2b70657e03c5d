package geo

import (
	"math"
	"testing"
)

// Two unit squares sharing an edge at lng=1.
var (
	westSquare = &Geometry{Polygons: []Polygon{{Ring{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0},
	}}}}
	eastSquare = &Geometry{Polygons: []Polygon{{Ring{
		{Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}, {Lat: 1, Lng: 2}, {Lat: 1, Lng: 1},
	}}}}
)

func TestHaversineKm(t *testing.T) {
	// New York City to Los Angeles is roughly 3936 km.
	nyc := Point{Lat: 40.7128, Lng: -74.0060}
	la := Point{Lat: 34.0522, Lng: -118.2437}
	got := HaversineKm(nyc, la)
	if got < 3900 || got > 3970 {
		t.Errorf("NYC-LA distance: got %f km", got)
	}

	if d := HaversineKm(nyc, nyc); d != 0 {
		t.Errorf("distance to self: got %f, want 0", d)
	}
}

func TestContains(t *testing.T) {
	if !westSquare.Contains(Point{Lat: 0.5, Lng: 0.5}) {
		t.Error("expected interior point to be contained")
	}
	if westSquare.Contains(Point{Lat: 0.5, Lng: 1.5}) {
		t.Error("did not expect exterior point to be contained")
	}
	// The shared border counts as inside for plain containment.
	if !westSquare.Contains(Point{Lat: 0.5, Lng: 1}) {
		t.Error("expected boundary point to be contained")
	}
}

func TestContainsWithHole(t *testing.T) {
	donut := &Geometry{Polygons: []Polygon{{
		Ring{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 4}, {Lat: 4, Lng: 4}, {Lat: 4, Lng: 0}},
		Ring{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 3}, {Lat: 3, Lng: 3}, {Lat: 3, Lng: 1}},
	}}}
	if donut.Contains(Point{Lat: 2, Lng: 2}) {
		t.Error("point inside the hole should not be contained")
	}
	if !donut.Contains(Point{Lat: 0.5, Lng: 2}) {
		t.Error("point between outer ring and hole should be contained")
	}
}

func TestOverlapsNotCountingBorder(t *testing.T) {
	// Adjacent squares share only a border: no overlap.
	if OverlapsNotCountingBorder(westSquare, eastSquare) {
		t.Error("squares sharing only a border must not overlap")
	}
	// But they do intersect.
	if !Intersects(westSquare, eastSquare) {
		t.Error("squares sharing a border should intersect")
	}

	// A square shifted half a unit genuinely overlaps.
	shifted := &Geometry{Polygons: []Polygon{{Ring{
		{Lat: 0, Lng: 0.5}, {Lat: 0, Lng: 1.5}, {Lat: 1, Lng: 1.5}, {Lat: 1, Lng: 0.5},
	}}}}
	if !OverlapsNotCountingBorder(westSquare, shifted) {
		t.Error("offset squares should overlap")
	}

	// Containment without any vertex of the outer square inside the inner.
	inner := &Geometry{Polygons: []Polygon{{Ring{
		{Lat: 0.25, Lng: 0.25}, {Lat: 0.25, Lng: 0.75}, {Lat: 0.75, Lng: 0.75}, {Lat: 0.75, Lng: 0.25},
	}}}}
	if !OverlapsNotCountingBorder(westSquare, inner) {
		t.Error("contained square should overlap its container")
	}

	// Disjoint squares neither overlap nor intersect.
	far := SquareAround(Point{Lat: 40, Lng: 40}, 1)
	if OverlapsNotCountingBorder(westSquare, far) || Intersects(westSquare, far) {
		t.Error("disjoint squares must not overlap or intersect")
	}
}

func TestOverlapsPointGeometry(t *testing.T) {
	inside := &Geometry{Point: &Point{Lat: 0.5, Lng: 0.5}}
	onBorder := &Geometry{Point: &Point{Lat: 0.5, Lng: 1}}

	if !OverlapsNotCountingBorder(inside, westSquare) {
		t.Error("interior point should overlap the square")
	}
	if OverlapsNotCountingBorder(onBorder, westSquare) {
		t.Error("border point should not overlap the square")
	}
	if !Intersects(onBorder, westSquare) {
		t.Error("border point should still intersect the square")
	}
}

func TestDistanceKm(t *testing.T) {
	// A point inside is at distance zero.
	if d := westSquare.DistanceKm(Point{Lat: 0.5, Lng: 0.5}); d != 0 {
		t.Errorf("interior distance: got %f, want 0", d)
	}

	// One degree of longitude at the equator is about 111.2 km.
	d := westSquare.DistanceKm(Point{Lat: 0.5, Lng: 2})
	if math.Abs(d-111.2) > 1.5 {
		t.Errorf("distance one degree east: got %f km, want ~111.2", d)
	}

	// Point geometry distance is plain haversine.
	pt := &Geometry{Point: &Point{Lat: 0, Lng: 0}}
	d = pt.DistanceKm(Point{Lat: 0, Lng: 1})
	if math.Abs(d-111.2) > 1.5 {
		t.Errorf("point-to-point distance: got %f km, want ~111.2", d)
	}

	// Nil geometry (everywhere) is distance zero from anywhere.
	var nowhere *Geometry
	if d := nowhere.DistanceKm(Point{Lat: 12, Lng: 34}); d != 0 {
		t.Errorf("nil geometry distance: got %f, want 0", d)
	}
}

func TestAreaKm2(t *testing.T) {
	// A 1x1 degree square at the equator is roughly 111.19^2 km^2.
	got := westSquare.AreaKm2()
	want := 111.195 * 111.195
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("square area: got %f, want ~%f", got, want)
	}

	// Holes subtract.
	donut := &Geometry{Polygons: []Polygon{{
		Ring{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 2}, {Lat: 2, Lng: 0}},
		Ring{{Lat: 0.5, Lng: 0.5}, {Lat: 0.5, Lng: 1.5}, {Lat: 1.5, Lng: 1.5}, {Lat: 1.5, Lng: 0.5}},
	}}}
	full := &Geometry{Polygons: []Polygon{{
		Ring{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 2}, {Lat: 2, Lng: 0}},
	}}}
	if donut.AreaKm2() >= full.AreaKm2() {
		t.Error("donut area should be smaller than the full square")
	}
}

func TestGeoJSONRoundTrip(t *testing.T) {
	for _, doc := range []string{
		`{"type":"Point","coordinates":[-73.95,40.65]}`,
		`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`,
		`{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,6],[5,5]]]]}`,
	} {
		g, err := ParseGeoJSON([]byte(doc))
		if err != nil {
			t.Fatalf("ParseGeoJSON(%s): %v", doc, err)
		}
		out, err := g.MarshalGeoJSON()
		if err != nil {
			t.Fatalf("MarshalGeoJSON: %v", err)
		}
		g2, err := ParseGeoJSON(out)
		if err != nil {
			t.Fatalf("re-parse: %v", err)
		}
		if (g.Point == nil) != (g2.Point == nil) || len(g.Polygons) != len(g2.Polygons) {
			t.Errorf("round trip changed shape for %s", doc)
		}
	}

	if _, err := ParseGeoJSON([]byte(`{"type":"LineString","coordinates":[]}`)); err == nil {
		t.Error("expected error for unsupported geometry type")
	}
}
