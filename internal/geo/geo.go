// Package geo provides the spherical geometry operations the registry needs:
// great-circle distance, polygon area, containment, and the "overlaps not
// counting border" test that distinguishes a state touching a neighbor from
// actually containing territory in it.
//
// Coordinates are WGS84 latitude/longitude degrees. Geometries come from
// GeoJSON documents stored alongside place records.
package geo

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
)

// EarthRadiusKm is the mean Earth radius used for all spherical math.
const EarthRadiusKm = 6371.0088

// EarthAreaKm2 is the full surface area of Earth, used as the size of an
// "everywhere" service area.
const EarthAreaKm2 = 510_000_000

// Point is a position on the sphere.
type Point struct {
	Lat float64
	Lng float64
}

// Ring is a closed loop of points. The first and last point need not repeat;
// the closing edge is implied.
type Ring []Point

// Polygon is one outer ring followed by zero or more holes.
type Polygon []Ring

// Geometry is a parsed place geometry: either a single point or a
// multipolygon. A nil *Geometry means the place has no shape (EVERYWHERE).
type Geometry struct {
	Point    *Point
	Polygons []Polygon
}

// geoJSON is the subset of the GeoJSON object model the registry stores.
type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates jsontext.Value `json:"coordinates"`
}

// ParseGeoJSON decodes a GeoJSON Point, Polygon, or MultiPolygon document.
func ParseGeoJSON(data []byte) (*Geometry, error) {
	var doc geoJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	switch doc.Type {
	case "Point":
		var coords [2]float64
		if err := json.Unmarshal(doc.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("parse point coordinates: %w", err)
		}
		return &Geometry{Point: &Point{Lat: coords[1], Lng: coords[0]}}, nil
	case "Polygon":
		var coords [][][2]float64
		if err := json.Unmarshal(doc.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		return &Geometry{Polygons: []Polygon{ringsFromCoords(coords)}}, nil
	case "MultiPolygon":
		var coords [][][][2]float64
		if err := json.Unmarshal(doc.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("parse multipolygon coordinates: %w", err)
		}
		polys := make([]Polygon, 0, len(coords))
		for _, p := range coords {
			polys = append(polys, ringsFromCoords(p))
		}
		return &Geometry{Polygons: polys}, nil
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", doc.Type)
	}
}

// MarshalGeoJSON encodes the geometry back to a GeoJSON document.
func (g *Geometry) MarshalGeoJSON() ([]byte, error) {
	if g.Point != nil {
		return json.Marshal(map[string]any{
			"type":        "Point",
			"coordinates": [2]float64{g.Point.Lng, g.Point.Lat},
		})
	}
	coords := make([][][][2]float64, 0, len(g.Polygons))
	for _, poly := range g.Polygons {
		rings := make([][][2]float64, 0, len(poly))
		for _, ring := range poly {
			pts := make([][2]float64, 0, len(ring)+1)
			for _, p := range ring {
				pts = append(pts, [2]float64{p.Lng, p.Lat})
			}
			if len(ring) > 0 {
				// GeoJSON rings repeat the first position at the end.
				pts = append(pts, [2]float64{ring[0].Lng, ring[0].Lat})
			}
			rings = append(rings, pts)
		}
		coords = append(coords, rings)
	}
	if len(coords) == 1 {
		return json.Marshal(map[string]any{
			"type":        "Polygon",
			"coordinates": coords[0],
		})
	}
	return json.Marshal(map[string]any{
		"type":        "MultiPolygon",
		"coordinates": coords,
	})
}

// ringsFromCoords converts GeoJSON ring coordinates ([lng, lat] pairs) to
// Rings, dropping the repeated closing position if present.
func ringsFromCoords(coords [][][2]float64) Polygon {
	poly := make(Polygon, 0, len(coords))
	for _, raw := range coords {
		ring := make(Ring, 0, len(raw))
		for _, c := range raw {
			ring = append(ring, Point{Lat: c[1], Lng: c[0]})
		}
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		poly = append(poly, ring)
	}
	return poly
}

// SquareAround builds a square polygon centered on a point, with sides of
// 2*halfSideDeg degrees. Test helper for building simple service areas.
func SquareAround(center Point, halfSideDeg float64) *Geometry {
	ring := Ring{
		{Lat: center.Lat - halfSideDeg, Lng: center.Lng - halfSideDeg},
		{Lat: center.Lat - halfSideDeg, Lng: center.Lng + halfSideDeg},
		{Lat: center.Lat + halfSideDeg, Lng: center.Lng + halfSideDeg},
		{Lat: center.Lat + halfSideDeg, Lng: center.Lng - halfSideDeg},
	}
	return &Geometry{Polygons: []Polygon{{ring}}}
}
