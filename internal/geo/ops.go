package geo

import "math"

// epsDeg is the tolerance, in degrees, for treating a point as lying on a
// boundary. Roughly a tenth of a millimeter at the equator.
const epsDeg = 1e-9

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Contains reports whether the point is inside the geometry, counting the
// boundary as inside.
func (g *Geometry) Contains(p Point) bool {
	if g == nil {
		return false
	}
	if g.Point != nil {
		return math.Abs(g.Point.Lat-p.Lat) <= epsDeg && math.Abs(g.Point.Lng-p.Lng) <= epsDeg
	}
	if g.onBoundary(p) {
		return true
	}
	for _, poly := range g.Polygons {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

// containsStrict reports whether the point is inside the geometry's interior,
// excluding the boundary.
func (g *Geometry) containsStrict(p Point) bool {
	if g == nil || g.Point != nil {
		return false
	}
	if g.onBoundary(p) {
		return false
	}
	for _, poly := range g.Polygons {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

// polygonContains runs the even-odd test against the outer ring, then
// subtracts the holes.
func polygonContains(poly Polygon, p Point) bool {
	if len(poly) == 0 || !ringContains(poly[0], p) {
		return false
	}
	for _, hole := range poly[1:] {
		if ringContains(hole, p) {
			return false
		}
	}
	return true
}

// ringContains is the even-odd ray casting test.
func ringContains(ring Ring, p Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		if ((yi > p.Lat) != (yj > p.Lat)) &&
			p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi+1e-12)+xi {
			inside = !inside
		}
	}
	return inside
}

// onBoundary reports whether the point lies on any edge of the geometry.
func (g *Geometry) onBoundary(p Point) bool {
	if g == nil || g.Point != nil {
		return false
	}
	found := false
	g.eachEdge(func(a, b Point) bool {
		if pointOnSegment(p, a, b) {
			found = true
			return false
		}
		return true
	})
	return found
}

// eachEdge visits every edge of every ring. The callback returns false to
// stop early.
func (g *Geometry) eachEdge(fn func(a, b Point) bool) {
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			n := len(ring)
			for i := range n {
				if !fn(ring[i], ring[(i+1)%n]) {
					return
				}
			}
		}
	}
}

// eachVertex visits every vertex of every ring. The callback returns false
// to stop early.
func (g *Geometry) eachVertex(fn func(p Point) bool) {
	if g.Point != nil {
		fn(*g.Point)
		return
	}
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			for _, p := range ring {
				if !fn(p) {
					return
				}
			}
		}
	}
}

// pointOnSegment reports whether p lies on the segment a-b, within tolerance.
func pointOnSegment(p, a, b Point) bool {
	cross := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lng-a.Lng)
	if math.Abs(cross) > epsDeg {
		return false
	}
	if p.Lng < math.Min(a.Lng, b.Lng)-epsDeg || p.Lng > math.Max(a.Lng, b.Lng)+epsDeg {
		return false
	}
	if p.Lat < math.Min(a.Lat, b.Lat)-epsDeg || p.Lat > math.Max(a.Lat, b.Lat)+epsDeg {
		return false
	}
	return true
}

// orientation returns >0 when the triple (a, b, c) turns counterclockwise,
// <0 clockwise, 0 when collinear (within tolerance).
func orientation(a, b, c Point) int {
	v := (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
	if v > epsDeg {
		return 1
	}
	if v < -epsDeg {
		return -1
	}
	return 0
}

// segmentsProperlyCross reports whether segments a-b and c-d cross at a
// single interior point of both. Touching at an endpoint or running along a
// shared edge does not count.
func segmentsProperlyCross(a, b, c, d Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)
	return o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 && o1 != o2 && o3 != o4
}

// OverlapsNotCountingBorder reports whether two geometries share interior
// points. Two places that only share a border do not overlap in this sense:
// Connecticut has no points inside New York even though the states touch.
func OverlapsNotCountingBorder(a, b *Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Point != nil {
		return b.containsStrict(*a.Point)
	}
	if b.Point != nil {
		return a.containsStrict(*b.Point)
	}

	overlap := false
	a.eachVertex(func(p Point) bool {
		if b.containsStrict(p) {
			overlap = true
			return false
		}
		return true
	})
	if overlap {
		return true
	}
	b.eachVertex(func(p Point) bool {
		if a.containsStrict(p) {
			overlap = true
			return false
		}
		return true
	})
	if overlap {
		return true
	}

	a.eachEdge(func(a1, a2 Point) bool {
		b.eachEdge(func(b1, b2 Point) bool {
			if segmentsProperlyCross(a1, a2, b1, b2) {
				overlap = true
				return false
			}
			return true
		})
		return !overlap
	})
	return overlap
}

// Intersects reports whether two geometries share any point at all,
// borders included.
func Intersects(a, b *Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Point != nil {
		return b.Contains(*a.Point)
	}
	if b.Point != nil {
		return a.Contains(*b.Point)
	}
	if OverlapsNotCountingBorder(a, b) {
		return true
	}

	// Border contact: a vertex of one geometry lying on the other's boundary.
	touching := false
	a.eachVertex(func(p Point) bool {
		if b.onBoundary(p) {
			touching = true
			return false
		}
		return true
	})
	if touching {
		return true
	}
	b.eachVertex(func(p Point) bool {
		if a.onBoundary(p) {
			touching = true
			return false
		}
		return true
	})
	return touching
}

// DistanceKm returns the minimum great-circle distance from the point to the
// geometry, in kilometers. A point inside (or on) the geometry is at
// distance zero.
func (g *Geometry) DistanceKm(p Point) float64 {
	if g == nil {
		return 0
	}
	if g.Point != nil {
		return HaversineKm(p, *g.Point)
	}
	if g.Contains(p) {
		return 0
	}
	minKm := math.Inf(1)
	g.eachEdge(func(a, b Point) bool {
		if d := pointToSegmentKm(p, a, b); d < minKm {
			minKm = d
		}
		return true
	})
	if math.IsInf(minKm, 1) {
		return 0
	}
	return minKm
}

// pointToSegmentKm approximates the distance from p to segment a-b using a
// local equirectangular projection centered on p. Accurate to well under a
// percent for the region-scale shapes the registry stores.
func pointToSegmentKm(p, a, b Point) float64 {
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	ax := (a.Lng - p.Lng) * cosLat
	ay := a.Lat - p.Lat
	bx := (b.Lng - p.Lng) * cosLat
	by := b.Lat - p.Lat

	dx := bx - ax
	dy := by - ay
	t := 0.0
	if l2 := dx*dx + dy*dy; l2 > 0 {
		t = math.Max(0, math.Min(1, -(ax*dx+ay*dy)/l2))
	}
	cx := ax + t*dx
	cy := ay + t*dy

	const kmPerDeg = EarthRadiusKm * math.Pi / 180
	return math.Hypot(cx, cy) * kmPerDeg
}

// AreaKm2 returns the geometry's surface area in square kilometers, holes
// subtracted. Point geometries have zero area.
func (g *Geometry) AreaKm2() float64 {
	if g == nil || g.Point != nil {
		return 0
	}
	total := 0.0
	for _, poly := range g.Polygons {
		if len(poly) == 0 {
			continue
		}
		area := ringAreaKm2(poly[0])
		for _, hole := range poly[1:] {
			area -= ringAreaKm2(hole)
		}
		if area > 0 {
			total += area
		}
	}
	return total
}

// ringAreaKm2 computes the spherical excess area of a ring.
func ringAreaKm2(ring Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := range n {
		p1 := ring[i]
		p2 := ring[(i+1)%n]
		l1 := p1.Lng * math.Pi / 180
		l2 := p2.Lng * math.Pi / 180
		f1 := p1.Lat * math.Pi / 180
		f2 := p2.Lat * math.Pi / 180
		sum += (l2 - l1) * (2 + math.Sin(f1) + math.Sin(f2))
	}
	return math.Abs(sum) * EarthRadiusKm * EarthRadiusKm / 2
}
