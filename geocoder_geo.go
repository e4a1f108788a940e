package geocoder

import (
	"math"

	"github.com/golang/geo/s2"
)

// Coordinate math. Planar feet are good enough at street scale: one
// degree of latitude is a fixed length, one degree of longitude shrinks
// with the cosine of the latitude.

const feetPerDegreeLat = 364566.9

func feetPerDegreeLon(lat float64) float64 {
	return feetPerDegreeLat * math.Cos(lat*math.Pi/180)
}

// coincident reports whether two points are the same place for
// result-classification purposes, within about a foot.
func coincident(lat1, lon1, lat2, lon2 float64) bool {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	const oneFootRad = 1.0 / (feetPerDegreeLat * 180 / math.Pi)
	return a.Distance(b).Radians() < oneFootRad
}

// code computes a candidate's lat/lon once. Failure leaves Geocoded
// false; the candidate is still reported with its match fields.
func (g *Geocoder) code(c *candidate) {
	if c.done {
		return
	}
	c.done = true

	switch c.kind {
	case candCentroid:
		c.res.Lat, c.res.Lon = c.centroid.Lat, c.centroid.Lon
		c.geoOK = true
	case candIntersection:
		c.geoOK = g.codeIntersection(c)
	default:
		c.geoOK = g.codeStreet(c)
	}
	c.res.Geocoded = c.geoOK
}

// codeStreet interpolates along the segment's polyline, pulls the point
// back from the endpoints, and offsets it perpendicular to the local
// direction toward the matched side of the street.
func (g *Geocoder) codeStreet(c *candidate) bool {
	pts, ok := g.q.CoordinatesForSegment(c.seg)
	if !ok || len(pts) == 0 {
		return false
	}
	if len(pts) == 1 {
		c.res.Lat, c.res.Lon = pts[0].Lat, pts[0].Lon
		return true
	}

	frac := 0.5
	if c.hasFrac {
		frac = math.Max(g.cfg.MinInterpolation, math.Min(g.cfg.MaxInterpolation, c.frac))
	}

	// Cumulative polyline length in feet.
	lengths := make([]float64, len(pts)-1)
	total := 0.0
	for i := 0; i < len(pts)-1; i++ {
		lengths[i] = distanceFeet(pts[i], pts[i+1])
		total += lengths[i]
	}
	if total == 0 {
		c.res.Lat, c.res.Lon = pts[0].Lat, pts[0].Lon
		return true
	}

	target := frac * total
	if off := g.cfg.EndpointOffsetFeet; off > 0 && 2*off < total {
		target = math.Max(off, math.Min(total-off, target))
	}

	lat, lon, dirLat, dirLon := walkPolyline(pts, lengths, target)

	if g.cfg.StreetOffsetFeet != 0 {
		lat, lon = offsetPerpendicular(lat, lon, dirLat, dirLon, g.cfg.StreetOffsetFeet, c.seg.RightSide)
	}
	c.res.Lat, c.res.Lon = lat, lon
	return true
}

// distanceFeet is the planar distance between two vertices.
func distanceFeet(a, b Coordinate) float64 {
	midLat := (a.Lat + b.Lat) / 2
	dy := (b.Lat - a.Lat) * feetPerDegreeLat
	dx := (b.Lon - a.Lon) * feetPerDegreeLon(midLat)
	return math.Hypot(dx, dy)
}

// walkPolyline locates the point target feet along the polyline,
// extrapolating beyond either end along the end piece's direction.
// It returns the point and the local direction in degrees per foot.
func walkPolyline(pts []Coordinate, lengths []float64, target float64) (lat, lon, dirLat, dirLon float64) {
	pieceDir := func(i int) (float64, float64) {
		if lengths[i] == 0 {
			return 0, 0
		}
		return (pts[i+1].Lat - pts[i].Lat) / lengths[i], (pts[i+1].Lon - pts[i].Lon) / lengths[i]
	}

	if target <= 0 {
		dLat, dLon := pieceDir(0)
		return pts[0].Lat + dLat*target, pts[0].Lon + dLon*target, dLat, dLon
	}
	walked := 0.0
	for i, l := range lengths {
		if walked+l >= target && l > 0 {
			dLat, dLon := pieceDir(i)
			along := target - walked
			return pts[i].Lat + dLat*along, pts[i].Lon + dLon*along, dLat, dLon
		}
		walked += l
	}
	last := len(lengths) - 1
	dLat, dLon := pieceDir(last)
	beyond := target - walked
	end := pts[len(pts)-1]
	return end.Lat + dLat*beyond, end.Lon + dLon*beyond, dLat, dLon
}

// offsetPerpendicular moves a point sideways from the direction of
// travel: right side of the street for rightSide, else left.
func offsetPerpendicular(lat, lon, dirLat, dirLon, feet float64, rightSide bool) (float64, float64) {
	fplon := feetPerDegreeLon(lat)
	// Direction in feet space.
	fy := dirLat * feetPerDegreeLat
	fx := dirLon * fplon
	n := math.Hypot(fx, fy)
	if n == 0 || fplon == 0 {
		return lat, lon
	}
	// Right-hand normal of (fx, fy) is (fy, -fx).
	nx, ny := fy/n, -fx/n
	if !rightSide {
		nx, ny = -nx, -ny
	}
	return lat + ny*feet/feetPerDegreeLat, lon + nx*feet/fplon
}

// codeIntersection reports the shared polyline endpoint of the two
// segments, by exact equality of the decoded points.
func (g *Geocoder) codeIntersection(c *candidate) bool {
	a, ok := g.q.CoordinatesForSegment(c.seg)
	if !ok || len(a) == 0 {
		return false
	}
	b, ok := g.q.CoordinatesForSegment(c.seg2)
	if !ok || len(b) == 0 {
		return false
	}
	ends := func(pts []Coordinate) []Coordinate {
		if len(pts) == 1 {
			return pts[:1]
		}
		return []Coordinate{pts[0], pts[len(pts)-1]}
	}
	for _, p := range ends(a) {
		for _, q := range ends(b) {
			if p == q {
				c.res.Lat, c.res.Lon = p.Lat, p.Lon
				return true
			}
		}
	}
	return false
}
