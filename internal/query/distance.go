package query

import (
	"math"
	"sort"
	"strings"
)

const earthRadiusKm = 6371

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Known reports whether c was set. No Jamaican place sits at 0,0.
func (c Coordinates) Known() bool {
	return c.Lat != 0 || c.Lng != 0
}

// Distance is the great-circle distance between a and b in km, rounded to
// one decimal place.
func Distance(a, b Coordinates) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	d := earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(d*10) / 10
}

// WithinRadius reports whether to lies at most radiusKm from from.
// The boundary is inclusive.
func WithinRadius(from, to Coordinates, radiusKm float64) bool {
	return Distance(from, to) <= radiusKm
}

// Coordinates returns the position of a place or region name. Places without
// their own coordinates fall back to their region's centre.
func (g *Gazetteer) Coordinates(name string) (Coordinates, bool) {
	if p, ok := g.Lookup(name); ok {
		if c := (Coordinates{Lat: p.Lat, Lng: p.Lng}); c.Known() {
			return c, true
		}
		return g.center(p.Region)
	}
	return g.center(name)
}

func (g *Gazetteer) center(region string) (Coordinates, bool) {
	r, ok := g.Region(region)
	if !ok {
		return Coordinates{}, false
	}
	c, ok := g.Centers[r]
	return c, ok && c.Known()
}

// Locate resolves free-text locations such as "Montego Bay, St. James,
// Jamaica". The most specific part that the gazetteer knows wins.
func (g *Gazetteer) Locate(text string) (Coordinates, bool) {
	for _, part := range strings.Split(text, ",") {
		if c, ok := g.Coordinates(part); ok {
			return c, true
		}
	}
	return Coordinates{}, false
}

// Origin returns the coordinates a query's radius is measured from.
func (g *Gazetteer) Origin(loc Location) (Coordinates, bool) {
	if loc.Name != "" {
		if c, ok := g.Coordinates(loc.Name); ok {
			return c, true
		}
	}
	if loc.Region != "" {
		return g.center(loc.Region)
	}
	return Coordinates{}, false
}

// Placed is an item with its distance from an origin. Known is false when
// the item's location could not be resolved.
type Placed struct {
	Index      int
	DistanceKm float64
	Known      bool
}

// ByDistance measures each location text from origin and returns the
// indexes ordered nearest first. Unresolved locations keep their relative
// order at the end.
func (g *Gazetteer) ByDistance(origin Coordinates, locations []string) []Placed {
	out := make([]Placed, len(locations))
	for i, text := range locations {
		out[i] = Placed{Index: i}
		if c, ok := g.Locate(text); ok {
			out[i].DistanceKm = Distance(origin, c)
			out[i].Known = true
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Known != out[j].Known {
			return out[i].Known
		}
		return out[i].Known && out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}
