package query

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locations.yaml
var locationsYAML []byte

// Place is one gazetteer entry.
type Place struct {
	Name   string  `yaml:"name" json:"name"`
	Region string  `yaml:"region" json:"region"`
	Kind   string  `yaml:"kind" json:"kind"`
	Lat    float64 `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lng    float64 `yaml:"lng,omitempty" json:"lng,omitempty"`
}

// Formatted renders "Name, Region, Jamaica".
func (p Place) Formatted() string {
	return fmt.Sprintf("%s, %s, Jamaica", p.Name, p.Region)
}

// Gazetteer maps place names to their administrative region.
type Gazetteer struct {
	Regions []string               `yaml:"regions"`
	Centers map[string]Coordinates `yaml:"centers"`
	Places  []Place                `yaml:"places"`

	byName   map[string]Place
	byRegion map[string]string
}

var (
	defaultGazetteer     *Gazetteer
	defaultGazetteerOnce sync.Once
)

// DefaultGazetteer returns the embedded gazetteer. It panics if the embedded
// file is malformed, which is a build defect.
func DefaultGazetteer() *Gazetteer {
	defaultGazetteerOnce.Do(func() {
		g, err := ParseGazetteer(locationsYAML)
		if err != nil {
			panic(fmt.Sprintf("query: embedded locations.yaml: %v", err))
		}
		defaultGazetteer = g
	})
	return defaultGazetteer
}

// ParseGazetteer decodes a YAML gazetteer.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	g.byName = make(map[string]Place, len(g.Places))
	for _, p := range g.Places {
		g.byName[strings.ToLower(p.Name)] = p
	}
	g.byRegion = make(map[string]string, len(g.Regions))
	for _, r := range g.Regions {
		g.byRegion[strings.ToLower(r)] = r
	}
	return &g, nil
}

// Lookup finds a place by exact name, ignoring case.
func (g *Gazetteer) Lookup(name string) (Place, bool) {
	p, ok := g.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Region resolves a region name to its canonical spelling.
func (g *Gazetteer) Region(name string) (string, bool) {
	r, ok := g.byRegion[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// Suggest returns places whose name or region contains q, names first.
// Queries shorter than two characters return nothing.
func (g *Gazetteer) Suggest(q string, limit int) []Place {
	q = strings.ToLower(strings.TrimSpace(q))
	if len([]rune(q)) < 2 {
		return nil
	}
	var byName, byRegion []Place
	for _, p := range g.Places {
		switch {
		case strings.Contains(strings.ToLower(p.Name), q):
			byName = append(byName, p)
		case strings.Contains(strings.ToLower(p.Region), q):
			byRegion = append(byRegion, p)
		}
	}
	sort.SliceStable(byName, func(i, j int) bool {
		return strings.HasPrefix(strings.ToLower(byName[i].Name), q) &&
			!strings.HasPrefix(strings.ToLower(byName[j].Name), q)
	})
	out := append(byName, byRegion...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
