// Package query turns raw search input into a canonical SearchQuery.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
)

// PageSize is the fixed number of postings per result page.
const PageSize = 20

// MaxRadiusKm caps the search radius around a location.
const MaxRadiusKm = 200

// SortKey orders a result list.
type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortDate      SortKey = "date"
	SortSalary    SortKey = "salary"
)

// ParseSortKey maps s to a SortKey, defaulting to relevance.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortDate:
		return SortDate
	case SortSalary:
		return SortSalary
	}
	return SortRelevance
}

// Experience levels accepted by the search filter.
var experienceLevels = map[string]bool{"ENTRY": true, "MID": true, "SENIOR": true, "EXECUTIVE": true}

// Company size buckets accepted by the search filter.
var companySizes = map[string]bool{"STARTUP": true, "SMALL": true, "MEDIUM": true, "LARGE": true, "ENTERPRISE": true}

// Posted-within windows in days.
var postedWithinDays = map[int]bool{1: true, 3: true, 7: true, 14: true, 30: true}

// RawInput is what a visitor typed or picked. Every field is optional.
type RawInput struct {
	Term            string   `json:"query"`
	Location        string   `json:"location"`
	Region          string   `json:"region"`
	RadiusKm        int      `json:"radiusKm"`
	JobTypes        []string `json:"jobTypes"`
	Skills          []string `json:"skills"`
	SalaryMin       *int     `json:"salaryMin"`
	SalaryMax       *int     `json:"salaryMax"`
	Remote          bool     `json:"remote"`
	Sort            string   `json:"sortBy"`
	Page            int      `json:"page"`
	ExperienceLevel string   `json:"experienceLevel"`
	Industry        string   `json:"industry"`
	CompanySize     string   `json:"companySize"`
	PostedWithin    int      `json:"postedWithin"`
}

// Location is the structured form of the location field.
type Location struct {
	Name     string `json:"name,omitempty"`
	Region   string `json:"region,omitempty"`
	RadiusKm int    `json:"radiusKm,omitempty"`
}

// SearchQuery is a normalized search request. The zero value with
// Page 1 means "browse all".
type SearchQuery struct {
	Term            string           `json:"query"`
	Location        Location         `json:"location"`
	JobTypes        []jobs.JobType   `json:"jobTypes"`
	Skills          []string         `json:"skills"`
	Salary          jobs.SalaryRange `json:"salary"`
	Remote          bool             `json:"remote"`
	Sort            SortKey          `json:"sortBy"`
	Page            int              `json:"page"`
	PageSize        int              `json:"limit"`
	ExperienceLevel string           `json:"experienceLevel,omitempty"`
	Industry        string           `json:"industry,omitempty"`
	CompanySize     string           `json:"companySize,omitempty"`
	PostedWithin    int              `json:"postedWithin,omitempty"`
}

// Build normalizes raw input using the embedded gazetteer. It never fails:
// anything it cannot interpret is dropped and means "match anything".
func Build(in RawInput) SearchQuery {
	return BuildWith(DefaultGazetteer(), in)
}

// BuildWith is Build with an explicit gazetteer.
func BuildWith(g *Gazetteer, in RawInput) SearchQuery {
	q := SearchQuery{
		Term:     engine.CollapseSpace(in.Term),
		Location: resolveLocation(g, in.Location, in.Region, in.RadiusKm),
		JobTypes: normalizeJobTypes(in.JobTypes),
		Skills:   NormalizeSkills(in.Skills),
		Salary:   normalizeSalary(in.SalaryMin, in.SalaryMax),
		Remote:   in.Remote,
		Sort:     ParseSortKey(in.Sort),
		Page:     max(in.Page, 1),
		PageSize: PageSize,
	}
	if lvl := strings.ToUpper(strings.TrimSpace(in.ExperienceLevel)); experienceLevels[lvl] {
		q.ExperienceLevel = lvl
	}
	if size := strings.ToUpper(strings.TrimSpace(in.CompanySize)); companySizes[size] {
		q.CompanySize = size
	}
	q.Industry = strings.ToLower(strings.TrimSpace(in.Industry))
	if postedWithinDays[in.PostedWithin] {
		q.PostedWithin = in.PostedWithin
	}
	return q
}

func resolveLocation(g *Gazetteer, name, region string, radius int) Location {
	loc := Location{
		Name:     engine.CollapseSpace(name),
		Region:   engine.CollapseSpace(region),
		RadiusKm: min(max(radius, 0), MaxRadiusKm),
	}
	// "Half Way Tree, St. Andrew, Jamaica" as produced by the location picker.
	if parts := strings.Split(loc.Name, ","); len(parts) > 1 {
		if r, ok := g.Region(parts[1]); ok {
			loc.Name = strings.TrimSpace(parts[0])
			if loc.Region == "" {
				loc.Region = r
			}
		}
	}
	if loc.Name == "" {
		loc.RadiusKm = 0
	}
	switch {
	case loc.Region != "":
		if r, ok := g.Region(loc.Region); ok {
			loc.Region = r
		}
	case loc.Name != "":
		if p, ok := g.Lookup(loc.Name); ok {
			loc.Name, loc.Region = p.Name, p.Region
		} else if r, ok := g.Region(loc.Name); ok {
			loc.Name, loc.Region = r, r
		}
	}
	return loc
}

func normalizeJobTypes(raw []string) []jobs.JobType {
	var out []jobs.JobType
	seen := make(map[jobs.JobType]bool)
	for _, s := range raw {
		t, ok := jobs.ParseJobType(s)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// NormalizeSkills trims skills and removes case-insensitive duplicates,
// keeping the first-seen spelling and order.
func NormalizeSkills(raw []string) []string {
	var out []string
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		s = engine.CollapseSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func normalizeSalary(minPtr, maxPtr *int) jobs.SalaryRange {
	r := jobs.SalaryRange{Min: 0, Max: jobs.MaxSalary}
	if minPtr != nil {
		r.Min = clampSalary(*minPtr)
	}
	if maxPtr != nil && *maxPtr > 0 {
		r.Max = clampSalary(*maxPtr)
	}
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

func clampSalary(v int) int {
	return min(max(v, 0), jobs.MaxSalary)
}

// IsBrowseAll reports whether q filters nothing.
func (q SearchQuery) IsBrowseAll() bool {
	return q.Term == "" && q.Location.Name == "" && q.Location.Region == "" &&
		len(q.JobTypes) == 0 && len(q.Skills) == 0 &&
		q.Salary.Min == 0 && (q.Salary.Max == 0 || q.Salary.Max == jobs.MaxSalary) && !q.Remote &&
		q.ExperienceLevel == "" && q.Industry == "" && q.CompanySize == "" && q.PostedWithin == 0
}

// LocationText is the flat location string for collaborators that only take
// text. A region-only query yields the region.
func (q SearchQuery) LocationText() string {
	if q.Location.Name != "" {
		return q.Location.Name
	}
	return q.Location.Region
}

// WithPage returns a copy of q for page n (minimum 1).
func (q SearchQuery) WithPage(n int) SearchQuery {
	q.Page = max(n, 1)
	return q
}

// WithSort returns a copy of q with sort key k, reset to page 1.
func (q SearchQuery) WithSort(k SortKey) SearchQuery {
	q.Sort = ParseSortKey(string(k))
	q.Page = 1
	return q
}

// SameFilters reports whether q and o differ only in page.
func (q SearchQuery) SameFilters(o SearchQuery) bool {
	return q.WithPage(1).Key() == o.WithPage(1).Key()
}

// Values encodes q as query-string parameters. Default-valued fields are
// omitted so the collaborator treats them as "match anything".
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("query", q.Term)
	set("location", q.Location.Name)
	set("parish", q.Location.Region)
	if q.Location.RadiusKm > 0 {
		v.Set("radius", strconv.Itoa(q.Location.RadiusKm))
	}
	if len(q.JobTypes) > 0 {
		types := make([]string, len(q.JobTypes))
		for i, t := range q.JobTypes {
			types[i] = string(t)
		}
		v.Set("jobType", strings.Join(types, ","))
	}
	if len(q.Skills) > 0 {
		v.Set("skills", strings.Join(q.Skills, ","))
	}
	if q.Salary.Min > 0 {
		v.Set("salaryMin", strconv.Itoa(q.Salary.Min))
	}
	if q.Salary.Max > 0 && q.Salary.Max < jobs.MaxSalary {
		v.Set("salaryMax", strconv.Itoa(q.Salary.Max))
	}
	if q.Remote {
		v.Set("remote", "true")
	}
	set("experienceLevel", q.ExperienceLevel)
	set("industry", q.Industry)
	set("companySize", q.CompanySize)
	if q.PostedWithin > 0 {
		v.Set("postedWithin", strconv.Itoa(q.PostedWithin))
	}
	v.Set("sortBy", string(q.sortOrDefault()))
	v.Set("page", strconv.Itoa(max(q.Page, 1)))
	v.Set("limit", strconv.Itoa(q.pageSizeOrDefault()))
	return v
}

// Key is a deterministic identity of q, suitable for caching.
func (q SearchQuery) Key() string {
	return q.Values().Encode()
}

func (q SearchQuery) sortOrDefault() SortKey {
	if q.Sort == "" {
		return SortRelevance
	}
	return q.Sort
}

func (q SearchQuery) pageSizeOrDefault() int {
	if q.PageSize <= 0 {
		return PageSize
	}
	return q.PageSize
}
