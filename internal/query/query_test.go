package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobboard/internal/jobs"
)

func intp(v int) *int { return &v }

func TestBuildEmptyIsBrowseAll(t *testing.T) {
	q := Build(RawInput{})
	assert.True(t, q.IsBrowseAll())
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, PageSize, q.PageSize)
	assert.Equal(t, SortRelevance, q.Sort)
	assert.Equal(t, jobs.SalaryRange{Min: 0, Max: jobs.MaxSalary}, q.Salary)
	assert.True(t, SearchQuery{}.IsBrowseAll())
}

func TestBuildTerm(t *testing.T) {
	q := Build(RawInput{Term: "  truck   driver \t"})
	assert.Equal(t, "truck driver", q.Term)
	assert.False(t, q.IsBrowseAll())
}

func TestBuildSkills(t *testing.T) {
	q := Build(RawInput{Skills: []string{"Excel", " excel", "Customer  Service", "", "EXCEL", "customer service", "Sales"}})
	assert.Equal(t, []string{"Excel", "Customer Service", "Sales"}, q.Skills)
}

func TestBuildSalary(t *testing.T) {
	tests := []struct {
		name     string
		min, max *int
		want     jobs.SalaryRange
	}{
		{"missing", nil, nil, jobs.SalaryRange{Min: 0, Max: jobs.MaxSalary}},
		{"negative min", intp(-5), nil, jobs.SalaryRange{Min: 0, Max: jobs.MaxSalary}},
		{"over max", intp(10), intp(5_000_000), jobs.SalaryRange{Min: 10, Max: jobs.MaxSalary}},
		{"inverted", intp(90_000), intp(30_000), jobs.SalaryRange{Min: 30_000, Max: 90_000}},
		{"zero max means unbounded", intp(20_000), intp(0), jobs.SalaryRange{Min: 20_000, Max: jobs.MaxSalary}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Build(RawInput{SalaryMin: tt.min, SalaryMax: tt.max})
			assert.Equal(t, tt.want, q.Salary)
			assert.LessOrEqual(t, q.Salary.Min, q.Salary.Max)
		})
	}
}

func TestBuildJobTypes(t *testing.T) {
	q := Build(RawInput{JobTypes: []string{"full-time", "FULL_TIME", "gig", "Contract"}})
	assert.Equal(t, []jobs.JobType{jobs.FullTime, jobs.Contract}, q.JobTypes)
}

func TestBuildLocation(t *testing.T) {
	tests := []struct {
		name string
		in   RawInput
		want Location
	}{
		{"known place fills region", RawInput{Location: "half way tree"}, Location{Name: "Half Way Tree", Region: "St. Andrew"}},
		{"capital", RawInput{Location: "Kingston"}, Location{Name: "Kingston", Region: "Kingston"}},
		{"region only", RawInput{Location: "st. james"}, Location{Name: "St. James", Region: "St. James"}},
		{"formatted address", RawInput{Location: "Ocho Rios, St. Ann, Jamaica"}, Location{Name: "Ocho Rios", Region: "St. Ann"}},
		{"unknown kept as text", RawInput{Location: " Toronto "}, Location{Name: "Toronto"}},
		{"explicit region canonicalized", RawInput{Location: "Somewhere", Region: "st. thomas"}, Location{Name: "Somewhere", Region: "St. Thomas"}},
		{"radius clamped", RawInput{Location: "Kingston", RadiusKm: 900}, Location{Name: "Kingston", Region: "Kingston", RadiusKm: MaxRadiusKm}},
		{"negative radius", RawInput{Location: "Kingston", RadiusKm: -3}, Location{Name: "Kingston", Region: "Kingston"}},
		{"radius without place dropped", RawInput{RadiusKm: 20}, Location{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.in).Location)
		})
	}
}

func TestLocationText(t *testing.T) {
	assert.Equal(t, "Half Way Tree", Build(RawInput{Location: "half way tree"}).LocationText())
	assert.Equal(t, "St. Andrew", Build(RawInput{Region: "st. andrew"}).LocationText(), "region only")
	assert.Empty(t, Build(RawInput{}).LocationText())
}

func TestBuildExtraFilters(t *testing.T) {
	q := Build(RawInput{ExperienceLevel: "senior", CompanySize: "huge", Industry: " Construction ", PostedWithin: 7})
	assert.Equal(t, "SENIOR", q.ExperienceLevel)
	assert.Empty(t, q.CompanySize)
	assert.Equal(t, "construction", q.Industry)
	assert.Equal(t, 7, q.PostedWithin)

	q = Build(RawInput{PostedWithin: 5})
	assert.Zero(t, q.PostedWithin)
}

func TestValues(t *testing.T) {
	q := Build(RawInput{
		Term:      "Driver",
		Location:  "Kingston",
		JobTypes:  []string{"FULL_TIME", "PART_TIME"},
		Skills:    []string{"Driving", "Logistics"},
		SalaryMin: intp(50_000),
		Remote:    true,
		Sort:      "date",
		Page:      2,
	})
	v := q.Values()
	assert.Equal(t, "Driver", v.Get("query"))
	assert.Equal(t, "Kingston", v.Get("location"))
	assert.Equal(t, "Kingston", v.Get("parish"))
	assert.Equal(t, "FULL_TIME,PART_TIME", v.Get("jobType"))
	assert.Equal(t, "Driving,Logistics", v.Get("skills"))
	assert.Equal(t, "50000", v.Get("salaryMin"))
	assert.False(t, v.Has("salaryMax"))
	assert.Equal(t, "true", v.Get("remote"))
	assert.Equal(t, "date", v.Get("sortBy"))
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "20", v.Get("limit"))

	empty := Build(RawInput{}).Values()
	for _, k := range []string{"query", "location", "jobType", "skills", "salaryMin", "salaryMax", "remote"} {
		assert.False(t, empty.Has(k), k)
	}
}

func TestKeyAndDerivations(t *testing.T) {
	a := Build(RawInput{Term: "nurse", Skills: []string{"CPR"}})
	b := Build(RawInput{Term: " nurse ", Skills: []string{"cpr"}})
	assert.NotEqual(t, a.Key(), b.Key(), "skill casing is preserved in the request")
	assert.Equal(t, a.Key(), Build(RawInput{Term: "nurse", Skills: []string{"CPR", "cpr"}}).Key())

	p3 := a.WithPage(3)
	assert.Equal(t, 3, p3.Page)
	assert.Equal(t, 1, a.Page, "WithPage must not mutate the receiver")
	assert.True(t, a.SameFilters(p3))

	sorted := p3.WithSort(SortSalary)
	assert.Equal(t, 1, sorted.Page)
	assert.Equal(t, SortSalary, sorted.Sort)
	assert.False(t, a.SameFilters(sorted))

	assert.Equal(t, SortRelevance, a.WithSort("bogus").Sort)
}

func TestGazetteerSuggest(t *testing.T) {
	g := DefaultGazetteer()
	require.NotEmpty(t, g.Places)
	require.Len(t, g.Regions, 14)

	assert.Nil(t, g.Suggest("k", 10))

	got := g.Suggest("king", 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "Kingston", got[0].Name)
	assert.Equal(t, "Kingston, Kingston, Jamaica", got[0].Formatted())

	limited := g.Suggest("st.", 3)
	assert.Len(t, limited, 3)
}

func TestParseGazetteer(t *testing.T) {
	g, err := ParseGazetteer([]byte("regions: [North]\nplaces:\n  - name: Hilltop\n    region: North\n    kind: town\n"))
	require.NoError(t, err)
	q := BuildWith(g, RawInput{Location: "hilltop"})
	assert.Equal(t, Location{Name: "Hilltop", Region: "North"}, q.Location)

	_, err = ParseGazetteer([]byte("regions: [unterminated"))
	assert.Error(t, err)
}
