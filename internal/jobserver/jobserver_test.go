package jobserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

type fakeSearcher struct {
	last query.SearchQuery
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
	f.last = q
	if f.err != nil {
		return apiclient.SearchResponse{}, f.err
	}
	postings := []jobs.Posting{
		{
			ID: "1", Title: "Delivery Driver", Company: jobs.Company{Name: "Island Courier", Verified: true},
			Location: "Kingston, Jamaica", JobType: jobs.FullTime, Skills: []string{"Driving", "Customer Service"},
			Salary:          jobs.SalaryRange{Min: 900000, Max: 1200000},
			PostedAt:        time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC),
			DescriptionHTML: "<p>Deliver <b>parcels</b> across Kingston.</p>",
		},
		{
			ID: "2", Title: "Bus Driver", Company: jobs.Company{Name: "JUTC"},
			Location: "Kingston, Jamaica", Skills: []string{"Driving"},
			DescriptionHTML: "<p>Drive routes.</p>",
		},
	}
	return apiclient.SearchResponse{Jobs: postings, TotalCount: 7, HasMore: true}, nil
}

func newTools(s apiclient.Searcher) *tools {
	return &tools{searcher: s, places: query.DefaultGazetteer()}
}

func TestJobSearch(t *testing.T) {
	f := &fakeSearcher{}
	tl := newTools(f)

	_, out, err := tl.jobSearch(context.Background(), nil, JobSearchInput{
		Query:              "  driver ",
		Location:           "kingston",
		CandidateSkills:    []string{"driving"},
		RankByMatch:        true,
		IncludeDescription: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "driver", f.last.Term)
	assert.Equal(t, "driver", out.Query)
	assert.Equal(t, 7, out.TotalCount)
	assert.True(t, out.HasMore)
	require.Len(t, out.Jobs, 2)

	first := out.Jobs[0]
	assert.Equal(t, "2", first.ID, "ranked by match")
	require.NotNil(t, first.MatchPercentage)
	assert.Equal(t, 100, *first.MatchPercentage)

	second := out.Jobs[1]
	require.NotNil(t, second.MatchPercentage)
	assert.Equal(t, 50, *second.MatchPercentage)
	assert.Equal(t, []string{"Driving"}, second.MatchedSkills)
	assert.Equal(t, "2026-09-30", second.PostedAt)
	require.NotNil(t, second.Salary)
	assert.True(t, second.Verified)
	assert.Contains(t, second.Snippet, "Deliver parcels")
	assert.Contains(t, second.Description, "**parcels**")

	assert.Contains(t, out.Summary, "Found 7 jobs")
	assert.Contains(t, out.Summary, "Best skill match: 100%")
}

func TestJobSearchWithoutCandidateSkills(t *testing.T) {
	tl := newTools(&fakeSearcher{})
	_, out, err := tl.jobSearch(context.Background(), nil, JobSearchInput{})
	require.NoError(t, err)
	require.Len(t, out.Jobs, 2)
	assert.Equal(t, "1", out.Jobs[0].ID, "search order kept")
	for _, j := range out.Jobs {
		assert.Nil(t, j.MatchPercentage)
		assert.Empty(t, j.Description)
	}
	assert.Nil(t, out.Jobs[1].Salary)
	assert.Contains(t, out.Summary, `"all jobs"`)
}

func TestJobSearchError(t *testing.T) {
	tl := newTools(&fakeSearcher{err: engine.Transport(context.DeadlineExceeded)})
	_, _, err := tl.jobSearch(context.Background(), nil, JobSearchInput{Query: "nurse"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "job_search: "))
}

func TestSkillMatch(t *testing.T) {
	tl := newTools(nil)
	_, out, err := tl.skillMatch(context.Background(), nil, SkillMatchInput{
		JobSkills:       []string{"Go", "SQL", " go ", "Docker"},
		CandidateSkills: []string{"GO", "docker"},
	})
	require.NoError(t, err)
	assert.Equal(t, 67, out.MatchPercentage)
	assert.Equal(t, []string{"Go", "Docker"}, out.MatchedSkills)
	assert.Equal(t, []string{"SQL"}, out.MissingSkills)

	_, _, err = tl.skillMatch(context.Background(), nil, SkillMatchInput{CandidateSkills: []string{"Go"}})
	assert.Error(t, err)
}

func TestProfileCompleteness(t *testing.T) {
	tl := newTools(nil)
	_, out, err := tl.profileCompleteness(context.Background(), nil, ProfileCompletenessInput{
		Skills:  []string{"Driving"},
		Resumes: []string{"cv.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 40, out.Percentage)
	assert.False(t, out.CanApply)
	assert.Equal(t, []string{"phone", "education", "experience"}, out.Missing)
	assert.Contains(t, out.Summary, "add phone")

	_, out, err = tl.profileCompleteness(context.Background(), nil, ProfileCompletenessInput{
		Skills:      []string{"Driving"},
		Resumes:     []string{"cv.pdf"},
		PhoneNumber: "876-555-0100",
	})
	require.NoError(t, err)
	assert.Equal(t, 60, out.Percentage)
	assert.True(t, out.CanApply)
}

func TestLocationSuggest(t *testing.T) {
	tl := newTools(nil)
	_, out, err := tl.locationSuggest(context.Background(), nil, LocationSuggestInput{Query: "mont"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Suggestions)
	assert.Equal(t, "Montego Bay", out.Suggestions[0].Name)

	_, out, err = tl.locationSuggest(context.Background(), nil, LocationSuggestInput{Query: "zzzz"})
	require.NoError(t, err)
	assert.Empty(t, out.Suggestions)
}

type placesSearcher struct{}

func (placesSearcher) Search(context.Context, query.SearchQuery) (apiclient.SearchResponse, error) {
	return apiclient.SearchResponse{Jobs: []jobs.Posting{
		{ID: "mobay", Location: "Montego Bay, St. James, Jamaica"},
		{ID: "spanish-town", Location: "Spanish Town, St. Catherine, Jamaica"},
		{ID: "remote", Location: "Remote"},
		{ID: "kingston", Location: "Kingston, Jamaica"},
	}, TotalCount: 4}, nil
}

func jobIDs(out JobSearchOutput) []string {
	ids := make([]string, len(out.Jobs))
	for i, j := range out.Jobs {
		ids[i] = j.ID
	}
	return ids
}

func TestJobSearchRadiusAndNearby(t *testing.T) {
	tl := newTools(placesSearcher{})
	ctx := context.Background()

	_, out, err := tl.jobSearch(ctx, nil, JobSearchInput{Location: "Kingston", RadiusKm: 18, Nearby: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"kingston", "spanish-town", "remote"}, jobIDs(out))
	require.NotNil(t, out.Jobs[1].DistanceKm)
	assert.Equal(t, 17.3, *out.Jobs[1].DistanceKm)
	assert.Nil(t, out.Jobs[2].DistanceKm, "unresolved location kept without a distance")

	_, out, err = tl.jobSearch(ctx, nil, JobSearchInput{Location: "Kingston", RadiusKm: 17, Nearby: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"kingston", "remote"}, jobIDs(out), "17.3 km lies outside a 17 km radius")

	_, out, err = tl.jobSearch(ctx, nil, JobSearchInput{Location: "Kingston"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mobay", "spanish-town", "remote", "kingston"}, jobIDs(out), "search order without nearby")
	require.NotNil(t, out.Jobs[0].DistanceKm)
	assert.Equal(t, 127.8, *out.Jobs[0].DistanceKm)

	_, out, err = tl.jobSearch(ctx, nil, JobSearchInput{})
	require.NoError(t, err)
	for _, j := range out.Jobs {
		assert.Nil(t, j.DistanceKm, "no origin, no distance")
	}
}
