package jobserver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

func (t *tools) jobSearch(ctx context.Context, _ *mcp.CallToolRequest, input JobSearchInput) (*mcp.CallToolResult, JobSearchOutput, error) {
	q := query.BuildWith(t.places, query.RawInput{
		Term:            input.Query,
		Location:        input.Location,
		RadiusKm:        input.RadiusKm,
		JobTypes:        input.JobTypes,
		Skills:          input.Skills,
		SalaryMin:       input.SalaryMin,
		SalaryMax:       input.SalaryMax,
		Remote:          input.Remote,
		Sort:            input.SortBy,
		Page:            input.Page,
		ExperienceLevel: input.ExperienceLevel,
		PostedWithin:    input.PostedWithin,
	})

	var resp apiclient.SearchResponse
	err := engine.TrackOperation(ctx, "job_search", 5*time.Second, func(ctx context.Context) error {
		var err error
		resp, err = t.searcher.Search(ctx, q)
		return err
	})
	if err != nil {
		slog.Warn("job_search: search failed", slog.String("query", q.Term), slog.Any("error", err))
		return nil, JobSearchOutput{}, fmt.Errorf("job_search: %s", engine.UserMessage(err))
	}

	annotated := jobs.Annotate(resp.Jobs, query.NormalizeSkills(input.CandidateSkills))
	if input.RankByMatch {
		jobs.RankByMatch(annotated)
	}

	out := JobSearchOutput{
		Query:      q.Term,
		Location:   q.LocationText(),
		Page:       q.Page,
		TotalCount: resp.TotalCount,
		HasMore:    resp.HasMore,
		Jobs:       make([]JobResult, 0, len(annotated)),
	}
	for _, a := range annotated {
		out.Jobs = append(out.Jobs, toJobResult(a, input.IncludeDescription))
	}
	if origin, ok := t.places.Origin(q.Location); ok {
		out.Jobs = t.placeJobs(out.Jobs, origin, q.Location.RadiusKm, input.Nearby)
	}
	out.Summary = summarize(out)
	return nil, out, nil
}

// placeJobs sets each job's distance from origin and drops jobs known to lie
// outside radiusKm. Jobs whose location cannot be resolved are kept, since
// the backend has already applied its own radius filter. With nearby the
// jobs are ordered nearest first.
func (t *tools) placeJobs(in []JobResult, origin query.Coordinates, radiusKm int, nearby bool) []JobResult {
	locations := make([]string, len(in))
	for i, j := range in {
		locations[i] = j.Location
	}
	placed := t.places.ByDistance(origin, locations)
	if !nearby {
		slices.SortFunc(placed, func(a, b query.Placed) int { return a.Index - b.Index })
	}

	out := make([]JobResult, 0, len(in))
	for _, p := range placed {
		j := in[p.Index]
		if p.Known {
			if radiusKm > 0 && p.DistanceKm > float64(radiusKm) {
				continue
			}
			d := p.DistanceKm
			j.DistanceKm = &d
		}
		out = append(out, j)
	}
	return out
}

func toJobResult(a jobs.Annotated, withDescription bool) JobResult {
	r := JobResult{
		ID:       a.ID,
		Title:    a.Title,
		Company:  a.Company.Name,
		Verified: a.Company.Verified,
		Location: a.Location,
		JobType:  a.JobType,
		Urgent:   a.Urgent,
		Skills:   a.Skills,
		Snippet:  jobs.Snippet(a.DescriptionHTML),
	}
	if a.Salary.Min > 0 || a.Salary.Max > 0 {
		s := a.Salary
		r.Salary = &s
	}
	if !a.PostedAt.IsZero() {
		r.PostedAt = a.PostedAt.UTC().Format(time.DateOnly)
	}
	if withDescription {
		r.Description = jobs.DescriptionMarkdown(a.DescriptionHTML)
	}
	if a.Match != nil {
		pct := a.Match.MatchPercentage
		r.MatchPercentage = &pct
		r.MatchedSkills = a.Match.MatchedSkills
	}
	return r
}

func summarize(out JobSearchOutput) string {
	what := out.Query
	if what == "" {
		what = "all jobs"
	}
	where := ""
	if out.Location != "" {
		where = " in " + out.Location
	}
	if len(out.Jobs) == 0 {
		return fmt.Sprintf("No jobs found for %q%s.", what, where)
	}
	s := fmt.Sprintf("Found %d jobs for %q%s (showing %d, page %d).", out.TotalCount, what, where, len(out.Jobs), out.Page)
	if out.Jobs[0].MatchPercentage != nil {
		best := 0
		for _, j := range out.Jobs {
			best = max(best, *j.MatchPercentage)
		}
		s += fmt.Sprintf(" Best skill match: %d%%.", best)
	}
	return s
}
