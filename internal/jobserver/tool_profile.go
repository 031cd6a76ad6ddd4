package jobserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

func (t *tools) skillMatch(_ context.Context, _ *mcp.CallToolRequest, input SkillMatchInput) (*mcp.CallToolResult, SkillMatchOutput, error) {
	if len(input.JobSkills) == 0 {
		return nil, SkillMatchOutput{}, fmt.Errorf("job_skills is required")
	}
	m := jobs.Match("", input.JobSkills, input.CandidateSkills)

	matched := make(map[string]bool, len(m.MatchedSkills))
	for _, s := range m.MatchedSkills {
		matched[engine.FoldKey(s)] = true
	}
	missing := []string{}
	for _, s := range query.NormalizeSkills(input.JobSkills) {
		if !matched[engine.FoldKey(s)] {
			missing = append(missing, s)
		}
	}
	out := SkillMatchOutput{MatchPercentage: m.MatchPercentage, MatchedSkills: m.MatchedSkills, MissingSkills: missing}
	if out.MatchedSkills == nil {
		out.MatchedSkills = []string{}
	}
	return nil, out, nil
}

func (t *tools) profileCompleteness(_ context.Context, _ *mcp.CallToolRequest, input ProfileCompletenessInput) (*mcp.CallToolResult, ProfileCompletenessOutput, error) {
	p := jobs.Profile{Skills: input.Skills, PhoneNumber: input.PhoneNumber}
	for _, r := range input.Resumes {
		p.Resumes = append(p.Resumes, jobs.Resume{ID: r, Name: r})
	}
	for _, e := range input.Education {
		p.Education = append(p.Education, jobs.Education{Institution: e})
	}
	for _, e := range input.Experience {
		p.Experience = append(p.Experience, jobs.Experience{Title: e})
	}

	c := jobs.ComputeCompleteness(p)
	out := ProfileCompletenessOutput{
		Percentage: c.Percentage,
		CanApply:   c.CanApply(),
		Completed:  c.Completed,
		Missing:    c.Missing,
	}
	if out.CanApply {
		out.Summary = fmt.Sprintf("Profile is %d%% complete; quick-apply is available.", c.Percentage)
	} else {
		out.Summary = fmt.Sprintf("Profile is %d%% complete; add %s to reach %d%% and apply.",
			c.Percentage, strings.Join(c.Missing, ", "), jobs.MinCompleteness)
	}
	return nil, out, nil
}

func (t *tools) locationSuggest(_ context.Context, _ *mcp.CallToolRequest, input LocationSuggestInput) (*mcp.CallToolResult, LocationSuggestOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 8
	}
	out := LocationSuggestOutput{Suggestions: []LocationSuggestion{}}
	for _, p := range t.places.Suggest(input.Query, limit) {
		out.Suggestions = append(out.Suggestions, LocationSuggestion{Name: p.Name, Region: p.Region, Label: p.Formatted()})
	}
	return nil, out, nil
}
