package jobserver

import (
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
)

// JobSearchInput is the input for job_search.
type JobSearchInput struct {
	Query              string   `json:"query,omitempty" jsonschema:"Job search keywords (e.g. driver, registered nurse). Empty browses all jobs"`
	Location           string   `json:"location,omitempty" jsonschema:"Town or parish in Jamaica (e.g. Kingston, Montego Bay, St. Ann)"`
	RadiusKm           int      `json:"radius_km,omitempty" jsonschema:"Search radius around the location in km (0-200)"`
	JobTypes           []string `json:"job_types,omitempty" jsonschema:"Job types: full-time, part-time, contract, internship, temporary, freelance"`
	Skills             []string `json:"skills,omitempty" jsonschema:"Skills the job should require"`
	SalaryMin          *int     `json:"salary_min,omitempty" jsonschema:"Minimum yearly salary in JMD"`
	SalaryMax          *int     `json:"salary_max,omitempty" jsonschema:"Maximum yearly salary in JMD"`
	Remote             bool     `json:"remote,omitempty" jsonschema:"Only remote jobs"`
	ExperienceLevel    string   `json:"experience_level,omitempty" jsonschema:"Experience level: entry, mid, senior, executive"`
	PostedWithin       int      `json:"posted_within,omitempty" jsonschema:"Posted within N days: 1, 3, 7, 14, 30"`
	SortBy             string   `json:"sort_by,omitempty" jsonschema:"relevance (default), date, salary"`
	Page               int      `json:"page,omitempty" jsonschema:"Page number, 20 jobs per page (default 1)"`
	CandidateSkills    []string `json:"candidate_skills,omitempty" jsonschema:"Candidate skills; each job gets a match percentage"`
	RankByMatch        bool     `json:"rank_by_match,omitempty" jsonschema:"Order jobs by match percentage instead of the search order"`
	Nearby             bool     `json:"nearby,omitempty" jsonschema:"Order jobs by distance from the location, nearest first"`
	IncludeDescription bool     `json:"include_description,omitempty" jsonschema:"Include the full description as markdown"`
}

// JobResult is one job in a job_search answer.
type JobResult struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Company         string            `json:"company"`
	Verified        bool              `json:"verified,omitempty"`
	Location        string            `json:"location"`
	JobType         jobs.JobType      `json:"job_type,omitempty"`
	Salary          *jobs.SalaryRange `json:"salary,omitempty"`
	PostedAt        string            `json:"posted_at,omitempty"`
	Urgent          bool              `json:"urgent,omitempty"`
	Skills          []string          `json:"skills,omitempty"`
	Snippet         string            `json:"snippet,omitempty"`
	Description     string            `json:"description,omitempty"`
	MatchPercentage *int              `json:"match_percentage,omitempty"`
	MatchedSkills   []string          `json:"matched_skills,omitempty"`
	DistanceKm      *float64          `json:"distance_km,omitempty"`
}

// JobSearchOutput is the structured output for job_search.
type JobSearchOutput struct {
	Query      string      `json:"query"`
	Location   string      `json:"location,omitempty"`
	Page       int         `json:"page"`
	TotalCount int         `json:"total_count"`
	HasMore    bool        `json:"has_more"`
	Jobs       []JobResult `json:"jobs"`
	Summary    string      `json:"summary"`
}

// SkillMatchInput is the input for skill_match.
type SkillMatchInput struct {
	JobSkills       []string `json:"job_skills" jsonschema:"Skills the job requires"`
	CandidateSkills []string `json:"candidate_skills" jsonschema:"Skills the candidate has"`
}

// SkillMatchOutput is the structured output for skill_match.
type SkillMatchOutput struct {
	MatchPercentage int      `json:"match_percentage"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
}

// ProfileCompletenessInput is the input for profile_completeness.
type ProfileCompletenessInput struct {
	Skills      []string `json:"skills,omitempty" jsonschema:"Skills listed on the profile"`
	Resumes     []string `json:"resumes,omitempty" jsonschema:"Names or ids of uploaded resumes"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Education   []string `json:"education,omitempty" jsonschema:"Schools or degrees"`
	Experience  []string `json:"experience,omitempty" jsonschema:"Past job titles"`
}

// ProfileCompletenessOutput is the structured output for profile_completeness.
type ProfileCompletenessOutput struct {
	Percentage int      `json:"percentage"`
	CanApply   bool     `json:"can_apply"`
	Completed  []string `json:"completed"`
	Missing    []string `json:"missing"`
	Summary    string   `json:"summary"`
}

// LocationSuggestInput is the input for location_suggest.
type LocationSuggestInput struct {
	Query string `json:"query" jsonschema:"At least two letters of a town or parish name"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum suggestions (default 8)"`
}

// LocationSuggestion is one location_suggest answer.
type LocationSuggestion struct {
	Name   string `json:"name"`
	Region string `json:"region"`
	Label  string `json:"label"`
}

// LocationSuggestOutput is the structured output for location_suggest.
type LocationSuggestOutput struct {
	Suggestions []LocationSuggestion `json:"suggestions"`
}
