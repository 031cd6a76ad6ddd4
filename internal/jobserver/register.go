// Package jobserver exposes stateless job-board tools over MCP.
package jobserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

// Deps are the collaborators the tools use.
type Deps struct {
	Searcher apiclient.Searcher
	Places   *query.Gazetteer // nil uses the embedded gazetteer
}

type tools struct {
	searcher apiclient.Searcher
	places   *query.Gazetteer
}

// RegisterTools registers job_search, skill_match, profile_completeness
// and location_suggest on server. It returns the number of tools added.
func RegisterTools(server *mcp.Server, deps Deps) int {
	t := &tools{searcher: deps.Searcher, places: deps.Places}
	if t.places == nil {
		t.places = query.DefaultGazetteer()
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_search",
		Description: "Search Jamaican job listings by keywords, town or parish, job type, skills and salary. Returns structured JSON with job details and a short description snippet. When candidate_skills are given every job carries a match_percentage (share of the job's required skills the candidate has).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.jobSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "skill_match",
		Description: "Compute the percentage of a job's required skills present in a candidate's skill set. Comparison ignores case and surrounding whitespace; the result is rounded half up.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.skillMatch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "profile_completeness",
		Description: "Score a candidate profile against the five-item checklist (resume, phone, skills, education, experience). Quick-apply needs at least 50%.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.profileCompleteness)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "location_suggest",
		Description: "Suggest Jamaican towns and parishes for a partial location name.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.locationSuggest)

	return 4
}
