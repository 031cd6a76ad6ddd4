package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

// SearchResponse is one page of search results.
type SearchResponse struct {
	Jobs       []jobs.Posting `json:"jobs"`
	TotalCount int            `json:"totalCount"`
	HasMore    bool           `json:"hasMore"`
}

// Search runs q against the search endpoint. Search is public; no token is sent.
func (c *Client) Search(ctx context.Context, q query.SearchQuery) (SearchResponse, error) {
	var out SearchResponse
	err := c.roundTrip(ctx, call{method: http.MethodGet, path: "/api/search/jobs", query: q.Values()}, &out)
	if err != nil {
		return SearchResponse{}, err
	}
	if out.Jobs == nil {
		out.Jobs = []jobs.Posting{}
	}
	return out, nil
}

type saveJobRequest struct {
	JobID string `json:"jobId"`
}

// SaveJob adds jobID to the visitor's saved jobs. A job that is already
// saved counts as success.
func (c *Client) SaveJob(ctx context.Context, token, jobID string) error {
	err := c.roundTrip(ctx, call{
		method: http.MethodPost,
		path:   "/api/jobseeker/saved-jobs",
		token:  token,
		body:   saveJobRequest{JobID: jobID},
	}, nil)
	if engine.IsConflict(err) {
		return nil
	}
	return err
}

// UnsaveJob removes jobID from the visitor's saved jobs. A job that was not
// saved counts as success.
func (c *Client) UnsaveJob(ctx context.Context, token, jobID string) error {
	err := c.roundTrip(ctx, call{
		method: http.MethodDelete,
		path:   "/api/jobseeker/saved-jobs/" + url.PathEscape(jobID),
		token:  token,
	}, nil)
	if engine.StatusOf(err) == http.StatusNotFound {
		return nil
	}
	return err
}

type savedJobsResponse struct {
	SavedJobs []struct {
		ID string `json:"id"`
	} `json:"savedJobs"`
}

// ListSavedJobs returns the ids of the visitor's saved jobs, newest first.
func (c *Client) ListSavedJobs(ctx context.Context, token string) ([]string, error) {
	var out savedJobsResponse
	err := c.roundTrip(ctx, call{method: http.MethodGet, path: "/api/jobseeker/saved-jobs", token: token}, &out)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.SavedJobs))
	for _, j := range out.SavedJobs {
		if j.ID != "" {
			ids = append(ids, j.ID)
		}
	}
	return ids, nil
}

// candidateProfile is the profile as stored by the backend. Older records
// carry a single resume URL instead of a resume list.
type candidateProfile struct {
	Skills         []string          `json:"skills"`
	Resumes        []jobs.Resume     `json:"resumes"`
	ResumeURL      string            `json:"resumeUrl"`
	ResumeFileName string            `json:"resumeFileName"`
	PhoneNumber    string            `json:"phoneNumber"`
	Education      []jobs.Education  `json:"education"`
	Experience     []jobs.Experience `json:"experience"`
	WorkExperience []jobs.Experience `json:"workExperience"`
}

type profileBody struct {
	CandidateProfile *candidateProfile `json:"candidateProfile"`
	PhoneNumber      string            `json:"phoneNumber"`
}

// profileResponse accepts both {data:{...}} and the bare body.
type profileResponse struct {
	Data *profileBody `json:"data"`
	profileBody
}

func (r profileResponse) profile() jobs.Profile {
	body := r.profileBody
	if r.Data != nil {
		body = *r.Data
	}
	cp := candidateProfile{}
	if body.CandidateProfile != nil {
		cp = *body.CandidateProfile
	}

	p := jobs.Profile{
		Skills:      cp.Skills,
		Resumes:     cp.Resumes,
		PhoneNumber: cp.PhoneNumber,
		Education:   cp.Education,
		Experience:  cp.Experience,
	}
	if len(p.Resumes) == 0 && cp.ResumeURL != "" {
		name := cp.ResumeFileName
		if name == "" {
			name = "Resume"
		}
		p.Resumes = []jobs.Resume{{ID: "default", Name: name, IsDefault: true}}
	}
	if p.PhoneNumber == "" {
		p.PhoneNumber = body.PhoneNumber
	}
	if len(p.Experience) == 0 {
		p.Experience = cp.WorkExperience
	}
	return p
}

// FetchProfile loads the authenticated visitor's candidate profile.
func (c *Client) FetchProfile(ctx context.Context, token string) (jobs.Profile, error) {
	var out profileResponse
	if err := c.roundTrip(ctx, call{method: http.MethodGet, path: "/api/jobseeker/profile", token: token}, &out); err != nil {
		return jobs.Profile{}, err
	}
	return out.profile(), nil
}

// ApplicationRequest is the quick-apply payload.
type ApplicationRequest struct {
	JobID          string `json:"jobId"`
	ResumeID       string `json:"resumeId"`
	CoverLetter    string `json:"coverLetter,omitempty"`
	PhoneNumber    string `json:"phoneNumber"`
	Availability   string `json:"availability"`
	ExpectedSalary *int   `json:"salary,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// ApplicationReceipt identifies a submitted application.
type ApplicationReceipt struct {
	ID string `json:"id"`
}

type applicationResponse struct {
	ID          string              `json:"id"`
	Application *ApplicationReceipt `json:"application"`
}

// SubmitApplication posts an application for req.JobID.
func (c *Client) SubmitApplication(ctx context.Context, token string, req ApplicationRequest) (ApplicationReceipt, error) {
	var out applicationResponse
	err := c.roundTrip(ctx, call{
		method: http.MethodPost,
		path:   "/api/jobs/" + url.PathEscape(req.JobID) + "/apply",
		token:  token,
		body:   req,
	}, &out)
	if err != nil {
		return ApplicationReceipt{}, err
	}
	if out.Application != nil {
		return *out.Application, nil
	}
	return ApplicationReceipt{ID: out.ID}, nil
}

// AlertRequest creates an email job alert.
type AlertRequest struct {
	Email          string   `json:"email"`
	SearchQuery    string   `json:"searchQuery"`
	SearchLocation string   `json:"searchLocation"`
	JobType        string   `json:"jobType"`
	Skills         []string `json:"skills"`
	SalaryMin      int      `json:"salaryMin"`
	Frequency      string   `json:"frequency"`
}

// AlertReceipt identifies a created, or already existing, alert.
type AlertReceipt struct {
	AlertID string
	Existed bool
}

type alertResponse struct {
	Message string `json:"message"`
	AlertID string `json:"alertId"`
	Alert   *struct {
		ID string `json:"id"`
	} `json:"alert"`
}

// CreateAlert creates an alert. When the backend already holds an equivalent
// alert it answers 409; that is returned as a KindConflict error together
// with a receipt carrying the existing id.
func (c *Client) CreateAlert(ctx context.Context, token string, req AlertRequest) (AlertReceipt, error) {
	raw, err := c.do(ctx, call{method: http.MethodPost, path: "/api/email-alerts", token: token, body: req})
	if err != nil {
		return AlertReceipt{}, err
	}
	var out alertResponse
	_ = json.Unmarshal(raw.body, &out)

	if raw.status == http.StatusConflict {
		msg := out.Message
		if msg == "" {
			msg = engine.MsgSimilarAlert
		}
		return AlertReceipt{AlertID: out.AlertID, Existed: true}, engine.Conflict(msg)
	}
	if err := check(raw); err != nil {
		return AlertReceipt{}, err
	}
	rec := AlertReceipt{AlertID: out.AlertID}
	if out.Alert != nil {
		rec.AlertID = out.Alert.ID
	}
	return rec, nil
}

// SearchEvent is the analytics record sent after a committed search.
type SearchEvent struct {
	Query        string   `json:"query"`
	Location     string   `json:"location"`
	JobTypes     []string `json:"jobTypes,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	SalaryMin    int      `json:"salaryMin,omitempty"`
	SalaryMax    int      `json:"salaryMax,omitempty"`
	Remote       bool     `json:"remote,omitempty"`
	SortBy       string   `json:"sortBy"`
	Page         int      `json:"page"`
	ResultsCount int      `json:"resultsCount"`
	SearchTimeMs int64    `json:"searchTime"`
	UserType     string   `json:"userType"`
}

// TrackSearch posts one analytics event.
func (c *Client) TrackSearch(ctx context.Context, ev SearchEvent) error {
	if err := c.roundTrip(ctx, call{method: http.MethodPost, path: "/api/analytics/search", body: ev}, nil); err != nil {
		return fmt.Errorf("track search: %w", err)
	}
	return nil
}
