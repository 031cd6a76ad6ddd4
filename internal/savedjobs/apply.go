package savedjobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
)

const (
	msgLoginToApply     = "Please log in to apply"
	msgJobUnavailable   = "Job information is not available. Please try again."
	msgProfileNotLoaded = "Your profile is still loading. Please try again."
	msgBadAvailability  = "Please choose when you can start"
	msgApplyInFlight    = "Your application is already being submitted"
	msgMissingInfo      = "Missing required information for application."
	msgApplyForbidden   = "You do not have permission to apply for this job."
)

// Availability is when the candidate can start.
type Availability string

const (
	Immediate  Availability = "IMMEDIATE"
	OneWeek    Availability = "ONE_WEEK"
	TwoWeeks   Availability = "TWO_WEEKS"
	OneMonth   Availability = "ONE_MONTH"
	Negotiable Availability = "NEGOTIABLE"
)

// ParseAvailability accepts the enum names in any case; empty means Immediate.
func ParseAvailability(s string) (Availability, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Immediate, true
	}
	switch a := Availability(s); a {
	case Immediate, OneWeek, TwoWeeks, OneMonth, Negotiable:
		return a, true
	}
	return "", false
}

// Draft is a quick-apply form.
type Draft struct {
	JobID          string `json:"jobId"`
	ResumeID       string `json:"resumeId"`
	CoverLetter    string `json:"coverLetter,omitempty"`
	PhoneNumber    string `json:"phoneNumber"`
	Availability   string `json:"availability"`
	ExpectedSalary *int   `json:"expectedSalary,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// Receipt is the result of an accepted submission.
type Receipt struct {
	ApplicationID  string `json:"applicationId,omitempty"`
	AlreadyApplied bool   `json:"alreadyApplied"`
}

// ApplyAPI is the profile and application part of the backend.
type ApplyAPI interface {
	FetchProfile(ctx context.Context, token string) (jobs.Profile, error)
	SubmitApplication(ctx context.Context, token string, req apiclient.ApplicationRequest) (apiclient.ApplicationReceipt, error)
}

// Applicant gates quick-apply behind profile completeness and remembers
// which jobs were applied to in this session.
type Applicant struct {
	api ApplyAPI

	mu           sync.Mutex
	token        string
	profile      jobs.Profile
	completeness jobs.Completeness
	loaded       bool
	applied      map[string]bool
	submitting   map[string]bool
}

// NewApplicant builds an Applicant with no identity.
func NewApplicant(api ApplyAPI) *Applicant {
	return &Applicant{api: api, applied: make(map[string]bool), submitting: make(map[string]bool)}
}

// SetToken switches identity, forgetting the loaded profile and applied jobs.
func (a *Applicant) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if token == a.token {
		return
	}
	a.token = token
	a.profile = jobs.Profile{}
	a.completeness = jobs.Completeness{}
	a.loaded = false
	a.applied = make(map[string]bool)
	a.submitting = make(map[string]bool)
}

// LoadProfile fetches the profile and computes its completeness once.
func (a *Applicant) LoadProfile(ctx context.Context) (jobs.Profile, jobs.Completeness, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	if token == "" {
		return jobs.Profile{}, jobs.Completeness{}, engine.Validation(msgLoginToApply)
	}

	p, err := a.api.FetchProfile(ctx, token)
	if err != nil {
		return jobs.Profile{}, jobs.Completeness{}, err
	}
	c := jobs.ComputeCompleteness(p)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == token {
		a.profile, a.completeness, a.loaded = p, c, true
	}
	return p, c, nil
}

// Completeness returns the last computed completeness, if a profile was loaded.
func (a *Applicant) Completeness() (jobs.Completeness, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completeness, a.loaded
}

var warningText = map[string]string{
	jobs.ItemResume:     "Upload a resume",
	jobs.ItemPhone:      "Add a phone number",
	jobs.ItemSkills:     "List your skills",
	jobs.ItemEducation:  "Add your education",
	jobs.ItemExperience: "Add your work experience",
}

// Warnings lists what the visitor should add to the profile before applying.
func (a *Applicant) Warnings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		return nil
	}
	out := make([]string, 0, len(a.completeness.Missing))
	for _, item := range a.completeness.Missing {
		out = append(out, warningText[item])
	}
	return out
}

// NewDraft prefills a draft for jobID from the loaded profile.
func (a *Applicant) NewDraft(jobID string) Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := Draft{JobID: jobID, PhoneNumber: a.profile.PhoneNumber, Availability: string(Immediate)}
	if r, ok := a.profile.DefaultResume(); ok {
		d.ResumeID = r.ID
	}
	return d
}

// HasApplied reports whether jobID was applied to in this session.
func (a *Applicant) HasApplied(jobID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied[jobID]
}

// Submit sends d. It is rejected without any backend call when the draft or
// profile is not good enough, or when the job was already applied to.
// A backend answer of "already applied" counts as accepted.
func (a *Applicant) Submit(ctx context.Context, d Draft) (Receipt, error) {
	req, token, err := a.admit(d)
	if err != nil {
		engine.IncrApplicationBlocked()
		return Receipt{}, err
	}

	rec, err := a.api.SubmitApplication(ctx, token, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.submitting, req.JobID)
	if err != nil && !engine.IsConflict(err) {
		slog.Debug("savedjobs: application failed", slog.String("job_id", req.JobID), slog.Any("error", err))
		return Receipt{}, applyError(err)
	}
	if a.token == token {
		a.applied[req.JobID] = true
	}
	engine.IncrApplicationSent()
	if err != nil {
		return Receipt{AlreadyApplied: true}, nil
	}
	return Receipt{ApplicationID: rec.ID}, nil
}

// admit runs every local check and reserves the job for submission.
func (a *Applicant) admit(d Draft) (apiclient.ApplicationRequest, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	jobID := strings.TrimSpace(d.JobID)
	switch {
	case a.token == "":
		return apiclient.ApplicationRequest{}, "", engine.Validation(msgLoginToApply)
	case jobID == "":
		return apiclient.ApplicationRequest{}, "", engine.Validation(msgJobUnavailable)
	case a.applied[jobID]:
		return apiclient.ApplicationRequest{}, "", engine.Validation(engine.MsgAlreadyApplied)
	case a.submitting[jobID]:
		return apiclient.ApplicationRequest{}, "", engine.Validation(msgApplyInFlight)
	case strings.TrimSpace(d.ResumeID) == "":
		return apiclient.ApplicationRequest{}, "", engine.Validation(engine.MsgResumeRequired)
	case !a.loaded:
		return apiclient.ApplicationRequest{}, "", engine.Validation(msgProfileNotLoaded)
	case !a.completeness.CanApply():
		return apiclient.ApplicationRequest{}, "", engine.Validation(engine.MsgProfileIncomplete)
	}
	avail, ok := ParseAvailability(d.Availability)
	if !ok {
		return apiclient.ApplicationRequest{}, "", engine.Validation(msgBadAvailability)
	}

	a.submitting[jobID] = true
	req := apiclient.ApplicationRequest{
		JobID:          jobID,
		ResumeID:       strings.TrimSpace(d.ResumeID),
		CoverLetter:    strings.TrimSpace(d.CoverLetter),
		PhoneNumber:    strings.TrimSpace(d.PhoneNumber),
		Availability:   string(avail),
		ExpectedSalary: d.ExpectedSalary,
		AdditionalInfo: strings.TrimSpace(d.AdditionalInfo),
	}
	return req, a.token, nil
}

// applyError picks the message shown for a failed submission.
func applyError(err error) error {
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindService {
		return err
	}
	switch e.Status {
	case http.StatusBadRequest:
		if e.Server != "" {
			return e.WithMessage(e.Server)
		}
		return e.WithMessage(msgMissingInfo)
	case http.StatusForbidden:
		return e.WithMessage(msgApplyForbidden)
	}
	return e.WithMessage(engine.MsgApplyFailed)
}
