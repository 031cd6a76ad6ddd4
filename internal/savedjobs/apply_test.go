package savedjobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
)

const (
	timeout = time.Second
	tick    = time.Millisecond
)

type fakeApplyAPI struct {
	profile    jobs.Profile
	profileErr error
	submitErr  error
	submitted  []apiclient.ApplicationRequest
	fetches    int
}

func (f *fakeApplyAPI) FetchProfile(context.Context, string) (jobs.Profile, error) {
	f.fetches++
	return f.profile, f.profileErr
}

func (f *fakeApplyAPI) SubmitApplication(_ context.Context, _ string, req apiclient.ApplicationRequest) (apiclient.ApplicationReceipt, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return apiclient.ApplicationReceipt{}, f.submitErr
	}
	return apiclient.ApplicationReceipt{ID: "app-" + req.JobID}, nil
}

func completeProfile() jobs.Profile {
	return jobs.Profile{
		Skills:      []string{"Driving"},
		Resumes:     []jobs.Resume{{ID: "r1", IsDefault: true}},
		PhoneNumber: "876-555-0100",
		Education:   []jobs.Education{{Institution: "UTech"}},
		Experience:  []jobs.Experience{{Title: "Courier"}},
	}
}

func loadedApplicant(t *testing.T, p jobs.Profile) (*Applicant, *fakeApplyAPI) {
	t.Helper()
	api := &fakeApplyAPI{profile: p}
	a := NewApplicant(api)
	a.SetToken("tok")
	_, _, err := a.LoadProfile(context.Background())
	require.NoError(t, err)
	return a, api
}

func TestSubmitRejectedLocally(t *testing.T) {
	halfProfile := jobs.Profile{Resumes: []jobs.Resume{{ID: "r1"}}, PhoneNumber: "1"} // 40%

	tests := []struct {
		name    string
		profile jobs.Profile
		draft   Draft
		message string
	}{
		{"empty resume", completeProfile(), Draft{JobID: "j1"}, engine.MsgResumeRequired},
		{"blank resume", completeProfile(), Draft{JobID: "j1", ResumeID: "  "}, engine.MsgResumeRequired},
		{"incomplete profile", halfProfile, Draft{JobID: "j1", ResumeID: "r1"}, engine.MsgProfileIncomplete},
		{"missing job", completeProfile(), Draft{ResumeID: "r1"}, msgJobUnavailable},
		{"bad availability", completeProfile(), Draft{JobID: "j1", ResumeID: "r1", Availability: "SOMEDAY"}, msgBadAvailability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, api := loadedApplicant(t, tt.profile)
			_, err := a.Submit(context.Background(), tt.draft)
			require.Error(t, err)
			assert.True(t, engine.IsValidation(err))
			assert.Equal(t, tt.message, engine.UserMessage(err))
			assert.Empty(t, api.submitted, "no network call")
		})
	}
}

func TestSubmitRequiresLoadedProfile(t *testing.T) {
	api := &fakeApplyAPI{profile: completeProfile()}
	a := NewApplicant(api)
	_, err := a.Submit(context.Background(), Draft{JobID: "j1", ResumeID: "r1"})
	assert.Equal(t, msgLoginToApply, engine.UserMessage(err))

	a.SetToken("tok")
	_, err = a.Submit(context.Background(), Draft{JobID: "j1", ResumeID: "r1"})
	assert.Equal(t, msgProfileNotLoaded, engine.UserMessage(err))
	assert.Empty(t, api.submitted)
}

func TestSubmitAcceptedAndMarkedApplied(t *testing.T) {
	ctx := context.Background()
	a, api := loadedApplicant(t, completeProfile())

	d := a.NewDraft("j1")
	assert.Equal(t, "r1", d.ResumeID)
	assert.Equal(t, "876-555-0100", d.PhoneNumber)
	assert.Equal(t, string(Immediate), d.Availability)

	rec, err := a.Submit(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "app-j1", rec.ApplicationID)
	assert.True(t, a.HasApplied("j1"))
	require.Len(t, api.submitted, 1)
	assert.Equal(t, "IMMEDIATE", api.submitted[0].Availability)

	_, err = a.Submit(ctx, d)
	require.Error(t, err)
	assert.Equal(t, engine.MsgAlreadyApplied, engine.UserMessage(err))
	assert.Len(t, api.submitted, 1, "re-apply prevented locally")
}

func TestSubmitThreeOfFiveItems(t *testing.T) {
	// Three of five items is 60%, above the 50% threshold.
	p := jobs.Profile{Resumes: []jobs.Resume{{ID: "r1"}}, PhoneNumber: "1", Skills: []string{"x"}}
	a, api := loadedApplicant(t, p)
	_, err := a.Submit(context.Background(), Draft{JobID: "j1", ResumeID: "r1"})
	require.NoError(t, err)
	assert.Len(t, api.submitted, 1)
}

func TestSubmitServerAlreadyApplied(t *testing.T) {
	a, api := loadedApplicant(t, completeProfile())
	api.submitErr = engine.Service(409, "You have already applied for this job")

	rec, err := a.Submit(context.Background(), Draft{JobID: "j1", ResumeID: "r1"})
	require.NoError(t, err)
	assert.True(t, rec.AlreadyApplied)
	assert.True(t, a.HasApplied("j1"))
}

func TestSubmitFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad request with server text", engine.Service(400, "Please upload a resume before applying"), "Please upload a resume before applying"},
		{"bad request without text", engine.Service(400, ""), msgMissingInfo},
		{"forbidden", engine.Service(403, "nope"), msgApplyForbidden},
		{"server error", engine.Service(500, ""), engine.MsgApplyFailed},
		{"transport", engine.Transport(errors.New("reset")), engine.MsgTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, api := loadedApplicant(t, completeProfile())
			api.submitErr = tt.err
			_, err := a.Submit(context.Background(), Draft{JobID: "j1", ResumeID: "r1"})
			require.Error(t, err)
			assert.Equal(t, tt.want, engine.UserMessage(err))
			assert.False(t, a.HasApplied("j1"))

			api.submitErr = nil
			_, err = a.Submit(context.Background(), Draft{JobID: "j1", ResumeID: "r1"})
			assert.NoError(t, err, "a failed submission can be retried")
		})
	}
}

func TestWarningsAndCompleteness(t *testing.T) {
	a, api := loadedApplicant(t, jobs.Profile{Resumes: []jobs.Resume{{ID: "r"}}})
	c, ok := a.Completeness()
	require.True(t, ok)
	assert.Equal(t, 20, c.Percentage)
	assert.Equal(t, []string{"Add a phone number", "List your skills", "Add your education", "Add your work experience"}, a.Warnings())

	_, _ = a.Completeness()
	_ = a.Warnings()
	assert.Equal(t, 1, api.fetches, "completeness is computed per fetch, not per read")

	a.SetToken("someone-else")
	_, ok = a.Completeness()
	assert.False(t, ok)
	assert.Nil(t, a.Warnings())
}

func TestParseAvailability(t *testing.T) {
	for in, want := range map[string]Availability{"": Immediate, "one_week": OneWeek, "NEGOTIABLE": Negotiable} {
		got, ok := ParseAvailability(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseAvailability("tomorrow")
	assert.False(t, ok)
}
