// Package alerts subscribes visitors to email job alerts built from their
// current search.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

const (
	msgBadFrequency = "Please choose how often to receive alerts"
	msgInFlight     = "Your alert is already being created"
)

// Frequency is how often alert emails are sent.
type Frequency string

const (
	Instant Frequency = "INSTANT"
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
)

// ParseFrequency accepts the names in any case; empty means Daily.
func ParseFrequency(s string) (Frequency, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Daily, true
	}
	switch f := Frequency(s); f {
	case Instant, Daily, Weekly:
		return f, true
	}
	return "", false
}

// Context is the search an alert is created for.
type Context struct {
	Query     string   `json:"query"`
	Location  string   `json:"location"`
	JobType   string   `json:"jobType"`
	Skills    []string `json:"skills"`
	SalaryMin int      `json:"salaryMin"`
}

// ContextFrom snapshots the alert context of q.
func ContextFrom(q query.SearchQuery) Context {
	c := Context{
		Query:     q.Term,
		Location:  q.LocationText(),
		Skills:    q.Skills,
		SalaryMin: q.Salary.Min,
	}
	if len(q.JobTypes) > 0 {
		c.JobType = string(q.JobTypes[0])
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	return c
}

// Result describes an accepted subscription.
type Result struct {
	AlertID       string    `json:"alertId,omitempty"`
	Frequency     Frequency `json:"frequency"`
	AlreadyExists bool      `json:"alreadyExists"`
	Message       string    `json:"message"`
}

// AlertAPI creates alerts on the backend.
type AlertAPI interface {
	CreateAlert(ctx context.Context, token string, req apiclient.AlertRequest) (apiclient.AlertReceipt, error)
}

// FlagStore persists the durable subscribed flag.
type FlagStore interface {
	SetSubscribed(ctx context.Context, visitorID string, at time.Time) error
}

// Marker is told about a successful subscription; the engagement engine
// closes its prompt and stops all triggers.
type Marker interface {
	MarkSubscribed()
}

// Subscriber submits alert subscriptions for one visitor.
type Subscriber struct {
	api       AlertAPI
	flags     FlagStore
	marker    Marker
	clock     engine.Clock
	visitorID string

	mu       sync.Mutex
	token    string
	inFlight bool
}

// NewSubscriber builds a Subscriber. flags and marker may be nil.
func NewSubscriber(api AlertAPI, flags FlagStore, marker Marker, clock engine.Clock, visitorID string) *Subscriber {
	if clock == nil {
		clock = engine.SystemClock()
	}
	return &Subscriber{api: api, flags: flags, marker: marker, clock: clock, visitorID: visitorID}
}

// SetToken sets the bearer token sent with alert requests; anonymous
// visitors subscribe with an empty token.
func (s *Subscriber) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Submit validates email and frequency locally, then creates the alert.
// An existing similar alert is a soft success with AlreadyExists set; it
// does not set the durable flag.
func (s *Subscriber) Submit(ctx context.Context, email, frequency string, c Context) (Result, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return Result{}, engine.Validation(engine.MsgInvalidEmail)
	}
	freq, ok := ParseFrequency(frequency)
	if !ok {
		return Result{}, engine.Validation(msgBadFrequency)
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Result{}, engine.Validation(msgInFlight)
	}
	s.inFlight = true
	token := s.token
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	skills := c.Skills
	if skills == nil {
		skills = []string{}
	}
	rec, err := s.api.CreateAlert(ctx, token, apiclient.AlertRequest{
		Email:          email,
		SearchQuery:    c.Query,
		SearchLocation: c.Location,
		JobType:        c.JobType,
		Skills:         skills,
		SalaryMin:      c.SalaryMin,
		Frequency:      string(freq),
	})
	switch {
	case engine.IsConflict(err):
		engine.IncrAlertConflict()
		slog.Debug("alerts: similar alert exists", slog.String("visitor", s.visitorID))
		return Result{AlertID: rec.AlertID, Frequency: freq, AlreadyExists: true, Message: engine.MsgSimilarAlert}, nil
	case err != nil:
		slog.Debug("alerts: create failed", slog.String("visitor", s.visitorID), slog.Any("error", err))
		return Result{}, engine.Relabel(err, engine.MsgAlertRetry)
	}

	engine.IncrAlertCreated()
	if s.flags != nil && s.visitorID != "" {
		if err := s.flags.SetSubscribed(ctx, s.visitorID, s.clock.Now()); err != nil {
			slog.Warn("alerts: persist subscribed flag failed", slog.String("visitor", s.visitorID), slog.Any("error", err))
		}
	}
	if s.marker != nil {
		s.marker.MarkSubscribed()
	}
	slog.Info("alerts: subscribed", slog.String("visitor", s.visitorID), slog.String("frequency", string(freq)))
	return Result{AlertID: rec.AlertID, Frequency: freq, Message: confirmation(freq, c)}, nil
}

// ValidEmail checks the shape of an address: a non-empty local part, an
// "@", and a non-empty domain, with no whitespace.
func ValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1
}

func confirmation(f Frequency, c Context) string {
	what := c.Query
	if what == "" {
		what = "all jobs"
	}
	msg := fmt.Sprintf("You'll receive %s job alerts for %q", strings.ToLower(string(f)), what)
	if c.Location != "" {
		msg += " in " + c.Location
	}
	return msg
}
