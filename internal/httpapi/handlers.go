package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
	"github.com/anatolykoptev/go_jobboard/internal/savedjobs"
	"github.com/anatolykoptev/go_jobboard/internal/session"
)

const localSession = "session"

// Handler serves the session routes.
type Handler struct {
	mgr     *session.Manager
	places  *query.Gazetteer
	timeout time.Duration
}

// Request bodies. Unknown fields are rejected.
type (
	openSessionRequest struct {
		VisitorID string `json:"visitorId"`
	}
	sortRequest struct {
		SortBy string `json:"sortBy"`
	}
	skillsRequest struct {
		Skills []string `json:"skills"`
	}
	pointerRequest struct {
		Event   string  `json:"event"` // "leave" or "enter"
		Y       float64 `json:"y"`
		Desktop bool    `json:"desktop"`
	}
	subscribeRequest struct {
		Email     string `json:"email"`
		Frequency string `json:"frequency"`
	}
)

type openSessionResponse struct {
	SessionID  string `json:"sessionId"`
	VisitorID  string `json:"visitorId"`
	Subscribed bool   `json:"subscribed"`
}

type profileResponse struct {
	Profile      jobs.Profile      `json:"profile"`
	Completeness jobs.Completeness `json:"completeness"`
	CanApply     bool              `json:"canApply"`
	Warnings     []string          `json:"warnings"`
}

// decodeStrict decodes the request body into v, rejecting unknown fields
// and trailing data. An empty body leaves v untouched.
func decodeStrict(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return engine.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return engine.Validation("invalid request body: trailing data")
	}
	return nil
}

func (h *Handler) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// loadSession resolves :id and aligns the session with the request identity.
func (h *Handler) loadSession(c *fiber.Ctx) error {
	s, err := h.mgr.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if ident := identityOf(c); ident != s.Identity() {
		s.SetIdentity(ident)
	}
	c.Locals(localSession, s)
	return c.Next()
}

func sessionOf(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(localSession).(*session.Session)
	return s
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return writeJSON(c, http.StatusOK, fiber.Map{"status": "ok", "sessions": h.mgr.Len()})
}

func (h *Handler) Metrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(engine.FormatMetrics())
}

// SuggestLocations completes a location prefix against the gazetteer.
func (h *Handler) SuggestLocations(c *fiber.Ctx) error {
	places := h.places.Suggest(c.Query("q"), c.QueryInt("limit", 8))
	out := make([]fiber.Map, 0, len(places))
	for _, p := range places {
		out = append(out, fiber.Map{"name": p.Name, "region": p.Region, "kind": p.Kind, "label": p.Formatted()})
	}
	return writeJSON(c, http.StatusOK, fiber.Map{"suggestions": out})
}

func (h *Handler) OpenSession(c *fiber.Ctx) error {
	var req openSessionRequest
	if err := decodeStrict(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	s, err := h.mgr.Open(ctx, strings.TrimSpace(req.VisitorID), identityOf(c))
	if err != nil {
		return fail(c, err)
	}
	return writeJSON(c, http.StatusCreated, openSessionResponse{
		SessionID:  s.ID,
		VisitorID:  s.VisitorID,
		Subscribed: s.Engagement.Stats().Subscribed,
	})
}

func (h *Handler) CloseSession(c *fiber.Ctx) error {
	if err := h.mgr.CloseSession(sessionOf(c).ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) Results(c *fiber.Ctx) error {
	return writeJSON(c, http.StatusOK, sessionOf(c).Results.Snapshot())
}

// searchReply renders the snapshot after a controller call.
func (h *Handler) searchReply(c *fiber.Ctx, s *session.Session, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return writeJSON(c, http.StatusOK, s.Results.Snapshot())
}

func (h *Handler) Search(c *fiber.Ctx) error {
	var in query.RawInput
	if err := decodeStrict(c, &in); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	return h.searchReply(c, s, s.Results.Search(ctx, query.BuildWith(h.places, in)))
}

func (h *Handler) SetFilters(c *fiber.Ctx) error {
	var in query.RawInput
	if err := decodeStrict(c, &in); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	return h.searchReply(c, s, s.Results.SetFilters(ctx, query.BuildWith(h.places, in)))
}

func (h *Handler) SetSort(c *fiber.Ctx) error {
	var req sortRequest
	if err := decodeStrict(c, &req); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	return h.searchReply(c, s, s.Results.SetSort(ctx, query.ParseSortKey(req.SortBy)))
}

func (h *Handler) LoadMore(c *fiber.Ctx) error {
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	return h.searchReply(c, s, s.Results.LoadMore(ctx))
}

func (h *Handler) Retry(c *fiber.Ctx) error {
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	return h.searchReply(c, s, s.Results.Retry(ctx))
}

func (h *Handler) SetSkills(c *fiber.Ctx) error {
	var req skillsRequest
	if err := decodeStrict(c, &req); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	s.Results.SetCandidateSkills(req.Skills)
	return writeJSON(c, http.StatusOK, s.Results.Snapshot())
}

func (h *Handler) ListSaved(c *fiber.Ctx) error {
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := s.Saved.Reconcile(ctx); err != nil {
		return fail(c, err)
	}
	return writeJSON(c, http.StatusOK, fiber.Map{"savedJobIds": s.Saved.IDs()})
}

func (h *Handler) ToggleSaved(c *fiber.Ctx) error {
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	jobID := utils.CopyString(c.Params("jobId"))
	saved, err := s.Saved.Toggle(ctx, jobID)
	if err != nil {
		return fail(c, err)
	}
	return writeJSON(c, http.StatusOK, fiber.Map{"jobId": jobID, "saved": saved})
}

func (h *Handler) Profile(c *fiber.Ctx) error {
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	p, comp, err := s.LoadProfile(ctx)
	if err != nil {
		return fail(c, err)
	}
	return writeJSON(c, http.StatusOK, profileResponse{
		Profile:      p,
		Completeness: comp,
		CanApply:     comp.CanApply(),
		Warnings:     s.Applicant.Warnings(),
	})
}

func (h *Handler) Draft(c *fiber.Ctx) error {
	s := sessionOf(c)
	if _, loaded := s.Applicant.Completeness(); !loaded {
		ctx, cancel := h.ctx(c)
		defer cancel()
		if _, _, err := s.LoadProfile(ctx); err != nil {
			return fail(c, err)
		}
	}
	jobID := utils.CopyString(c.Params("jobId"))
	return writeJSON(c, http.StatusOK, fiber.Map{
		"draft":      s.Applicant.NewDraft(jobID),
		"hasApplied": s.Applicant.HasApplied(jobID),
		"warnings":   s.Applicant.Warnings(),
	})
}

func (h *Handler) Apply(c *fiber.Ctx) error {
	var d savedjobs.Draft
	if err := decodeStrict(c, &d); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	rec, err := s.Applicant.Submit(ctx, d)
	if err != nil {
		return fail(c, err)
	}
	status := http.StatusCreated
	if rec.AlreadyApplied {
		status = http.StatusOK
	}
	return writeJSON(c, status, rec)
}

func (h *Handler) Pointer(c *fiber.Ctx) error {
	var req pointerRequest
	if err := decodeStrict(c, &req); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	switch req.Event {
	case "leave":
		s.Engagement.PointerLeave(req.Y, req.Desktop)
	case "enter":
		s.Engagement.PointerEnter()
	default:
		return fail(c, engine.Validation(`event must be "leave" or "enter"`))
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) Engagement(c *fiber.Ctx) error {
	return writeJSON(c, http.StatusOK, sessionOf(c).Engagement.Stats())
}

func (h *Handler) Prompt(c *fiber.Ctx) error {
	p, ok := sessionOf(c).Engagement.Prompt()
	if !ok {
		return writeJSON(c, http.StatusOK, fiber.Map{"show": false})
	}
	return writeJSON(c, http.StatusOK, fiber.Map{"show": true, "prompt": p})
}

func (h *Handler) DismissPrompt(c *fiber.Ctx) error {
	sessionOf(c).Engagement.Dismiss()
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := decodeStrict(c, &req); err != nil {
		return fail(c, err)
	}
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	res, err := s.Subscribe(ctx, req.Email, req.Frequency)
	if err != nil {
		return fail(c, err)
	}
	status := http.StatusCreated
	if res.AlreadyExists {
		status = http.StatusOK
	}
	return writeJSON(c, status, res)
}

func (h *Handler) RecentSearches(c *fiber.Ctx) error {
	s := sessionOf(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	recent, err := s.RecentSearches(ctx)
	if err != nil {
		return fail(c, err)
	}
	return writeJSON(c, http.StatusOK, fiber.Map{"recentSearches": recent})
}
