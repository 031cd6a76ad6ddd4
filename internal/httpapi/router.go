// Package httpapi is the REST surface a web frontend drives a search
// session through.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/anatolykoptev/go_jobboard/internal/query"
	"github.com/anatolykoptev/go_jobboard/internal/session"
)

// Config configures New.
type Config struct {
	JWTSecret string
	JWTIssuer string
	Timeout   time.Duration // per-request budget for collaborator calls
}

// New builds the Fiber app with every route registered.
func New(mgr *session.Manager, places *query.Gazetteer, cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Job ids and tokens outlive the request in session state.
		Immutable: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return writeError(c, fe.Code, "", fe.Message)
			}
			return fail(c, err)
		},
	})
	if places == nil {
		places = query.DefaultGazetteer()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	Register(app, &Handler{mgr: mgr, places: places, timeout: cfg.Timeout}, NewAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	return app
}

// Register wires all HTTP routes onto app.
func Register(app *fiber.App, h *Handler, auth fiber.Handler) {
	v1 := app.Group("/api").Group("/v1")

	v1.Get("/health", h.Health)
	v1.Get("/metrics", h.Metrics)
	v1.Get("/locations/suggest", h.SuggestLocations)

	v1.Post("/sessions", auth, h.OpenSession)

	s := v1.Group("/sessions/:id", auth, h.loadSession)
	s.Delete("/", h.CloseSession)

	s.Get("/results", h.Results)
	s.Post("/search", h.Search)
	s.Post("/filters", h.SetFilters)
	s.Post("/sort", h.SetSort)
	s.Post("/more", h.LoadMore)
	s.Post("/retry", h.Retry)
	s.Put("/skills", h.SetSkills)

	s.Get("/saved", h.ListSaved)
	s.Post("/saved/:jobId/toggle", h.ToggleSaved)

	s.Get("/profile", h.Profile)
	s.Get("/applications/:jobId/draft", h.Draft)
	s.Post("/applications", h.Apply)

	s.Post("/pointer", h.Pointer)
	s.Get("/engagement", h.Engagement)
	s.Get("/prompt", h.Prompt)
	s.Post("/prompt/dismiss", h.DismissPrompt)
	s.Post("/alerts", h.Subscribe)
	s.Get("/recent", h.RecentSearches)

	app.Use(func(c *fiber.Ctx) error {
		return writeError(c, http.StatusNotFound, "", "route not found")
	})
}
