package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/results"
	"github.com/anatolykoptev/go_jobboard/internal/session"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func writeJSON(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(v)
}

func writeError(c *fiber.Ctx, status int, kind engine.Kind, message string) error {
	return writeJSON(c, status, ErrorResponse{Message: message, Kind: string(kind)})
}

// fail renders err with a status derived from its kind.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return writeError(c, http.StatusNotFound, "", "session not found")
	case errors.Is(err, results.ErrClosed):
		return writeError(c, http.StatusGone, "", "session closed")
	}

	kind := engine.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case engine.KindValidation:
		status = http.StatusBadRequest
	case engine.KindTransport:
		status = http.StatusServiceUnavailable
	case engine.KindService:
		status = http.StatusBadGateway
		if s := engine.StatusOf(err); s >= 400 && s < 500 {
			status = s
		}
	case engine.KindConflict, engine.KindCanceled:
		status = http.StatusConflict
	default:
		slog.Error("httpapi: unclassified error", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return writeError(c, status, kind, engine.UserMessage(err))
}
