package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures by how the caller should react to them.
type Kind string

const (
	// KindValidation is a local rejection; no request was made.
	KindValidation Kind = "validation"
	// KindTransport means the server could not be reached. Safe to retry.
	KindTransport Kind = "transport"
	// KindService is a non-2xx answer from a collaborator.
	KindService Kind = "service"
	// KindConflict is a 409 that callers treat as a soft success.
	KindConflict Kind = "conflict"
	// KindCanceled marks work abandoned because a newer request superseded it.
	KindCanceled Kind = "canceled"
)

// User-facing messages.
const (
	MsgTransport         = "Couldn't reach the server. Please try again."
	MsgInvalidSearch     = "Invalid search parameters"
	MsgServiceDown       = "Search service unavailable"
	MsgServiceTrouble    = "Search service experiencing issues"
	MsgSearchFallback    = "We couldn't find jobs matching your search"
	MsgSimilarAlert      = "You already have a similar job alert. Check your email for existing alerts."
	MsgAlertRetry        = "Failed to create job alert. Please try again."
	MsgSaveFailed        = "Failed to save job. Please try again."
	MsgApplyFailed       = "Failed to submit application. Please try again."
	MsgAlreadyApplied    = "You have already applied for this job."
	MsgLoginToSave       = "Please log in to save jobs"
	MsgInvalidEmail      = "Please enter a valid email address"
	MsgResumeRequired    = "Please select a resume to apply"
	MsgProfileIncomplete = "Please complete at least 50% of your profile before applying"
)

// Error is the single error type surfaced by the core.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status for KindService/KindConflict, 0 otherwise
	Message string // safe to show to a visitor
	Server  string // collaborator's own message, if it sent one
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the message intended for display.
func (e *Error) UserMessage() string { return e.Message }

// WithMessage returns a copy of e that shows msg instead.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Retryable reports whether re-invoking the same action may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindService:
		return e.Status >= 500
	}
	return false
}

// Validation builds a local rejection.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Transport wraps a network-level failure.
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: MsgTransport, Err: err}
}

// Canceled wraps a context cancellation.
func Canceled(err error) *Error {
	return &Error{Kind: KindCanceled, Message: "request superseded", Err: err}
}

// Conflict builds a 409 error carrying msg.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

// Service classifies a non-2xx response. serverMsg is the collaborator's own
// message, used only for statuses without a dedicated text.
func Service(status int, serverMsg string) *Error {
	e := &Error{Kind: KindService, Status: status, Server: serverMsg}
	switch {
	case status == http.StatusBadRequest:
		e.Message = MsgInvalidSearch
	case status == http.StatusNotFound:
		e.Message = MsgServiceDown
	case status >= 500:
		e.Message = MsgServiceTrouble
	case serverMsg != "":
		e.Message = serverMsg
	default:
		e.Message = MsgSearchFallback
	}
	if status == http.StatusConflict {
		e.Kind = KindConflict
	}
	return e
}

// FromContext converts a context error into Canceled, or returns nil.
func FromContext(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return Canceled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transport(err)
	}
	return nil
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsTransport(err error) bool  { return KindOf(err) == KindTransport }
func IsService(err error) bool    { return KindOf(err) == KindService }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsCanceled(err error) bool   { return KindOf(err) == KindCanceled }

// UserMessage extracts the display message of err, falling back to a generic text.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgSearchFallback
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Relabel replaces the display message of err, keeping its kind and status.
// Cancellations and errors that are not *Error are returned unchanged.
func Relabel(err error, msg string) error {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindCanceled {
		return err
	}
	return e.WithMessage(msg)
}
