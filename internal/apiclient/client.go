// Package apiclient talks to the job-board backend: search, saved jobs,
// profile, applications, alerts and search analytics.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// errUpstream marks a 5xx answer so the breaker counts it as a failure.
var errUpstream = errors.New("upstream 5xx")

// Config configures a Client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int           // consecutive failures that open the breaker
	BreakerCooldown time.Duration // how long the breaker stays open
	HTTPClient      *http.Client  // optional; built from Timeout when nil
}

// Client is a typed JSON client for the backend. It never retries: a failed
// call is reported to the caller, which may re-invoke it.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New builds a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		}
	}
	failures := uint32(max(cfg.BreakerFailures, 1))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("apiclient: breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		breaker: cb,
	}
}

type rawResponse struct {
	status int
	body   []byte
}

// call is one request to the backend.
type call struct {
	method string
	path   string
	token  string // bearer token; empty for anonymous calls
	query  url.Values
	body   any
}

// do executes c and returns the raw response. Only transport-level problems
// are returned as errors; status codes are left to the caller.
func (c *Client) do(ctx context.Context, in call) (rawResponse, error) {
	var body io.Reader
	if in.body != nil {
		b, err := json.Marshal(in.body)
		if err != nil {
			return rawResponse{}, fmt.Errorf("encode %s %s: %w", in.method, in.path, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + in.path
	if len(in.query) > 0 {
		u += "?" + in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, u, body)
	if err != nil {
		return rawResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.token != "" {
		req.Header.Set("Authorization", "Bearer "+in.token)
	}

	res, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		raw := rawResponse{status: resp.StatusCode, body: data}
		if raw.status >= 500 {
			return raw, errUpstream
		}
		return raw, nil
	})

	if err != nil {
		if errors.Is(err, errUpstream) {
			return res.(rawResponse), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if ce := engine.FromContext(ctxErr); ce != nil {
				return rawResponse{}, ce
			}
		}
		slog.Debug("apiclient: transport failure",
			slog.String("method", in.method),
			slog.String("path", in.path),
			slog.Any("error", err))
		return rawResponse{}, engine.Transport(fmt.Errorf("%s %s: %w", in.method, in.path, err))
	}
	return res.(rawResponse), nil
}

// serverMessage is the error body shape used across the backend.
type serverMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// check turns a non-2xx response into a classified *engine.Error.
func check(raw rawResponse) error {
	if raw.status >= 200 && raw.status < 300 {
		return nil
	}
	var m serverMessage
	_ = json.Unmarshal(raw.body, &m)
	msg := m.Message
	if msg == "" {
		msg = m.Error
	}
	return engine.Service(raw.status, msg)
}

// decode unmarshals a 2xx body into out. Unknown fields are tolerated:
// the backend adds fields freely and only the typed subset is consumed.
func decode(raw rawResponse, out any) error {
	if len(bytes.TrimSpace(raw.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.body, out); err != nil {
		e := engine.Service(http.StatusBadGateway, "")
		e.Err = fmt.Errorf("decode response: %w", err)
		return e
	}
	return nil
}

// roundTrip runs a call, checks its status and decodes the body into out (if non-nil).
func (c *Client) roundTrip(ctx context.Context, in call, out any) error {
	raw, err := c.do(ctx, in)
	if err != nil {
		return err
	}
	if err := check(raw); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(raw, out)
}
