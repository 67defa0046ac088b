package api

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

	"github.com/rs/zerolog/log"
	"github.com/tgienger/phub/internal/apperr"
)

// SessionHeader carries the session token on every request
const SessionHeader = "X-Session-ID"

// DefaultEndpoint is used when no endpoint is configured
const DefaultEndpoint = "http://localhost:8000/graphql/"

// authRequired is the server's message for calls made without a valid session
const authRequired = "Authentication required"

// TokenSource yields the current session token, or "" when anonymous
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client sends GraphQL operations to a single endpoint
type Client struct {
	endpoint string
	http     *http.Client
	tokens   TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout on the transport
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client. tokens may be nil for a client that never authenticates.
func New(endpoint string, tokens TokenSource, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		tokens:   tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are sent to
func (c *Client) Endpoint() string { return c.endpoint }

type request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts one operation and decodes response.data into out
func (c *Client) do(ctx context.Context, op, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(request{Query: query, Variables: vars, OperationName: op})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.NewTransportError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set(SessionHeader, token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Str("op", op).Err(err).Msg("request failed")
		return apperr.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.NewTransportError(op, err)
	}
	log.Debug().Str("op", op).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("request done")

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperr.NewAuthError(authRequired)
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return apperr.NewTransportError(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		return apperr.NewServerError(op, "malformed response").WithContext("cause", err.Error())
	}

	if len(decoded.Errors) > 0 {
		msgs := make([]string, len(decoded.Errors))
		for i, e := range decoded.Errors {
			msgs[i] = e.Message
		}
		msg := strings.Join(msgs, "; ")
		if msg == authRequired {
			return apperr.NewAuthError(msg)
		}
		return apperr.NewServerError(op, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return apperr.NewServerError(op, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return apperr.NewServerError(op, "malformed response").WithContext("cause", err.Error())
	}
	return nil
}

// payload is the {success, error} envelope every mutation returns
type payload struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// check converts a success:false payload into an AppError
func (p payload) check(op, fallback string) error {
	if p.Success {
		return nil
	}
	msg := fallback
	if p.Error != nil && *p.Error != "" {
		msg = *p.Error
	}
	if msg == authRequired {
		return apperr.NewAuthError(msg)
	}
	return apperr.NewMutationError(op, msg)
}

// entity rejects a successful payload that carries no entity
func entity[T any](op string, v *T) (*T, error) {
	if v == nil {
		return nil, apperr.NewServerError(op, "malformed response")
	}
	return v, nil
}

// IsCanceled reports whether err came from a canceled or expired context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
