package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/AbrahamRP97/neighnet-go/internal/config"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
)

// Endpoints groups the per-domain base URLs the client talks to.
type Endpoints struct {
	Auth       string
	Posts      string
	Vigilancia string
	Visitantes string
	Uploads    string
	Admin      string
	Passes     string
}

// EndpointsFromConfig maps the loaded configuration onto the endpoint set.
func EndpointsFromConfig(cfg config.Config) Endpoints {
	return Endpoints{
		Auth:       cfg.AuthBaseURL,
		Posts:      cfg.PostsBaseURL,
		Vigilancia: cfg.VigilanciaBaseURL,
		Visitantes: cfg.VisitantesBaseURL,
		Uploads:    cfg.UploadsBaseURL,
		Admin:      cfg.AdminBaseURL,
		Passes:     cfg.PassesBaseURL,
	}
}

// TokenSource supplies the current bearer credential, or an empty string when
// no session exists.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to the TokenSource interface.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client wraps an http.Client with bearer injection and JSON plumbing. It
// deliberately adds no retry, backoff, or timeout policy; cancellation comes
// from the caller's context.
type Client struct {
	http   *http.Client
	tokens TokenSource
}

// New constructs a Client. A nil httpClient falls back to http.DefaultClient
// and a nil tokens source issues unauthenticated requests.
func New(httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, tokens: tokens}
}

// Error is a non-2xx response surfaced to callers, carrying the server's
// "error" field when one was present. Body keeps the raw response so flows
// with structured failure payloads (login's phone-verify branch) can decode
// them.
type Error struct {
	Status  int
	Message string
	Body    []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// IsAuthError reports whether err is a 401 or 403 response, which the client
// treats as "session invalid" rather than an ordinary failure.
func IsAuthError(err error) bool {
	var apiErr *Error
	if !asError(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// StatusOf returns the HTTP status of an api error, or 0 for other errors.
func StatusOf(err error) int {
	var apiErr *Error
	if !asError(err, &apiErr) {
		return 0
	}
	return apiErr.Status
}

// DoJSON issues a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil. Raw response bytes for non-OK
// statuses are inspected for a server-provided error message.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(ctx, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(ctx context.Context, resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logging.FromContext(ctx).Warn("read error body", "status", resp.StatusCode, "error", err)
		return apiErr
	}
	apiErr.Body = raw

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			apiErr.Message = payload.Error
		} else if payload.Message != "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPost, url, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, url string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPut, url, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, url string) error {
	return c.DoJSON(ctx, http.MethodDelete, url, nil, nil)
}
