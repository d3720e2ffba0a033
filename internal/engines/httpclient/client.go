// Package httpclient is the JSON REST client shared by the engine admin
// clients. Requests are retried on connection errors, 429 and 5xx responses.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"projector/pkg/logging"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultRetryMax is the number of retries after the first attempt.
	DefaultRetryMax = 3

	// MaxResponseSize caps how much of a response body is read (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "projector/1.0"
)

// Config describes one upstream API.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// Token is sent as a bearer token when no username is set.
	Token    string
	Timeout  time.Duration
	RetryMax int
	// Subsystem labels the log lines of this client.
	Subsystem string
	// Headers are added to every request.
	Headers map[string]string
}

// Client issues JSON requests against a base URL.
type Client struct {
	base      *url.URL
	http      *retryablehttp.Client
	username  string
	password  string
	token     string
	subsystem string
	headers   map[string]string
}

// New creates a client. BaseURL must be an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retryMax := cfg.RetryMax
	if retryMax < 0 {
		retryMax = DefaultRetryMax
	}
	subsystem := cfg.Subsystem
	if subsystem == "" {
		subsystem = "HTTPClient"
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = leveledLogger{subsystem: subsystem}
	// Hand the last response back instead of a generic "giving up" error so
	// callers can inspect the status code.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		base:      base,
		http:      rc,
		username:  cfg.Username,
		password:  cfg.Password,
		token:     cfg.Token,
		subsystem: subsystem,
		headers:   cfg.Headers,
	}, nil
}

// URL resolves path against the base URL. path is expected to be escaped
// already, segment by segment.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	raw := c.base.EscapedPath() + "/" + strings.TrimLeft(path, "/")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		u.Path = unescaped
		u.RawPath = raw
	} else {
		u.Path = raw
		u.RawPath = ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends body as JSON (when non-nil) and decodes the response into out
// (when non-nil). Non-2xx responses yield an *HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.URL(path, query)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, target, err)
		}
	}

	var raw any
	if payload != nil {
		raw = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, raw)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	switch {
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s %s: %w", method, target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return fmt.Errorf("response of %s %s exceeds %d bytes", method, target, MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewHTTPError(resp.StatusCode, method, target, errorMessage(resp.Status, data))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, target, err)
	}
	return nil
}

// Get is a shorthand for Do with GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Put is a shorthand for Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Post is a shorthand for Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Delete is a shorthand for Do with DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func errorMessage(status string, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}

// leveledLogger routes retryablehttp's logs to the package logger. Request
// lines are debug noise; retries are worth a warning.
type leveledLogger struct {
	subsystem string
}

func (l leveledLogger) Error(msg string, kv ...interface{}) {
	logging.Error(l.subsystem, nil, "%s %s", msg, formatKV(kv))
}

func (l leveledLogger) Warn(msg string, kv ...interface{}) {
	logging.Warn(l.subsystem, "%s %s", msg, formatKV(kv))
}

func (l leveledLogger) Info(msg string, kv ...interface{}) {
	logging.Debug(l.subsystem, "%s %s", msg, formatKV(kv))
}

func (l leveledLogger) Debug(msg string, kv ...interface{}) {
	logging.Debug(l.subsystem, "%s %s", msg, formatKV(kv))
}

func formatKV(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
