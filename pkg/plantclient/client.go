// Package plantclient talks to the plant journal API. It owns the bearer
// session, retries transient failures with exponential backoff and reports
// slow cold starts of the hosted backend.
package plantclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxResponseBytes  = 8 << 20
	idempotencyHeader = "Idempotency-Key"
)

// Config controls timeouts and the retry budget of a Client.
type Config struct {
	BaseURL string
	// Timeout bounds a single attempt, not the whole call.
	Timeout time.Duration
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts        int
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	SlowStartThreshold time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.SlowStartThreshold <= 0 {
		c.SlowStartThreshold = 3 * time.Second
	}
	return c
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// OnUnauthorized registers a hook run after any 401, once the session is cleared.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// OnSlowStart registers a hook run at most once, when the first request of
// the client is still pending after Config.SlowStartThreshold.
func OnSlowStart(fn func()) Option {
	return func(c *Client) { c.onSlowStart = fn }
}

type Client struct {
	cfg            Config
	base           string
	http           *http.Client
	session        Session
	log            zerolog.Logger
	onUnauthorized func()
	onSlowStart    func()
	started        atomic.Bool
	newKey         func() string
}

func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("plantclient: invalid base URL %q", cfg.BaseURL)
	}
	c := &Client{
		cfg:     cfg,
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		session: NewMemorySession(),
		log:     zerolog.Nop(),
		newKey:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the session the client reads its token from.
func (c *Client) Session() Session {
	return c.session
}

type call struct {
	method      string
	path        string
	body        []byte
	contentType string
	header      map[string]string
	retry       bool
}

// transportError is a failed attempt that never produced a response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, req call, out interface{}) error {
	stop := c.watchColdStart()
	defer stop()

	var body []byte
	op := func() error {
		data, err := c.send(ctx, req)
		if err != nil {
			return err
		}
		body = data
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Str("method", req.method).Str("path", req.path).Dur("wait", wait).Msg("retrying request")
	}
	if err := backoff.RetryNotify(op, c.policy(ctx, req.retry), notify); err != nil {
		return c.fail(err)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("plantclient: decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

// policy builds a fresh backoff per call so concurrent calls never share timers.
func (c *Client) policy(ctx context.Context, retry bool) backoff.BackOff {
	if !retry || c.cfg.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
}

// send performs one attempt. Errors wrapped in backoff.Permanent stop the retry loop.
func (c *Client) send(ctx context.Context, req call) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var rd io.Reader
	if req.body != nil {
		rd = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, c.base+req.path, rd)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}
	if token := c.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, &transportError{err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, &transportError{err: err}
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return data, nil
	}

	apiErr := &APIError{StatusCode: res.StatusCode, Message: errorMessage(res.StatusCode, data)}
	if apiErr.temporary() {
		return nil, apiErr
	}
	// 409 on a keyed create means the first attempt is still running; the
	// next attempt replays its result.
	if res.StatusCode == http.StatusConflict && req.header[idempotencyHeader] != "" {
		return nil, apiErr
	}
	return nil, backoff.Permanent(apiErr)
}

func (c *Client) fail(err error) error {
	if errors.Is(err, ErrUnauthorized) {
		if cErr := c.session.Clear(); cErr != nil {
			c.log.Warn().Err(cErr).Msg("failed to clear session")
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return err
	}
	var tErr *transportError
	if errors.As(err, &tErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, tErr.err)
	}
	return err
}

func (c *Client) watchColdStart() func() {
	if !c.started.CompareAndSwap(false, true) || c.onSlowStart == nil {
		return func() {}
	}
	t := time.AfterFunc(c.cfg.SlowStartThreshold, c.onSlowStart)
	return func() { t.Stop() }
}

func errorMessage(status int, body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return http.StatusText(status)
}
