// Package practicum talks to the homework review API.
package practicum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	logx "homeworkbot/pkg/logx"
)

const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

var (
	ErrUpstreamUnreachable = errors.New("review API unreachable")
	ErrUnexpectedStatus    = errors.New("review API returned unexpected status")
	ErrUndecodableBody     = errors.New("review API body is not valid JSON")
)

// StatusError carries the HTTP status of a non-200 answer.
// It unwraps to ErrUnexpectedStatus.
//
// Error() only names the status code: the text ends up in a deduplicated
// chat report, so it must stay the same while the condition persists.
// Body is kept for logs.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds one request; 0 means 30s.
	Timeout time.Duration
}

// Client fetches homework state changes. It never retries: the poll cadence does.
type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
	now  func() time.Time
}

type Option func(*Client)

// WithHTTPClient overrides the transport (tests, proxies).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithClock overrides the clock used when no cursor is given.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func New(cfg Config, log logx.Logger, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{cfg: cfg, log: log, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	return c
}

// Fetch returns the decoded answer for all changes since the given unix time.
// since <= 0 means "now".
func (c *Client) Fetch(ctx context.Context, since int64) (any, error) {
	if since <= 0 {
		since = c.now().Unix()
	}
	c.log.Info("requesting homework statuses", logx.Int64("from_date", since))

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		c.log.Error("invalid endpoint", logx.String("endpoint", c.cfg.Endpoint), logx.Err(err))
		return nil, fmt.Errorf("%w: invalid endpoint: %v", ErrUpstreamUnreachable, err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		c.log.Error("build request failed", logx.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("review API unreachable", logx.String("endpoint", c.cfg.Endpoint), logx.Err(err))
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnreachable, transportCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
		c.log.Error("review API answered with non-200 status",
			logx.Int("status", resp.StatusCode),
			logx.String("body", serr.Body),
			logx.Duration("took", time.Since(start)),
		)
		return nil, serr
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		c.log.Error("review API body is not JSON", logx.Err(err))
		return nil, ErrUndecodableBody
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		c.log.Error("review API body has trailing data")
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrUndecodableBody)
	}

	c.log.Debug("homework statuses received", logx.Duration("took", time.Since(start)))
	return out, nil
}

// transportCause reduces a client error to a stable summary. The raw
// *url.Error carries local ports and addresses that change on every attempt.
func transportCause(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &dnsErr):
		return "dns lookup failed for " + dnsErr.Name
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "connection reset"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "request timed out"
	default:
		return "request failed"
	}
}
