// Package calendarapi talks to the external calendar service used for
// booking events and registration reminders. Events are keyed by a
// stable idempotency key: upserting the same key twice yields one event.
package calendarapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/atomic"
)

// Event is the payload pushed to the calendar service.
type Event struct {
	Key         string    `json:"key"`
	CalendarID  string    `json:"calendar_id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
}

// PermanentError marks a failure that retrying cannot fix, such as
// revoked calendar access. The caller should degrade instead of retry.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("calendar service rejected request (status %d): %s", e.StatusCode, e.Body)
}

// IsPermanent reports whether err (or anything it wraps) is permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ClientOptions configures the calendar client.
type ClientOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Retries inside a single push attempt; the sync scheduler adds its
	// own longer backoff across attempts.
	RetryCount int
}

// Client is a thin resty-based client for the calendar service.
type Client struct {
	http    *resty.Client
	healthy *atomic.Bool
}

// NewClient creates a calendar client. Timeouts are short by design: the
// scheduler retries later rather than holding a slot open.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := opts.RetryCount
	if retries < 0 {
		retries = 0
	}

	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests
		})
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	return &Client{http: rc, healthy: atomic.NewBool(true)}
}

// Healthy reports whether the last push round-trip succeeded. Read by
// the scheduler for logging and metrics only; it never gates retries.
func (c *Client) Healthy() bool {
	return c.healthy.Load()
}

// Upsert creates or replaces the event identified by ev.Key.
func (c *Client) Upsert(ctx context.Context, ev Event) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ev).
		Put(fmt.Sprintf("/calendars/%s/events/%s", ev.CalendarID, ev.Key))
	return c.finish(resp, err)
}

// Retract removes the event identified by key. A 404 counts as success:
// the desired end state (no event) already holds.
func (c *Client) Retract(ctx context.Context, key, calendarID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/calendars/%s/events/%s", calendarID, key))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		c.healthy.Store(true)
		return nil
	}
	return c.finish(resp, err)
}

func (c *Client) finish(resp *resty.Response, err error) error {
	if err != nil {
		c.healthy.Store(false)
		return fmt.Errorf("calendar service unreachable: %w", err)
	}
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		c.healthy.Store(true)
		return nil
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		c.healthy.Store(false)
		return fmt.Errorf("calendar service transient failure (status %d)", code)
	default:
		// 4xx other than timeout/throttle: the request itself is bad or
		// access is gone. Retrying cannot help.
		c.healthy.Store(false)
		return &PermanentError{StatusCode: code, Body: string(resp.Body())}
	}
}
