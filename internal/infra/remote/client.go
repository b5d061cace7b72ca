// Package remote implements domain.RemoteStore over the document API that
// `kinly serve` exposes, so a CLI process syncs to a running daemon the
// same way an engine inside the daemon syncs to SQLite.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/healing"
)

// DefaultPollInterval is how often OnChange re-reads a watched key.
const DefaultPollInterval = 5 * time.Second

// Client talks to /api/docs on a kinly daemon.
type Client struct {
	base    string
	http    *http.Client
	poll    time.Duration
	logger  *log.Logger
	breaker *healing.Breaker
}

var _ domain.RemoteStore = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithPollInterval sets the OnChange polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithLogger sets the logger used by pollers.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *healing.Breaker) Option { return func(c *Client) { c.breaker = b } }

// New creates a client for the daemon at baseURL (e.g. "http://127.0.0.1:11450").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		poll:    DefaultPollInterval,
		logger:  log.Default(),
		breaker: healing.NewBreaker("remote", healing.DefaultConfig()),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// record mirrors the daemon's document response body.
type record struct {
	Key       string          `json:"key"`
	Data      domain.Document `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Get implements domain.RemoteStore.
func (c *Client) Get(ctx context.Context, key string) (domain.Document, error) {
	rec, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (c *Client) get(ctx context.Context, key string) (*record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docURL(key, nil), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, key)
}

// Set implements domain.RemoteStore.
func (c *Client) Set(ctx context.Context, key string, partial domain.Document, merge bool) error {
	body, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	q := url.Values{}
	if !merge {
		q.Set("merge", "false")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.docURL(key, q), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req, key)
	return err
}

// Breaker returns the circuit breaker guarding this client.
func (c *Client) Breaker() *healing.Breaker { return c.breaker }

// errRejected marks 4xx responses, which say nothing about store health.
var errRejected = errors.New("rejected")

// do sends req through the breaker. Only transport errors and 5xx
// responses count as store failures.
func (c *Client) do(req *http.Request, key string) (*record, error) {
	var rec *record
	err := c.breaker.Do(func() error {
		var err error
		rec, err = c.roundTrip(req, key)
		return err
	}, isStoreFailure)
	return rec, err
}

func (c *Client) roundTrip(req *http.Request, key string) (*record, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, key, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, key)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: %w: status %d: %s", req.Method, key, errRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: status %d: %s", req.Method, key, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var rec record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, key, err)
	}
	return &rec, nil
}

func (c *Client) docURL(key string, q url.Values) string {
	u := c.base + "/api/docs/" + key
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// ─── Change polling ─────────────────────────────────────────────────────────

// OnChange implements domain.RemoteStore by polling key and calling fn
// whenever its updatedAt moves. The state at subscription time is the
// baseline and is not reported.
func (c *Client) OnChange(key string, fn func(domain.Document)) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		var last time.Time
		if rec, err := c.get(ctx, key); err == nil {
			last = rec.UpdatedAt
		}

		ticker := time.NewTicker(c.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			rec, err := c.get(ctx, key)
			if err != nil {
				if ctx.Err() == nil && !isNotFound(err) {
					c.logger.Printf("[remote] poll %s: %v", key, err)
				}
				continue
			}
			if rec.UpdatedAt.Equal(last) {
				continue
			}
			last = rec.UpdatedAt
			fn(rec.Data)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrDocumentNotFound) }

func isStoreFailure(err error) bool {
	switch {
	case isNotFound(err), errors.Is(err, errRejected), errors.Is(err, domain.ErrInvalidDocument):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
