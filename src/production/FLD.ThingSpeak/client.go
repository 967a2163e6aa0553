package thingspeak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
)

var (
	// ErrCircuitOpen is returned while a channel's breaker rejects calls
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrInvalidField is returned for field numbers outside 1..8
	ErrInvalidField = errors.New("field must be between 1 and 8")
)

// StatusError is returned when ThingSpeak answers with a non-200 status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Endpoint labels used for request accounting
const (
	EndpointFeeds  = "feeds"
	EndpointField  = "field"
	EndpointStatus = "status"
)

// Client reads channel data from the ThingSpeak REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration

	breakerFailures int
	breakerReset    time.Duration
	now             func() time.Time
	observe         func(endpoint, result string)

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAPIKey overrides the read key from config
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithClock sets the time source used by the circuit breakers
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver registers a callback invoked once per HTTP attempt
func WithObserver(fn func(endpoint, result string)) Option {
	return func(c *Client) {
		if fn != nil {
			c.observe = fn
		}
	}
}

// NewClient creates a ThingSpeak client
func NewClient(cfg config.ThingSpeakConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		timeout:         cfg.Timeout,
		maxRetries:      cfg.MaxRetries,
		retryDelay:      cfg.RetryDelay,
		breakerFailures: cfg.BreakerFailures,
		breakerReset:    cfg.BreakerReset,
		now:             time.Now,
		observe:         func(string, string) {},
		breakers:        make(map[string]*CircuitBreaker),
	}
	c.httpClient = &http.Client{Timeout: cfg.Timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFeeds returns the most recent entries of a channel. results <= 0
// leaves the count to the provider default.
func (c *Client) FetchFeeds(ctx context.Context, channelID string, results int) (*ChannelFeed, error) {
	params := url.Values{}
	if results > 0 {
		params.Set("results", strconv.Itoa(results))
	}
	var feed ChannelFeed
	path := fmt.Sprintf("/channels/%s/feeds.json", url.PathEscape(channelID))
	if err := c.get(ctx, channelID, EndpointFeeds, path, params, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// FetchField returns the most recent values of a single field
func (c *Client) FetchField(ctx context.Context, channelID string, field, results int) (*ChannelFeed, error) {
	if field < 1 || field > 8 {
		return nil, ErrInvalidField
	}
	params := url.Values{}
	if results > 0 {
		params.Set("results", strconv.Itoa(results))
	}
	var feed ChannelFeed
	path := fmt.Sprintf("/channels/%s/fields/%d.json", url.PathEscape(channelID), field)
	if err := c.get(ctx, channelID, EndpointField, path, params, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// FetchStatus returns the channel's status updates
func (c *Client) FetchStatus(ctx context.Context, channelID string) (*ChannelFeed, error) {
	var feed ChannelFeed
	path := fmt.Sprintf("/channels/%s/status.json", url.PathEscape(channelID))
	if err := c.get(ctx, channelID, EndpointStatus, path, url.Values{}, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// GetCircuitBreakerStatus returns breaker state per channel for monitoring
func (c *Client) GetCircuitBreakerStatus() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]interface{}, len(c.breakers))
	for channelID, cb := range c.breakers {
		out[channelID] = cb.status()
	}
	return out
}

func (c *Client) breaker(channelID string) *CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[channelID]
	if !ok {
		cb = newCircuitBreaker(c.breakerFailures, c.breakerReset, c.now)
		c.breakers[channelID] = cb
	}
	return cb
}

// get executes a request with exponential backoff, guarded by the
// channel's circuit breaker
func (c *Client) get(ctx context.Context, channelID, endpoint, path string, params url.Values, out interface{}) error {
	cb := c.breaker(channelID)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if !cb.canExecute() {
			c.observe(endpoint, "circuit_open")
			return fmt.Errorf("channel %s: %w", channelID, ErrCircuitOpen)
		}

		attempts++
		err := c.do(ctx, path, params, out)
		if err == nil {
			cb.onSuccess()
			c.observe(endpoint, "ok")
			return nil
		}

		lastErr = err
		cb.onFailure()
		c.observe(endpoint, "error")

		if !retryable(err) || attempt == c.maxRetries {
			break
		}

		delay := time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("channel %s %s failed after %d attempts: %w", channelID, endpoint, attempts, lastErr)
}

func (c *Client) do(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "flood-alert-server")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// retryable reports whether another attempt could succeed. Client errors
// other than rate limiting are permanent.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}
