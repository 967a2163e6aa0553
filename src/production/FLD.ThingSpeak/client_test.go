package thingspeak

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
)

const feedBody = `{
  "channel": {"id": 42, "name": "river", "latitude": "6.9271", "longitude": "79.8612", "last_entry_id": 2},
  "feeds": [
    {"created_at": "2024-05-01T10:00:00Z", "entry_id": 1, "field1": "12.5", "field2": null, "field5": "0"},
    {"created_at": "2024-05-01T10:00:20Z", "entry_id": 2, "field1": 13, "field5": "1", "status": "ok"}
  ]
}`

func testConfig(baseURL string) config.ThingSpeakConfig {
	return config.ThingSpeakConfig{
		BaseURL:         baseURL,
		APIKey:          "read-key",
		Results:         10,
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryDelay:      time.Millisecond,
		BreakerFailures: 3,
		BreakerReset:    time.Minute,
	}
}

func TestFetchFeedsDecodesEntries(t *testing.T) {
	var gotPath, gotKey, gotResults string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		gotResults = r.URL.Query().Get("results")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	feed, err := c.FetchFeeds(context.Background(), "42", 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/channels/42/feeds.json" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "read-key" || gotResults != "10" {
		t.Fatalf("unexpected query api_key=%q results=%q", gotKey, gotResults)
	}
	if len(feed.Feeds) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(feed.Feeds))
	}

	first := feed.Feeds[0]
	if !first.Field1.Valid() || first.Field1.String() != "12.5" {
		t.Fatalf("expected field1 12.5, got %q", first.Field1.String())
	}
	if first.Field2.Valid() {
		t.Fatalf("expected null field2 to be absent")
	}
	if first.Field3.Valid() {
		t.Fatalf("expected missing field3 to be absent")
	}

	latest, ok := feed.Latest()
	if !ok || latest.EntryID != 2 {
		t.Fatalf("expected latest entry 2, got %d", latest.EntryID)
	}
	if latest.Field1.String() != "13" {
		t.Fatalf("expected numeric field1 kept as text, got %q", latest.Field1.String())
	}
	if latest.Field(5).String() != "1" {
		t.Fatalf("expected field5 1, got %q", latest.Field(5).String())
	}
}

func TestFetchFieldRejectsBadField(t *testing.T) {
	c := NewClient(testConfig("http://127.0.0.1:0"))
	if _, err := c.FetchField(context.Background(), "42", 9, 1); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestFetchFieldPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"channel":{"id":42},"feeds":[{"created_at":"2024-05-01T10:00:00Z","entry_id":7,"field5":"1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	feed, err := c.FetchField(context.Background(), "42", 5, 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/channels/42/fields/5.json" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if got := feed.Feeds[0].Field5.String(); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.FetchFeeds(context.Background(), "42", 2); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.FetchFeeds(context.Background(), "42", 2)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`-1`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	c := NewClient(cfg)
	_, err := c.FetchFeeds(context.Background(), "42", 2)
	if err == nil || !strings.Contains(err.Error(), "decode payload") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestCircuitBreakerIsPerChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/channels/bad/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	c := NewClient(cfg, WithClock(clock))

	for i := 0; i < 3; i++ {
		if _, err := c.FetchFeeds(context.Background(), "bad", 1); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}
	if _, err := c.FetchFeeds(context.Background(), "bad", 1); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if _, err := c.FetchFeeds(context.Background(), "good", 1); err != nil {
		t.Fatalf("expected healthy channel to be unaffected, got %v", err)
	}

	status := c.GetCircuitBreakerStatus()
	bad, ok := status["bad"].(map[string]interface{})
	if !ok || bad["state"] != "open" {
		t.Fatalf("expected bad channel open, got %v", status["bad"])
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	if _, err := c.FetchFeeds(context.Background(), "bad", 1); errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected half-open probe after reset timeout")
	}
}

func TestObserverCountsAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	var mu sync.Mutex
	seen := map[string]int{}
	c := NewClient(testConfig(srv.URL), WithObserver(func(endpoint, result string) {
		mu.Lock()
		seen[endpoint+"/"+result]++
		mu.Unlock()
	}))
	if _, err := c.FetchStatus(context.Background(), "42"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if seen["status/ok"] != 1 {
		t.Fatalf("expected one status/ok observation, got %v", seen)
	}
}
