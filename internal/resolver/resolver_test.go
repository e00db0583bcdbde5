// internal/resolver/resolver_test.go
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/griogair/embedfeed/internal/utils"
)

func testConfig() Config {
	return Config{
		RetryAttempts: 3,
		RetryDelay:    5 * time.Millisecond,
		Timeout:       2 * time.Second,
		RateLimit:     1000,
		RateBurst:     100,
	}
}

func testLogger() utils.Logger {
	return utils.NewLoggerWithLevel(utils.ErrorLevel)
}

func TestResolveSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script>var TralbumData = { "album_id": 123456789 };</script>`)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	res, err := r.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "album_123456789" {
		t.Errorf("expected album_123456789, got %q", res.ID)
	}
}

func TestResolveSendsRealisticUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `<script>var TralbumData = { "album_id": 123456789 };</script>`)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	if _, err := r.Resolve(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotUA != defaultUserAgent {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}
}

func TestResolve404IsTerminal(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	_, err := r.Resolve(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if utils.CodeOf(err) != utils.ErrCodeFetchTerminal {
		t.Errorf("expected FETCH_TERMINAL, got %q", utils.CodeOf(err))
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("404 must not be retried, got %d requests", n)
	}
}

func TestResolveRetriesServerErrors(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<script>var TralbumData = { "album_id": 123456789 };</script>`)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	res, err := r.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if res.ID != "album_123456789" {
		t.Errorf("unexpected id: %q", res.ID)
	}
	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Errorf("expected 3 requests, got %d", n)
	}
}

func TestResolveRetriesRateLimiting(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `<script>var TralbumData = { "album_id": 123456789 };</script>`)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	res, err := r.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("429 must stay within the retry budget, got %v", err)
	}
	if res.ID != "album_123456789" {
		t.Errorf("unexpected id: %q", res.ID)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("expected 2 requests, got %d", n)
	}
}

func TestResolveRetriesForbidden(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	_, err := r.Resolve(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if utils.CodeOf(err) != utils.ErrCodeFetchExhausted {
		t.Errorf("expected FETCH_EXHAUSTED, got %q", utils.CodeOf(err))
	}
	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Errorf("non-404 statuses must consume the whole budget, got %d requests", n)
	}
}

func TestResolveExhaustsRetryBudget(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	_, err := r.Resolve(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if utils.CodeOf(err) != utils.ErrCodeFetchExhausted {
		t.Errorf("expected FETCH_EXHAUSTED, got %q", utils.CodeOf(err))
	}
	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Errorf("expected exactly the retry budget of 3 requests, got %d", n)
	}
}

func TestResolveCascadeMissConsumesAttempts(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		fmt.Fprint(w, `<html>nothing embeddable</html>`)
	}))
	defer server.Close()

	r := New(testConfig(), testLogger())
	_, err := r.Resolve(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if utils.CodeOf(err) != utils.ErrCodeFetchExhausted {
		t.Errorf("expected FETCH_EXHAUSTED, got %q", utils.CodeOf(err))
	}
	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Errorf("cascade misses should re-fetch until the budget runs out, got %d requests", n)
	}
}

func TestResolveTransportErrorRetries(t *testing.T) {
	// point at a closed server so every attempt fails at the connection level
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	r := New(testConfig(), testLogger())
	_, err := r.Resolve(context.Background(), url)
	if err == nil {
		t.Fatal("expected error")
	}
	if utils.CodeOf(err) != utils.ErrCodeFetchExhausted {
		t.Errorf("expected FETCH_EXHAUSTED after transport errors, got %q", utils.CodeOf(err))
	}
}

func TestResolveHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RetryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	r := New(cfg, testLogger())
	go func() {
		_, err := r.Resolve(ctx, server.URL)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resolve did not return after cancellation")
	}
}
