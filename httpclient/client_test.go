package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wyfcoding/tforest/breaker"
	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/metrics"
)

func testConfig() config.HTTPClientConfig {
	return config.HTTPClientConfig{
		Timeout:         time.Second,
		RetryInitial:    time.Millisecond,
		RetryMaxBackoff: 5 * time.Millisecond,
		RetryMax:        3,
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	m := metrics.NewMetrics("test")
	c := NewClient(testConfig(), nil, m)
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "a,b\n1,2\n" {
		t.Fatalf("unexpected body %q", body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	if n := testutil.CollectAndCount(c.requestsTotal); n != 2 {
		t.Fatalf("expected 2 status series, got %d", n)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), nil, nil)
	_, err := c.Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestGetBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryMax = 0
	cfg.Breaker = config.CircuitBreakerConfig{Enabled: true, Timeout: time.Minute, MaxRequests: 1}
	c := NewClient(cfg, nil, nil)

	var err error
	for range 6 {
		_, err = c.Get(context.Background(), srv.URL)
	}
	if !errors.Is(err, breaker.ErrServiceUnavailable) {
		t.Fatalf("expected breaker to be open, got %v", err)
	}
}
