package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(cfg Config) (*Client, *Jar) {
	jar := NewJar(&fakeClock{now: time.Now()})
	if cfg.ConnectRetryDelay == 0 {
		cfg.ConnectRetryDelay = time.Millisecond
	}
	if cfg.RateLimitDelay == 0 {
		cfg.RateLimitDelay = time.Millisecond
	}
	return New(cfg, jar, zap.NewNop()), jar
}

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client, _ := newTestClient(Config{MaxRetries: 2})
	resp, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", resp.Body)
}

func TestFetchDecompressesGzip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("compressed payload"))
		_ = gz.Close()
	}))
	defer srv.Close()

	client, _ := newTestClient(Config{MaxRetries: 2})
	resp, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "compressed payload", resp.Body)
}

func TestFetchRejectsUnknownEncoding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	client, _ := newTestClient(Config{MaxRetries: 2})
	_, err := client.Fetch(context.Background(), srv.URL)
	var encErr *UnsupportedEncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "br", encErr.Encoding)
}

func TestFetchTreats403AsSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("gated body"))
	}))
	defer srv.Close()

	client, _ := newTestClient(Config{MaxRetries: 2})
	resp, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "gated body", resp.Body)
}

func TestFetchRateLimitClearsJarAndRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var jarLenOnRetry atomic.Int32
	client, jar := newTestClient(Config{MaxRetries: 2})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Add("Set-Cookie", "block=1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		jarLenOnRetry.Store(int32(jar.Len()))
		_, _ = w.Write([]byte("finally"))
	}))
	defer srv.Close()

	resp, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Body)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(0), jarLenOnRetry.Load(), "jar must be cleared before the retry")
}

func TestFetchUnexpectedStatusIsFatal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, _ := newTestClient(Config{MaxRetries: 2})
	_, err := client.Fetch(context.Background(), srv.URL)
	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "unexpected status must not be retried")
}

func TestFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // every attempt now fails at the connection level

	client, _ := newTestClient(Config{MaxRetries: 1})
	_, err := client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetries))

	var mrErr *MaxRetriesError
	require.ErrorAs(t, err, &mrErr)
	assert.Equal(t, srv.URL, mrErr.URL)
}

func TestFetchBadURLFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(Config{MaxRetries: 3})
	start := time.Now()
	_, err := client.Fetch(context.Background(), "://missing-scheme")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMaxRetries), "an unbuildable request must fail immediately, not exhaust retries")
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, _ := newTestClient(Config{MaxRetries: 5})
	_, err := client.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchSendsStoredCookies(t *testing.T) {
	t.Parallel()

	var gotCookie atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie.Store(r.Header.Get("Cookie"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client, jar := newTestClient(Config{MaxRetries: 0})
	jar.SetFromResponse("127.0.0.1", []string{"session=abc"})

	_, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "session=abc", gotCookie.Load())
}
