// Package fetch implements the resilient HTTP client used for all network
// access: fixed browser header profile, cookie jar management, transparent
// gzip decompression, and bounded retry with backoff.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/archive"
	"github.com/stackdown/stackdown/internal/metrics"
)

// Config controls retry behavior.
type Config struct {
	// MaxRetries is the number of additional attempts beyond the first.
	MaxRetries        int
	ConnectRetryDelay time.Duration
	RateLimitDelay    time.Duration
	Timeout           time.Duration
}

// Client issues resilient GET requests. It is the only component permitted
// to mutate the shared cookie jar.
type Client struct {
	httpClient *http.Client
	jar        *Jar
	cfg        Config
	logger     *zap.Logger
}

// New builds a Client around the given jar.
func New(cfg Config, jar *Jar, logger *zap.Logger) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ConnectRetryDelay == 0 {
		cfg.ConnectRetryDelay = 7 * time.Second
	}
	if cfg.RateLimitDelay == 0 {
		cfg.RateLimitDelay = 14 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		jar:        jar,
		cfg:        cfg,
		logger:     logger,
	}
}

// Fetch executes a GET against url, retrying on connection failure and on
// rate limiting. 200 and 403 are both success: some resources legitimately
// gate at 403 and the caller inspects the body itself. Any other status is
// fatal without retry. When every attempt fails the result is a
// MaxRetriesError.
func (c *Client) Fetch(ctx context.Context, url string) (archive.Response, error) {
	attempts := c.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.ObserveFetchRetry()
		}
		// An unbuildable request can never succeed, so it is fatal rather
		// than a retryable connection failure.
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return archive.Response{}, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.do(req)
		if err != nil {
			if ctx.Err() != nil {
				return archive.Response{}, fmt.Errorf("fetch %s: %w", url, ctx.Err())
			}
			var encErr *UnsupportedEncodingError
			if errors.As(err, &encErr) {
				return archive.Response{}, err
			}
			c.logger.Warn("connection failure, will retry",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if !pause(ctx, c.cfg.ConnectRetryDelay) {
				return archive.Response{}, fmt.Errorf("fetch %s: %w", url, ctx.Err())
			}
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusForbidden:
			return resp, nil
		case http.StatusTooManyRequests:
			// Rate limited: drop the whole session and try again fresh.
			c.jar.Clear()
			c.logger.Warn("rate limited, clearing cookie jar",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
			)
			if !pause(ctx, c.cfg.RateLimitDelay) {
				return archive.Response{}, fmt.Errorf("fetch %s: %w", url, ctx.Err())
			}
			continue
		default:
			c.logger.Error("unexpected status",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
				zap.String("body", truncate(resp.Body, 512)),
			)
			return archive.Response{}, &UnexpectedStatusError{URL: url, StatusCode: resp.StatusCode}
		}
	}
	return archive.Response{}, &MaxRetriesError{URL: url}
}

func (c *Client) do(req *http.Request) (archive.Response, error) {
	req.Header = browserHeaders()
	if cookie := c.jar.Header(req.URL.Hostname()); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return archive.Response{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.jar.SetFromResponse(resp.Request.URL.Hostname(), resp.Header.Values("Set-Cookie"))

	body, err := decodeBody(resp)
	if err != nil {
		return archive.Response{}, err
	}
	return archive.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       body,
	}, nil
}

// decodeBody reads the response body, decompressing gzip transparently.
// Any other declared encoding is fatal.
func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	switch enc := resp.Header.Get("Content-Encoding"); enc {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		return "", &UnsupportedEncodingError{Encoding: enc}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// pause blocks for delay or until the context finishes; it reports whether
// the full delay elapsed.
func pause(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
