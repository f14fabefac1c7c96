// Package tiingo downloads price bars and fundamentals from the Tiingo
// REST API.
package tiingo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/internal/metrics"
)

// DefaultURL is Tiingo's API endpoint.
const DefaultURL = "https://api.tiingo.com"

// Client represents a Tiingo API client
type Client struct {
	BaseURL    string
	Token      string
	HTTP       *http.Client
	MaxRetries int
	// InitialInterval is the first retry delay; later delays grow
	// exponentially.
	InitialInterval time.Duration

	Log     *logger.Logger
	Metrics *metrics.Metrics
}

// New builds a client from the tiingo section of the configuration.
func New(cfg config.TiingoConfig, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	timeout, err := cfg.ParseTimeout()
	if err != nil {
		return nil, fmt.Errorf("tiingo timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultURL
	}
	return &Client{
		BaseURL:         base,
		Token:           cfg.Key(),
		HTTP:            &http.Client{Timeout: timeout},
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: time.Second,
		Log:             log,
		Metrics:         m,
	}, nil
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tiingo http %d: %s", e.Status, e.Body)
}

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// get fetches path with query q and decodes the JSON body into T. Transport
// errors, 429 and 5xx are retried with exponential backoff; other 4xx fail
// at once.
func get[T any](ctx context.Context, c *Client, path string, q url.Values) (T, error) {
	var zero T
	if c.Token == "" {
		return zero, fmt.Errorf("tiingo: missing token")
	}
	if c.BaseURL == "" {
		return zero, fmt.Errorf("tiingo: missing base url")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return zero, err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = q.Encode()

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	op := func() (T, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return zero, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Token "+c.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return zero, backoff.Permanent(ctx.Err())
			}
			return zero, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			herr := &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			if !retryable(resp.StatusCode) {
				return zero, backoff.Permanent(herr)
			}
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				return zero, fmt.Errorf("%w: %w", herr, backoff.RetryAfter(secs))
			}
			return zero, herr
		}

		var out T
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return zero, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	notify := func(err error, wait time.Duration) {
		if c.Metrics != nil {
			c.Metrics.FetchRetries.Inc()
		}
		if c.Log != nil {
			c.Log.Warn("tiingo request failed, retrying",
				logger.String("path", path),
				logger.Duration("wait", wait),
				logger.Err(err))
		}
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.MaxRetries)+1),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) {
			return zero, herr
		}
		return zero, fmt.Errorf("tiingo %s: %w", path, err)
	}
	return out, nil
}
