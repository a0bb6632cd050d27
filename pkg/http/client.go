package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ClientOption configures Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL    string
	timeout    time.Duration
	retries    int
	retryWait  time.Duration
	rps        float64
	burst      int
	headers    map[string]string
	authBearer string
}

// Client is a JSON HTTP client with client-side rate limiting and retry on 5xx and 429.
type Client struct {
	r       *resty.Client
	limiter *rate.Limiter
}

func NewClient(opts ...ClientOption) *Client {
	cfg := &clientConfig{
		timeout:   30 * time.Second,
		retries:   2,
		retryWait: 500 * time.Millisecond,
		burst:     1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := resty.New().
		SetBaseURL(cfg.baseURL).
		SetTimeout(cfg.timeout).
		SetRetryCount(cfg.retries).
		SetRetryWaitTime(cfg.retryWait).
		SetRetryMaxWaitTime(4 * cfg.retryWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == 429 || code >= 500
		})
	for k, v := range cfg.headers {
		r.SetHeader(k, v)
	}
	if cfg.authBearer != "" {
		r.SetAuthToken(cfg.authBearer)
	}

	limit := rate.Inf
	if cfg.rps > 0 {
		limit = rate.Limit(cfg.rps)
	}
	return &Client{r: r, limiter: rate.NewLimiter(limit, cfg.burst)}
}

// PostJSON sends body as JSON and decodes a 2xx response into dest.
func (c *Client) PostJSON(ctx context.Context, path string, body, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(dest).
		Post(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) { c.baseURL = url }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = timeout }
}

// WithRetry sets the retry count and the initial wait between attempts.
func WithRetry(count int, wait time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retries = count
		c.retryWait = wait
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *clientConfig) {
		c.rps = rps
		if burst > 0 {
			c.burst = burst
		}
	}
}

func WithHeader(key, value string) ClientOption {
	return func(c *clientConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

func WithBearerToken(token string) ClientOption {
	return func(c *clientConfig) { c.authBearer = token }
}
