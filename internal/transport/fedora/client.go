// Package fedora is a client for the Fedora Commons 3.x REST API and its resource index.
package fedora

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/logger"
	"github.com/coloradocollege/digitalcc/internal/metrics"
)

const (
	// DefaultTimeout bounds a single request, body included.
	DefaultTimeout = 30 * time.Second
	// DefaultRetryDelay is the first backoff step; it doubles per attempt.
	DefaultRetryDelay = 200 * time.Millisecond
	maxRetryWait      = 30 * time.Second
	maxErrorBody      = 4096
)

// Config holds the object store connection settings.
type Config struct {
	// RestURL is the objects endpoint, e.g. http://host:8080/fedora/objects/
	RestURL string
	// RIURL is the resource index endpoint, e.g. http://host:8080/fedora/risearch
	RIURL    string
	Username string
	Password string
	Timeout  time.Duration
	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryDelay        time.Duration
	HTTPClient        *http.Client
}

// Client talks to one Fedora repository. Safe for concurrent use.
type Client struct {
	rest     string
	ri       string
	username string
	password string
	retry    *retryablehttp.Client
}

// NewClient creates a Fedora client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RestURL == "" || cfg.RIURL == "" {
		return nil, errors.New("fedora rest and resource index URLs are required")
	}
	rest := cfg.RestURL
	if !strings.HasSuffix(rest, "/") {
		rest += "/"
	}

	var hc http.Client
	if cfg.HTTPClient != nil {
		hc = *cfg.HTTPClient
	} else {
		hc.Timeout = cfg.Timeout
		if hc.Timeout <= 0 {
			hc.Timeout = DefaultTimeout
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &throttledTransport{base: base, limiter: limiter}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &hc
	rc.Logger = nil
	rc.RetryMax = max(cfg.MaxRetries, 0)
	rc.RetryWaitMin = delay
	rc.RetryWaitMax = maxRetryWait
	rc.CheckRetry = checkRetry
	rc.RequestLogHook = logRetry
	// the last response is handed back so callers map its status
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		rest:     rest,
		ri:       cfg.RIURL,
		username: cfg.Username,
		password: cfg.Password,
		retry:    rc,
	}, nil
}

// Ping checks that the resource index answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.sparql(ctx, "ping", "", `SELECT ?s WHERE { ?s <fedora-model:hasModel> <info:fedora/fedora-system:FedoraObject-3.0> } LIMIT 1`)
	return err
}

func (c *Client) objectURL(pid string, parts ...string) string {
	u := c.rest + pid
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

// do sends one logical request; transport errors, 429 and 5xx are retried with
// exponential backoff honoring Retry-After. The caller owns the returned body.
func (c *Client) do(ctx context.Context, op, method, u, contentType string, body any) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(withOp(ctx, op), method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

type opKey struct{}

func withOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func opFrom(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return op
	}
	return "unknown"
}

// checkRetry counts every attempt, then applies the library's default policy.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	op := opFrom(ctx)
	if err != nil {
		metrics.FedoraRequestsTotal.WithLabelValues(op, "error").Inc()
	} else {
		metrics.FedoraRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}
	logger.FromContext(req.Context()).Warn("Fedora request retrying",
		zap.String("op", opFrom(req.Context())),
		zap.String("url", req.URL.Redacted()),
		zap.Int("attempt", attempt+1),
	)
}

// throttledTransport waits on the limiter before every attempt, retries included.
type throttledTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.base.RoundTrip(req)
}

// readOK reads the full body of a 2xx response, or returns a StatusError.
func readOK(resp *http.Response, op, pid string) ([]byte, error) {
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewStatusError(op, pid, resp.StatusCode, body)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", op, pid, err)
	}
	return body, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
