package firms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

// DefaultBaseURL is the FIRMS area API CSV endpoint.
const DefaultBaseURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv"

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 64 << 20

// ClientConfig configures the FIRMS area API client.
type ClientConfig struct {
	MapKey  string
	BaseURL string
	Timeout time.Duration

	// BreakerFailures consecutive failures open the circuit for BreakerOpenTimeout.
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

// Client implements domain.Source using the FIRMS area API.
type Client struct {
	mapKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FIRMS client. Requests are never retried; a run of
// failures opens the circuit breaker instead.
func NewClient(cfg ClientConfig, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 60 * time.Second
	}

	c := &Client{
		mapKey:     cfg.MapKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    metrics,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "firms",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// URL returns the exact request URL for a query, credential included.
func (c *Client) URL(q domain.Query) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.baseURL, c.mapKey, q.Source, q.BBox, strconv.Itoa(q.Days))
}

// Redact masks the map key inside s.
func (c *Client) Redact(s string) string {
	return domain.RedactURL(s, c.mapKey)
}

// Fetch downloads the CSV document for q.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.Payload, error) {
	redacted := c.Redact(c.URL(q))

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, q, redacted)
	})
	c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.UpstreamRequests.WithLabelValues("circuit_open").Inc()
			return domain.Payload{}, &domain.UpstreamError{Op: "circuit", URL: redacted, Err: err}
		}
		c.metrics.UpstreamRequests.WithLabelValues("error").Inc()
		c.logger.Warn("firms request failed", "url", redacted, "error", err)
		return domain.Payload{}, err
	}

	c.metrics.UpstreamRequests.WithLabelValues("success").Inc()
	c.logger.Debug("firms request complete", "url", redacted, "bytes", len(body), "duration", time.Since(start))
	return domain.Payload{URL: redacted, Body: body}, nil
}

func (c *Client) get(ctx context.Context, q domain.Query, redacted string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(q), nil)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "fetch", URL: redacted, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "fetch", URL: redacted, Err: scrub(err, c.mapKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.UpstreamError{
			Op:         "fetch",
			URL:        redacted,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(c.Redact(string(snippet)))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.UpstreamError{Op: "fetch", URL: redacted, Err: fmt.Errorf("read body: %w", scrub(err, c.mapKey))}
	}
	return body, nil
}

// scrub removes the map key from transport errors, which embed the request URL.
func scrub(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: domain.RedactURL(err.Error(), secret), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
