// Package language wraps the Azure Language conversational PII job API:
// submission of analysis jobs and polling them to a terminal state.
package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scrubber/internal/config"
	"scrubber/internal/conversation"
	"scrubber/internal/logging"
	"scrubber/internal/services"
)

const (
	submitPath              = "language/analyze-conversations/jobs"
	subscriptionKeyHeader   = "Ocp-Apim-Subscription-Key"
	operationLocationHeader = "Operation-Location"
	backoffBase             = 500 * time.Millisecond
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	Endpoint            string
	APIKey              string
	APIVersion          string
	MaxRetries          int
	BackoffFactor       float64
	HTTPTimeout         time.Duration
	InitialPollInterval time.Duration
	MaxPollInterval     time.Duration
	PollTimeout         time.Duration
	RedactionCharacter  string
	PIICategories       []string
	ModelVersion        string
}

// HTTPDoer describes the HTTP client used by the service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits redaction jobs and drives them to completion.
type Client struct {
	cfg     Config
	http    HTTPDoer
	logger  *slog.Logger
	sleeper func(context.Context, time.Duration) error
	jitter  func() float64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger attaches a logger for retry and poll progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.WithComponent(logger, "language")
		}
	}
}

// WithSleeper overrides how waits are performed (used in tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithJitter overrides the jitter source (used in tests).
func WithJitter(jitter func() float64) Option {
	return func(c *Client) {
		if jitter != nil {
			c.jitter = jitter
		}
	}
}

// New constructs a Client from the supplied configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "language", "new", "endpoint is required", nil)
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "language", "new", "api key is required", nil)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = 1.5
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.InitialPollInterval <= 0 {
		cfg.InitialPollInterval = 2 * time.Second
	}
	if cfg.MaxPollInterval <= 0 {
		cfg.MaxPollInterval = 15 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 20 * time.Minute
	}
	if cfg.RedactionCharacter == "" {
		cfg.RedactionCharacter = "*"
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = "latest"
	}

	client := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		logger:  logging.NewNop(),
		sleeper: sleepWithContext,
		jitter:  rand.Float64,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from application configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	return New(Config{
		Endpoint:            cfg.Service.Endpoint,
		APIKey:              cfg.Service.APIKey,
		APIVersion:          cfg.Service.APIVersion,
		MaxRetries:          cfg.Service.MaxRetries,
		BackoffFactor:       cfg.Service.BackoffFactor,
		HTTPTimeout:         cfg.HTTPTimeout(),
		InitialPollInterval: cfg.InitialPollInterval(),
		MaxPollInterval:     cfg.MaxPollInterval(),
		PollTimeout:         cfg.PollTimeout(),
		RedactionCharacter:  cfg.Redaction.Character,
		PIICategories:       cfg.Redaction.PIICategories,
		ModelVersion:        cfg.Redaction.ModelVersion,
	}, opts...)
}

// transientStatuses are HTTP statuses expected to resolve on retry.
var transientStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

func isTransientStatus(code int) bool {
	_, ok := transientStatuses[code]
	return ok
}

// Submit sends one document as an analysis job. On acceptance it returns a
// Job referencing the service-side operation; each call creates a fresh job,
// never reusing one from an earlier attempt.
func (c *Client) Submit(ctx context.Context, doc conversation.Document) (*Job, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	endpoint := c.cfg.Endpoint + submitPath + "?api-version=" + c.cfg.APIVersion
	encoded, err := json.Marshal(c.buildSubmitRequest(doc))
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "language", "submit", "encode request body", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return nil, services.Wrap(services.ErrFatal, "language", "submit", "build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(subscriptionKeyHeader, c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("submission network error, retrying",
				slog.Int(logging.FieldAttempt, attempt+1),
				slog.Int("max_attempts", c.cfg.MaxRetries),
				slog.String("error", err.Error()))
			if err := c.sleeper(ctx, c.backoffDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		status := resp.StatusCode
		if status == http.StatusAccepted {
			location := resp.Header.Get(operationLocationHeader)
			drainBody(resp)
			if strings.TrimSpace(location) == "" {
				return nil, services.Wrap(services.ErrFatal, "language", "submit", "operation location header missing from accepted response", nil)
			}
			c.logger.Debug("job accepted", slog.String(logging.FieldDocumentID, doc.ID))
			return &Job{LocationURL: location, State: JobPending}, nil
		}

		body := readBodySnippet(resp)
		if isTransientStatus(status) {
			lastErr = fmt.Errorf("http %d: %s", status, body)
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			delay := c.backoffDelay(attempt)
			if retryAfter > 0 {
				delay = c.capDelay(retryAfter)
			}
			c.logger.Warn("transient submission error, retrying",
				slog.Int("status", status),
				slog.Int(logging.FieldAttempt, attempt+1),
				slog.Int("max_attempts", c.cfg.MaxRetries))
			if err := c.sleeper(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		return nil, services.Wrap(services.ErrFatal, "language", "submit",
			fmt.Sprintf("http %d: %s", status, body), nil)
	}

	return nil, services.Wrap(services.ErrFatal, "language", "submit",
		fmt.Sprintf("failed after %d attempts", c.cfg.MaxRetries), lastErr)
}

// backoffDelay computes the jittered exponential delay for a 0-based attempt,
// capped at the maximum poll interval.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := float64(backoffBase)
	for i := 0; i < attempt; i++ {
		delay *= c.cfg.BackoffFactor
	}
	delay += c.jitter() * 0.25 * float64(backoffBase)
	return c.capDelay(time.Duration(delay))
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay > c.cfg.MaxPollInterval {
		return c.cfg.MaxPollInterval
	}
	if delay < 0 {
		return 0
	}
	return delay
}

// parseRetryAfter honours numeric Retry-After hints only; HTTP-date values
// are ignored the same way the service's own samples do.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func readBodySnippet(resp *http.Response) string {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return strings.TrimSpace(string(body))
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
