package language

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scrubber/internal/services"
)

// JobState tracks a remote analysis job through its lifecycle.
type JobState string

const (
	JobPending   JobState = "pending"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobTimedOut  JobState = "timed_out"
)

// Job references a remote asynchronous analysis operation. A Job belongs to
// exactly one pipeline attempt; retried attempts submit fresh jobs.
type Job struct {
	LocationURL string
	State       JobState
}

// Await polls the job until it reaches a terminal state. Transient HTTP
// statuses and network errors do not consume an attempt budget; the only
// bounds are the per-request timeout and the overall poll timeout measured
// from the first status check.
func (c *Client) Await(ctx context.Context, job *Job) (*JobResult, error) {
	if job == nil || strings.TrimSpace(job.LocationURL) == "" {
		return nil, services.Wrap(services.ErrFatal, "language", "await", "job location is empty", nil)
	}

	start := time.Now()
	interval := c.cfg.InitialPollInterval

	for {
		if time.Since(start) > c.cfg.PollTimeout {
			job.State = JobTimedOut
			return nil, services.Wrap(services.ErrTimeout, "language", "await",
				fmt.Sprintf("polling timed out after %s for %s", c.cfg.PollTimeout, job.LocationURL), nil)
		}

		result, retryAfter, err := c.checkStatus(ctx, job)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}

		// Transient-error-specific wait, stacked before the standard
		// inter-poll backoff.
		if retryAfter > 0 {
			if err := c.sleeper(ctx, c.capDelay(retryAfter)); err != nil {
				return nil, err
			}
		}
		if err := c.sleeper(ctx, interval); err != nil {
			return nil, err
		}
		interval = c.capDelay(time.Duration(float64(interval) * c.cfg.BackoffFactor))
	}
}

// checkStatus performs one status request. It returns a non-nil result only
// on terminal success; a zero result with nil error means "still pending".
func (c *Client) checkStatus(ctx context.Context, job *Job) (*JobResult, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.LocationURL, nil)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrFatal, "language", "await", "build status request", err)
	}
	req.Header.Set(subscriptionKeyHeader, c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		c.logger.Warn("poll network error, will retry", slog.String("error", err.Error()))
		return nil, 0, nil
	}

	if resp.StatusCode == http.StatusOK {
		var result JobResult
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, 0, services.Wrap(services.ErrFatal, "language", "await", "decode status body", decodeErr)
		}
		switch result.Status {
		case "succeeded":
			job.State = JobSucceeded
			return &result, 0, nil
		case "failed":
			job.State = JobFailed
			detail := strings.TrimSpace(string(result.Error))
			if detail == "" || detail == "null" {
				detail = "service reported no error detail"
			}
			return nil, 0, services.Wrap(services.ErrJobFailed, "language", "await", detail, nil)
		default:
			// notStarted / running keep the job pending.
			c.logger.Debug("job still processing", slog.String("status", result.Status))
			return nil, 0, nil
		}
	}

	status := resp.StatusCode
	body := readBodySnippet(resp)
	if isTransientStatus(status) {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.logger.Warn("transient polling error, backing off", slog.Int("status", status))
		return nil, retryAfter, nil
	}

	return nil, 0, services.Wrap(services.ErrFatal, "language", "await",
		fmt.Sprintf("http %d: %s", status, body), nil)
}
