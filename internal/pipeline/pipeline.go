// Package pipeline runs one document end to end: submit the analysis job,
// await its terminal state, and reconcile the result into an output record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scrubber/internal/config"
	"scrubber/internal/conversation"
	"scrubber/internal/logging"
	"scrubber/internal/reconcile"
	"scrubber/internal/services"
	"scrubber/internal/services/language"
)

// Analyzer is the remote-service surface the pipeline depends on.
type Analyzer interface {
	Submit(ctx context.Context, doc conversation.Document) (*language.Job, error)
	Await(ctx context.Context, job *language.Job) (*language.JobResult, error)
}

// Pipeline retries whole-document attempts around the analyzer's own
// HTTP-level retry budget. Every attempt is a fresh submission; a job whose
// polling failed is abandoned, never resumed.
type Pipeline struct {
	analyzer      Analyzer
	logger        *slog.Logger
	maxAttempts   int
	backoffFactor float64
	maxDelay      time.Duration
	sleeper       func(context.Context, time.Duration) error
}

// Option customizes pipeline behavior.
type Option func(*Pipeline)

// WithSleeper overrides how inter-attempt waits are performed (used in tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) {
		if sleeper != nil {
			p.sleeper = sleeper
		}
	}
}

// New constructs a Pipeline from application configuration.
func New(analyzer Analyzer, cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer:      analyzer,
		logger:        logging.WithComponent(logger, "pipeline"),
		maxAttempts:   cfg.Run.MaxDocumentRetries,
		backoffFactor: cfg.Service.BackoffFactor,
		maxDelay:      cfg.MaxPollInterval(),
		sleeper:       sleepWithContext,
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 1
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process drives one document to a redacted record. Validation failures are
// terminal; every other failure consumes one attempt from the document
// budget before the whole submit→await→reconcile sequence restarts. The
// second return value is the number of attempts consumed.
func (p *Pipeline) Process(ctx context.Context, doc conversation.Document, timestamps conversation.Timestamps) (conversation.RedactedDocument, int, error) {
	var empty conversation.RedactedDocument

	if err := doc.Validate(); err != nil {
		return empty, 0, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		record, err := p.attempt(ctx, doc, timestamps)
		if err == nil {
			return record, attempt, nil
		}
		if ctx.Err() != nil {
			return empty, attempt, ctx.Err()
		}
		if !services.Retryable(err) {
			return empty, attempt, fmt.Errorf("document %s: %w", doc.ID, err)
		}

		lastErr = err
		if attempt < p.maxAttempts {
			delay := p.attemptDelay(attempt)
			p.logger.Warn("document attempt failed, retrying",
				slog.String(logging.FieldDocumentID, doc.ID),
				slog.Int(logging.FieldAttempt, attempt),
				slog.Int("max_attempts", p.maxAttempts),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()))
			if err := p.sleeper(ctx, delay); err != nil {
				return empty, attempt, err
			}
		}
	}

	return empty, p.maxAttempts, fmt.Errorf("document %s: failed after %d attempts: %w", doc.ID, p.maxAttempts, lastErr)
}

func (p *Pipeline) attempt(ctx context.Context, doc conversation.Document, timestamps conversation.Timestamps) (conversation.RedactedDocument, error) {
	var empty conversation.RedactedDocument

	job, err := p.analyzer.Submit(ctx, doc)
	if err != nil {
		return empty, err
	}
	result, err := p.analyzer.Await(ctx, job)
	if err != nil {
		return empty, err
	}
	return reconcile.Merge(doc, timestamps, result)
}

// attemptDelay follows the document-level schedule: factor^(attempt-1) * 2s,
// capped at the poller's maximum interval.
func (p *Pipeline) attemptDelay(attempt int) time.Duration {
	delay := 2 * float64(time.Second)
	for i := 1; i < attempt; i++ {
		delay *= p.backoffFactor
	}
	if capped := float64(p.maxDelay); delay > capped {
		delay = capped
	}
	return time.Duration(delay)
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
