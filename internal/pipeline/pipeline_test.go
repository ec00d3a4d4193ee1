package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"scrubber/internal/conversation"
	"scrubber/internal/logging"
	"scrubber/internal/pipeline"
	"scrubber/internal/services"
	"scrubber/internal/services/language"
	"scrubber/internal/testsupport"
)

type fakeAnalyzer struct {
	submits    int
	awaits     int
	submitErrs []error
	awaitErrs  []error
	result     *language.JobResult
}

func (f *fakeAnalyzer) Submit(_ context.Context, doc conversation.Document) (*language.Job, error) {
	f.submits++
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &language.Job{LocationURL: "https://example/jobs/1", State: language.JobPending}, nil
}

func (f *fakeAnalyzer) Await(_ context.Context, job *language.Job) (*language.JobResult, error) {
	f.awaits++
	if len(f.awaitErrs) > 0 {
		err := f.awaitErrs[0]
		f.awaitErrs = f.awaitErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	job.State = language.JobSucceeded
	return f.result, nil
}

func successResult(docID string) *language.JobResult {
	return &language.JobResult{
		Status: "succeeded",
		Tasks: language.TaskEnvelope{
			Items: []language.TaskItem{{
				Results: language.TaskResults{
					Conversations: []language.AnalyzedConversation{{
						ID: docID,
						ConversationItems: []language.AnalyzedItem{
							{ID: "turn_1", RedactedContent: &language.RedactedContent{Text: "**"}},
						},
					}},
				},
			}},
		},
	}
}

func testDoc() conversation.Document {
	return conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "turn_1", ParticipantID: "internal", Text: "John"}},
	}
}

func newPipeline(t *testing.T, analyzer pipeline.Analyzer) (*pipeline.Pipeline, *[]time.Duration) {
	t.Helper()
	var delays []time.Duration
	p := pipeline.New(analyzer, testsupport.NewConfig(t), logging.NewNop(),
		pipeline.WithSleeper(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	return p, &delays
}

func TestProcessSucceedsFirstAttempt(t *testing.T) {
	analyzer := &fakeAnalyzer{result: successResult("call-01")}
	p, delays := newPipeline(t, analyzer)

	record, attempts, err := p.Process(context.Background(), testDoc(), conversation.Timestamps{"turn_1": "2025-01-01T00:00:00"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if record.Conversation[0].Text != "**" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
	if analyzer.submits != 1 || analyzer.awaits != 1 {
		t.Fatalf("unexpected call counts: submits=%d awaits=%d", analyzer.submits, analyzer.awaits)
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no waits, got %v", *delays)
	}
}

func TestProcessRetriesAfterPollTimeout(t *testing.T) {
	analyzer := &fakeAnalyzer{
		awaitErrs: []error{services.Wrap(services.ErrTimeout, "language", "await", "polling timed out", nil)},
		result:    successResult("call-01"),
	}
	p, delays := newPipeline(t, analyzer)

	_, attempts, err := p.Process(context.Background(), testDoc(), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	// A fresh job is submitted for the second attempt.
	if analyzer.submits != 2 {
		t.Fatalf("expected fresh submission per attempt, got %d submits", analyzer.submits)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts reported, got %d", attempts)
	}
	if len(*delays) != 1 || (*delays)[0] != 2*time.Second {
		t.Fatalf("unexpected inter-attempt waits: %v", *delays)
	}
}

func TestProcessValidationFailsFast(t *testing.T) {
	analyzer := &fakeAnalyzer{result: successResult("call-01")}
	p, _ := newPipeline(t, analyzer)

	_, _, err := p.Process(context.Background(), conversation.Document{ID: "empty"}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if analyzer.submits != 0 {
		t.Fatalf("expected no submission for invalid document, got %d", analyzer.submits)
	}
}

func TestProcessExhaustsAttempts(t *testing.T) {
	failure := services.Wrap(services.ErrFatal, "language", "submit", "http 500 after retries", nil)
	analyzer := &fakeAnalyzer{
		submitErrs: []error{failure, failure, failure},
		result:     successResult("call-01"),
	}
	p, delays := newPipeline(t, analyzer)

	_, attempts, err := p.Process(context.Background(), testDoc(), nil)
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts reported, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "call-01") || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected underlying marker preserved: %v", err)
	}
	if analyzer.submits != 3 {
		t.Fatalf("expected 3 attempts, got %d", analyzer.submits)
	}
	// Waits follow factor^(attempt-1) * 2s with factor 1.5: 2s then 3s.
	if len(*delays) != 2 || (*delays)[0] != 2*time.Second || (*delays)[1] != 3*time.Second {
		t.Fatalf("unexpected waits: %v", *delays)
	}
}

func TestProcessRetriesReconciliationErrors(t *testing.T) {
	// First result references a turn the document does not contain.
	bogus := successResult("call-01")
	bogus.Tasks.Items[0].Results.Conversations[0].ConversationItems[0].ID = "turn_99"

	analyzer := &scriptedAnalyzer{results: []*language.JobResult{bogus, successResult("call-01")}}
	p, _ := newPipeline(t, analyzer)

	if _, _, err := p.Process(context.Background(), testDoc(), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if analyzer.submits != 2 {
		t.Fatalf("expected retry after reconciliation error, got %d submits", analyzer.submits)
	}
}

type scriptedAnalyzer struct {
	submits int
	results []*language.JobResult
}

func (s *scriptedAnalyzer) Submit(context.Context, conversation.Document) (*language.Job, error) {
	s.submits++
	return &language.Job{LocationURL: "https://example/jobs/1"}, nil
}

func (s *scriptedAnalyzer) Await(_ context.Context, job *language.Job) (*language.JobResult, error) {
	result := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	job.State = language.JobSucceeded
	return result, nil
}
