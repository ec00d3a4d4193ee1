package reconcile_test

import (
	"errors"
	"strings"
	"testing"

	"scrubber/internal/conversation"
	"scrubber/internal/reconcile"
	"scrubber/internal/services"
	"scrubber/internal/services/language"
)

func resultFor(docID string, items ...language.AnalyzedItem) *language.JobResult {
	return &language.JobResult{
		Status: "succeeded",
		Tasks: language.TaskEnvelope{
			Items: []language.TaskItem{{
				Results: language.TaskResults{
					Conversations: []language.AnalyzedConversation{{
						ID:                docID,
						ConversationItems: items,
					}},
				},
			}},
		},
	}
}

func redacted(id, text string) language.AnalyzedItem {
	return language.AnalyzedItem{ID: id, RedactedContent: &language.RedactedContent{Text: text}}
}

func TestMergeReattachesMetadata(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "t1", ParticipantID: "internal", Text: "hi"}},
	}
	timestamps := conversation.Timestamps{"t1": "2025-01-01T00:00:00"}

	out, err := reconcile.Merge(doc, timestamps, resultFor("call-01", redacted("t1", "**")))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if out.ID != "call-01" {
		t.Errorf("unexpected id: %q", out.ID)
	}
	if len(out.Conversation) != 1 {
		t.Fatalf("unexpected turn count: %d", len(out.Conversation))
	}
	turn := out.Conversation[0]
	if turn.Timestamp == nil || *turn.Timestamp != "2025-01-01T00:00:00" {
		t.Errorf("unexpected timestamp: %v", turn.Timestamp)
	}
	if turn.Participant != "internal" || turn.Text != "**" {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if out.Metadata == nil || len(out.Metadata) != 0 {
		t.Errorf("expected empty metadata map, got %#v", out.Metadata)
	}
}

func TestMergeMissingTimestampYieldsNull(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "t1", ParticipantID: "external", Text: "hello"}},
	}

	out, err := reconcile.Merge(doc, conversation.Timestamps{}, resultFor("call-01", redacted("t1", "hello")))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if out.Conversation[0].Timestamp != nil {
		t.Fatalf("expected nil timestamp, got %v", *out.Conversation[0].Timestamp)
	}
}

func TestMergePreservesServiceOrder(t *testing.T) {
	doc := conversation.Document{
		ID: "call-01",
		Turns: []conversation.Turn{
			{ID: "t1", ParticipantID: "internal"},
			{ID: "t2", ParticipantID: "external"},
		},
	}

	out, err := reconcile.Merge(doc, nil, resultFor("call-01", redacted("t2", "b"), redacted("t1", "a")))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if out.Conversation[0].Participant != "external" || out.Conversation[1].Participant != "internal" {
		t.Fatalf("expected service order preserved, got %+v", out.Conversation)
	}
}

func TestMergeUnknownTurnIDFails(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "t1", ParticipantID: "internal"}},
	}

	_, err := reconcile.Merge(doc, nil, resultFor("call-01", redacted("t9", "**")))
	if !errors.Is(err, services.ErrReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"t9"`) {
		t.Fatalf("expected offending turn id in error, got %v", err)
	}
}

func TestMergeMissingRedactedContentFails(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "t1", ParticipantID: "internal"}},
	}

	_, err := reconcile.Merge(doc, nil, resultFor("call-01", language.AnalyzedItem{ID: "t1"}))
	if !errors.Is(err, services.ErrReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}

func TestMergeEchoedIDMismatchFails(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "t1", ParticipantID: "internal"}},
	}

	_, err := reconcile.Merge(doc, nil, resultFor("other-doc", redacted("t1", "**")))
	if !errors.Is(err, services.ErrReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}

func TestMergeEmptyResultFails(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "t1", ParticipantID: "internal"}},
	}

	if _, err := reconcile.Merge(doc, nil, nil); !errors.Is(err, services.ErrReconciliation) {
		t.Fatalf("expected reconciliation error for nil result, got %v", err)
	}
	if _, err := reconcile.Merge(doc, nil, &language.JobResult{}); !errors.Is(err, services.ErrReconciliation) {
		t.Fatalf("expected reconciliation error for empty tasks, got %v", err)
	}
}
