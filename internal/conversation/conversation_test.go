package conversation_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"scrubber/internal/conversation"
	"scrubber/internal/services"
)

func TestValidateRejectsEmptyDocument(t *testing.T) {
	doc := conversation.Document{ID: "call-01"}
	err := doc.Validate()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "call-01") {
		t.Fatalf("expected document id in error, got %v", err)
	}
}

func TestValidateRejectsMissingID(t *testing.T) {
	doc := conversation.Document{Turns: []conversation.Turn{{ID: "turn_1", Text: "hi"}}}
	if err := doc.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateAcceptsPopulatedDocument(t *testing.T) {
	doc := conversation.Document{
		ID:    "call-01",
		Turns: []conversation.Turn{{ID: "turn_1", ParticipantID: "internal", Text: "hello"}},
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestParticipantsByTurn(t *testing.T) {
	doc := conversation.Document{
		ID: "call-01",
		Turns: []conversation.Turn{
			{ID: "turn_1", ParticipantID: "internal", Text: "hello"},
			{ID: "turn_2", ParticipantID: "external", Text: "hi"},
		},
	}
	lookup := doc.ParticipantsByTurn()
	if lookup["turn_1"] != "internal" || lookup["turn_2"] != "external" {
		t.Fatalf("unexpected lookup: %#v", lookup)
	}
}

func TestRedactedTurnMarshalsNullTimestamp(t *testing.T) {
	encoded, err := json.Marshal(conversation.RedactedTurn{Participant: "external", Text: "**"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(encoded), `"timestamp":null`) {
		t.Fatalf("expected null timestamp, got %s", encoded)
	}
}
