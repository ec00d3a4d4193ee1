// Package conversation defines the canonical in-memory shapes for a
// transcript and its redacted counterpart. Ingestion adapters produce
// Documents, the pipeline consumes them read-only, and reconciliation emits
// RedactedDocuments for the sink.
package conversation

import (
	"strings"

	"scrubber/internal/services"
)

// Turn is one utterance within a Document. IDs are assigned sequentially by
// the producer (turn_1, turn_2, ...) and are unique within the document only.
type Turn struct {
	ID            string
	ParticipantID string
	Text          string
}

// Document is one transcript unit submitted for redaction. Turn order is
// conversational order and is meaningful.
type Document struct {
	ID    string
	Turns []Turn
}

// Timestamps carries optional per-turn timestamps keyed by turn id. They are
// never sent to the analysis service; reconciliation reattaches them.
type Timestamps map[string]string

// Validate reports whether the document can be submitted. Empty documents are
// tolerated by callers but rejected here so submission never sends zero items.
func (d Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return services.Wrap(services.ErrValidation, "conversation", "validate", "document id is empty", nil)
	}
	if len(d.Turns) == 0 {
		return services.Wrap(services.ErrValidation, "conversation", "validate", "document "+d.ID+" has no turns", nil)
	}
	return nil
}

// ParticipantsByTurn builds the turn id to participant lookup used during
// reconciliation.
func (d Document) ParticipantsByTurn() map[string]string {
	lookup := make(map[string]string, len(d.Turns))
	for _, turn := range d.Turns {
		lookup[turn.ID] = turn.ParticipantID
	}
	return lookup
}

// RedactedTurn is one utterance of the output record. Text is always the
// service-redacted content, never the original. A nil Timestamp marshals to
// null for turns whose source carried no timestamp.
type RedactedTurn struct {
	Timestamp   *string `json:"timestamp"`
	Participant string  `json:"participant"`
	Text        string  `json:"text"`
}

// RedactedDocument is the output artifact written per input document.
type RedactedDocument struct {
	ID           string            `json:"id"`
	Metadata     map[string]string `json:"metadata"`
	Conversation []RedactedTurn    `json:"conversation"`
}
