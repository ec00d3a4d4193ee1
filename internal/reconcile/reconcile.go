// Package reconcile merges the analysis service's redacted output with the
// participant identity and timestamp metadata the service never saw.
package reconcile

import (
	"fmt"

	"scrubber/internal/conversation"
	"scrubber/internal/services"
	"scrubber/internal/services/language"
)

// Merge builds the output record for one document from a succeeded job
// result. Turns are emitted in the order the service returned them. Any
// structural surprise in the result (missing nesting, a turn id the original
// document never contained, absent redacted text, or an echoed document id
// that differs from the submitted one) fails loudly rather than fabricating
// or dropping data.
func Merge(doc conversation.Document, timestamps conversation.Timestamps, result *language.JobResult) (conversation.RedactedDocument, error) {
	var empty conversation.RedactedDocument

	if result == nil || len(result.Tasks.Items) == 0 {
		return empty, services.Wrap(services.ErrReconciliation, "reconcile", "merge", "result contains no task items", nil)
	}
	conversations := result.Tasks.Items[0].Results.Conversations
	if len(conversations) == 0 {
		return empty, services.Wrap(services.ErrReconciliation, "reconcile", "merge", "result contains no conversations", nil)
	}
	analyzed := conversations[0]
	if analyzed.ID != doc.ID {
		return empty, services.Wrap(services.ErrReconciliation, "reconcile", "merge",
			fmt.Sprintf("service echoed document id %q, submitted %q", analyzed.ID, doc.ID), nil)
	}

	participants := doc.ParticipantsByTurn()
	turns := make([]conversation.RedactedTurn, 0, len(analyzed.ConversationItems))
	for _, item := range analyzed.ConversationItems {
		participant, ok := participants[item.ID]
		if !ok {
			return empty, services.Wrap(services.ErrReconciliation, "reconcile", "merge",
				fmt.Sprintf("turn %q not present in original document %s", item.ID, doc.ID), nil)
		}
		if item.RedactedContent == nil {
			return empty, services.Wrap(services.ErrReconciliation, "reconcile", "merge",
				fmt.Sprintf("turn %q has no redacted content", item.ID), nil)
		}
		turns = append(turns, conversation.RedactedTurn{
			Timestamp:   timestampFor(timestamps, item.ID),
			Participant: participant,
			Text:        item.RedactedContent.Text,
		})
	}

	return conversation.RedactedDocument{
		ID:           analyzed.ID,
		Metadata:     map[string]string{},
		Conversation: turns,
	}, nil
}

// timestampFor resolves the optional source timestamp for a turn. Absence is
// valid and surfaces as null in the output artifact.
func timestampFor(timestamps conversation.Timestamps, turnID string) *string {
	if timestamps == nil {
		return nil
	}
	value, ok := timestamps[turnID]
	if !ok || value == "" {
		return nil
	}
	return &value
}
