package language

import (
	"encoding/json"

	"scrubber/internal/conversation"
)

// Wire types for the analyze-conversations job API. Field names are part of
// the service contract and must not drift.

type submitRequest struct {
	Kind          string        `json:"kind"`
	AnalysisInput analysisInput `json:"analysisInput"`
	Tasks         []piiTask     `json:"tasks"`
}

type analysisInput struct {
	Conversations []wireConversation `json:"conversations"`
}

type wireConversation struct {
	ID                string     `json:"id"`
	Language          string     `json:"language"`
	Modality          string     `json:"modality"`
	ConversationItems []wireItem `json:"conversationItems"`
}

type wireItem struct {
	ParticipantID string `json:"participantId"`
	ID            string `json:"id"`
	Text          string `json:"text"`
}

type piiTask struct {
	Kind       string        `json:"kind"`
	Parameters piiParameters `json:"parameters"`
}

type piiParameters struct {
	ModelVersion      string          `json:"modelVersion"`
	PIICategories     []string        `json:"piiCategories"`
	RedactAudioTiming bool            `json:"redactAudioTiming"`
	RedactionPolicy   redactionPolicy `json:"redactionPolicy"`
	RedactionSource   string          `json:"redactionSource"`
}

type redactionPolicy struct {
	PolicyKind         string `json:"policyKind"`
	RedactionCharacter string `json:"redactionCharacter"`
}

func (c *Client) buildSubmitRequest(doc conversation.Document) submitRequest {
	items := make([]wireItem, 0, len(doc.Turns))
	for _, turn := range doc.Turns {
		items = append(items, wireItem{
			ParticipantID: turn.ParticipantID,
			ID:            turn.ID,
			Text:          turn.Text,
		})
	}
	categories := c.cfg.PIICategories
	if categories == nil {
		categories = []string{}
	}
	return submitRequest{
		Kind: "Conversation",
		AnalysisInput: analysisInput{
			Conversations: []wireConversation{{
				ID:                doc.ID,
				Language:          "en",
				Modality:          "text",
				ConversationItems: items,
			}},
		},
		Tasks: []piiTask{{
			Kind: "ConversationalPIITask",
			Parameters: piiParameters{
				ModelVersion:      c.cfg.ModelVersion,
				PIICategories:     categories,
				RedactAudioTiming: false,
				RedactionPolicy: redactionPolicy{
					PolicyKind:         "CharacterMask",
					RedactionCharacter: c.cfg.RedactionCharacter,
				},
				RedactionSource: "lexical",
			},
		}},
	}
}

// JobResult is the decoded terminal body of a succeeded analysis job. The
// reconciler navigates the nesting itself so structural surprises surface as
// reconciliation errors rather than silent drops.
type JobResult struct {
	Status string          `json:"status"`
	Tasks  TaskEnvelope    `json:"tasks"`
	Error  json.RawMessage `json:"error"`
}

// TaskEnvelope wraps the per-task result items.
type TaskEnvelope struct {
	Items []TaskItem `json:"items"`
}

// TaskItem holds the results of one submitted task.
type TaskItem struct {
	Results TaskResults `json:"results"`
}

// TaskResults carries the analyzed conversations for a task.
type TaskResults struct {
	Conversations []AnalyzedConversation `json:"conversations"`
}

// AnalyzedConversation is the service's view of one redacted conversation.
type AnalyzedConversation struct {
	ID                string         `json:"id"`
	ConversationItems []AnalyzedItem `json:"conversationItems"`
}

// AnalyzedItem is one redacted turn. RedactedContent is a pointer so a
// missing block is distinguishable from empty redacted text.
type AnalyzedItem struct {
	ID              string           `json:"id"`
	RedactedContent *RedactedContent `json:"redactedContent"`
}

// RedactedContent holds the masked text for one turn.
type RedactedContent struct {
	Text string `json:"text"`
}
