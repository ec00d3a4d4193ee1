package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"scrubber/internal/conversation"
	"scrubber/internal/services"
)

// fallbackConversationKeys are probed in order when no conversation path is
// configured and the document is an object.
var fallbackConversationKeys = []string{"phrases", "messages", "conversation", "items"}

func (l *Loader) loadJSON(path string) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "json", "open input file", err)
	}
	defer file.Close()

	var data any
	if err := json.NewDecoder(bomAwareReader(file)).Decode(&data); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "json", "decode input file", err)
	}

	base := baseID(path)

	if list, ok := data.([]any); ok && l.multiDoc {
		docs := make([]Document, 0, len(list))
		for i, element := range list {
			switch element.(type) {
			case map[string]any, []any:
			default:
				continue
			}
			doc, err := l.buildDocument(element, fmt.Sprintf("%s_%03d", base, i+1))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	doc, err := l.buildDocument(data, base)
	if err != nil {
		return nil, err
	}
	return []Document{doc}, nil
}

func (l *Loader) buildDocument(data any, id string) (Document, error) {
	items, ok := l.conversationItems(data)
	if !ok {
		return Document{}, services.Wrap(services.ErrValidation, "ingest", "json",
			fmt.Sprintf("could not locate conversation array in %s; set json_conversation_path", id), nil)
	}

	doc := Document{
		Document:   conversation.Document{ID: id},
		Timestamps: conversation.Timestamps{},
	}

	idx := 0
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		participant := stringField(item, l.participantField)
		text := stringField(item, l.textField)
		timestamp := stringField(item, l.timestampField)
		if participant == "" && text == "" && timestamp == "" {
			continue
		}

		idx++
		turn := turnID(idx)
		doc.Turns = append(doc.Turns, conversation.Turn{
			ID:            turn,
			ParticipantID: participant,
			Text:          text,
		})
		if timestamp != "" {
			doc.Timestamps[turn] = timestamp
		}
	}

	return doc, nil
}

// conversationItems finds the array holding the conversation. A top level
// array is used directly; otherwise the configured dot path is followed,
// then well-known keys are probed.
func (l *Loader) conversationItems(data any) ([]any, bool) {
	if list, ok := data.([]any); ok {
		return list, true
	}

	if l.conversationPath != "" {
		if items, ok := navigatePath(data, l.conversationPath).([]any); ok {
			return items, true
		}
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range fallbackConversationKeys {
		if items, ok := obj[key].([]any); ok {
			return items, true
		}
	}
	return nil, false
}

// navigatePath walks a dot-delimited path through nested objects. Numeric
// segments index into arrays.
func navigatePath(data any, path string) any {
	current := data
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil
			}
			current = value
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}
	return current
}

// stringField extracts and trims a field, stringifying non-string scalars
// the way loosely typed exports require.
func stringField(item map[string]any, field string) string {
	if field == "" {
		return ""
	}
	value, ok := item[field]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
