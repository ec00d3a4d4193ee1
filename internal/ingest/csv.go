package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"scrubber/internal/conversation"
	"scrubber/internal/services"
)

// Expected CSV header columns. Exporters routinely pad values with spaces
// around the delimiter, so every cell is trimmed.
const (
	columnTimestamp   = "Timestamp"
	columnParticipant = "Participant"
	columnTranscript  = "Transcript"
)

// bomAwareReader strips a UTF-8 byte order mark when present. Transcript
// exports from Windows tooling frequently carry one.
func bomAwareReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

func (l *Loader) loadCSV(path string) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return Document{}, services.Wrap(services.ErrValidation, "ingest", "csv", "open input file", err)
	}
	defer file.Close()

	reader := csv.NewReader(bomAwareReader(file))
	reader.Comma = l.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Document{}, services.Wrap(services.ErrValidation, "ingest", "csv", "read header row", err)
	}
	timestampCol, participantCol, transcriptCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case columnTimestamp:
			timestampCol = i
		case columnParticipant:
			participantCol = i
		case columnTranscript:
			transcriptCol = i
		}
	}

	doc := Document{
		Document:   conversation.Document{ID: baseID(path)},
		Timestamps: conversation.Timestamps{},
	}

	idx := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Document{}, services.Wrap(services.ErrValidation, "ingest", "csv", "read row", err)
		}

		timestamp := cell(row, timestampCol)
		participant := cell(row, participantCol)
		text := cell(row, transcriptCol)
		if timestamp == "" && participant == "" && text == "" {
			continue
		}

		idx++
		id := turnID(idx)
		doc.Turns = append(doc.Turns, conversation.Turn{
			ID:            id,
			ParticipantID: participant,
			Text:          text,
		})
		if timestamp != "" {
			doc.Timestamps[id] = timestamp
		}
	}

	return doc, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
