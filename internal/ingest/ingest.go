// Package ingest turns input transcripts into conversation documents. Two
// shapes are supported: pipe-delimited CSV transcripts and JSON documents
// with a configurable path to the conversation array. A JSON file may expand
// into several sibling documents when multi-document mode is enabled.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scrubber/internal/config"
	"scrubber/internal/conversation"
	"scrubber/internal/services"
)

// Document pairs a parsed conversation with its source timestamps.
type Document struct {
	conversation.Document
	Timestamps conversation.Timestamps
}

// Unit is a single input file and every document parsed from it. Multi
// document JSON files produce several entries; CSV files always produce one.
type Unit struct {
	Source    string
	Documents []Document
}

// Loader parses input files according to the ingest configuration.
type Loader struct {
	delimiter        rune
	conversationPath string
	participantField string
	textField        string
	timestampField   string
	multiDoc         bool
}

// NewLoader builds a loader from the resolved configuration.
func NewLoader(cfg *config.Config) *Loader {
	delimiter := '|'
	if runes := []rune(cfg.Ingest.CSVDelimiter); len(runes) == 1 {
		delimiter = runes[0]
	}
	return &Loader{
		delimiter:        delimiter,
		conversationPath: cfg.Ingest.JSONConversationPath,
		participantField: cfg.Ingest.JSONParticipantField,
		textField:        cfg.Ingest.JSONTextField,
		timestampField:   cfg.Ingest.JSONTimestampField,
		multiDoc:         cfg.Ingest.JSONMultiDoc,
	}
}

// Load parses one input file into a unit. The file's extension selects the
// adapter.
func (l *Loader) Load(path string) (*Unit, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		doc, err := l.loadCSV(path)
		if err != nil {
			return nil, err
		}
		return &Unit{Source: path, Documents: []Document{doc}}, nil
	case ".json":
		docs, err := l.loadJSON(path)
		if err != nil {
			return nil, err
		}
		return &Unit{Source: path, Documents: docs}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "ingest", "load",
			fmt.Sprintf("unsupported file type: %s", path), nil)
	}
}

// Discover lists the CSV and JSON files in the input directory, sorted by
// name for a stable processing order.
func Discover(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "discover", "read input directory", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv", ".json":
			paths = append(paths, filepath.Join(inputDir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// baseID strips the directory and extension from a path, leaving the
// document id stem.
func baseID(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func turnID(n int) string {
	return fmt.Sprintf("turn_%d", n)
}
