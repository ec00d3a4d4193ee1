package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Service contains the Azure Language service connection settings.
type Service struct {
	Endpoint       string  `toml:"endpoint"`
	APIKey         string  `toml:"api_key"`
	APIVersion     string  `toml:"api_version"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	BackoffFactor  float64 `toml:"backoff_factor"`
}

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Poll contains job status polling settings.
type Poll struct {
	InitialIntervalSeconds float64 `toml:"initial_interval_seconds"`
	MaxIntervalSeconds     float64 `toml:"max_interval_seconds"`
	TimeoutSeconds         float64 `toml:"timeout_seconds"`
}

// Run contains batch execution settings.
type Run struct {
	MaxConcurrency     int  `toml:"max_concurrency"`
	MaxDocumentRetries int  `toml:"max_document_retries"`
	OverwriteExisting  bool `toml:"overwrite_existing"`
}

// Redaction contains the parameters forwarded to the PII task.
type Redaction struct {
	Character     string   `toml:"character"`
	PIICategories []string `toml:"pii_categories"`
	ModelVersion  string   `toml:"model_version"`
}

// Ingest contains source parsing settings for the CSV and JSON adapters.
type Ingest struct {
	CSVDelimiter         string `toml:"csv_delimiter"`
	JSONConversationPath string `toml:"json_conversation_path"`
	JSONParticipantField string `toml:"json_participant_field"`
	JSONTextField        string `toml:"json_text_field"`
	JSONTimestampField   string `toml:"json_timestamp_field"`
	JSONMultiDoc         bool   `toml:"json_multi_doc"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for scrubber.
//
// Configuration sections by subsystem:
//   - Service: Azure Language endpoint, credentials, HTTP retry budget
//   - Paths: input/output/state/log directories
//   - Poll: job status polling cadence and wall-clock timeout
//   - Run: worker pool size and per-document retry budget
//   - Redaction: PII task parameters (mask character, category filter)
//   - Ingest: CSV delimiter and JSON field mapping
//   - Logging: log level and format
type Config struct {
	Service   Service   `toml:"service"`
	Paths     Paths     `toml:"paths"`
	Poll      Poll      `toml:"poll"`
	Run       Run       `toml:"run"`
	Redaction Redaction `toml:"redaction"`
	Ingest    Ingest    `toml:"ingest"`
	Logging   Logging   `toml:"logging"`
}

// HTTPTimeout returns the per-request timeout for service calls.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutSeconds) * time.Second
}

// InitialPollInterval returns the starting inter-poll wait.
func (c *Config) InitialPollInterval() time.Duration {
	return secondsToDuration(c.Poll.InitialIntervalSeconds)
}

// MaxPollInterval returns the ceiling for inter-poll and backoff waits.
func (c *Config) MaxPollInterval() time.Duration {
	return secondsToDuration(c.Poll.MaxIntervalSeconds)
}

// PollTimeout returns the wall-clock budget for driving one job to a
// terminal state.
func (c *Config) PollTimeout() time.Duration {
	return secondsToDuration(c.Poll.TimeoutSeconds)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// LedgerPath returns the sqlite ledger location inside the state directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scrubber/config.toml")
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scrubber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
