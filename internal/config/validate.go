package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateService() error {
	if c.Service.Endpoint == "" {
		return fmt.Errorf("service.endpoint is required. Set AZURE_LANGUAGE_SERVICE_ENDPOINT or edit %s (create with 'scrubber config init')", configHint())
	}
	if !strings.HasPrefix(c.Service.Endpoint, "http://") && !strings.HasPrefix(c.Service.Endpoint, "https://") {
		return fmt.Errorf("service.endpoint must be an http(s) URL, got %q", c.Service.Endpoint)
	}
	if c.Service.APIKey == "" {
		return fmt.Errorf("service.api_key is required. Set AZURE_LANGUAGE_API_KEY or edit %s (create with 'scrubber config init')", configHint())
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.InitialIntervalSeconds <= 0 {
		return errors.New("poll.initial_interval_seconds must be positive")
	}
	if c.Poll.MaxIntervalSeconds < c.Poll.InitialIntervalSeconds {
		return errors.New("poll.max_interval_seconds must be at least the initial interval")
	}
	if c.Poll.TimeoutSeconds <= 0 {
		return errors.New("poll.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.MaxConcurrency <= 0 {
		return errors.New("run.max_concurrency must be positive")
	}
	if c.Run.MaxDocumentRetries <= 0 {
		return errors.New("run.max_document_retries must be positive")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if utf8.RuneCountInString(c.Ingest.CSVDelimiter) != 1 {
		return fmt.Errorf("ingest.csv_delimiter must be a single character, got %q", c.Ingest.CSVDelimiter)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return "~/.config/scrubber/config.toml"
	}
	return path
}
