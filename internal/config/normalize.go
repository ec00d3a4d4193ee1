package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	c.Service.Endpoint = strings.TrimSpace(c.Service.Endpoint)
	if c.Service.Endpoint == "" {
		if value, ok := os.LookupEnv("AZURE_LANGUAGE_SERVICE_ENDPOINT"); ok {
			c.Service.Endpoint = strings.TrimSpace(value)
		}
	}
	if c.Service.Endpoint != "" && !strings.HasSuffix(c.Service.Endpoint, "/") {
		c.Service.Endpoint += "/"
	}

	c.Service.APIKey = strings.TrimSpace(c.Service.APIKey)
	if c.Service.APIKey == "" {
		if value, ok := os.LookupEnv("AZURE_LANGUAGE_API_KEY"); ok {
			c.Service.APIKey = strings.TrimSpace(value)
		}
	}

	c.Service.APIVersion = strings.TrimSpace(c.Service.APIVersion)
	if c.Service.APIVersion == "" {
		c.Service.APIVersion = defaultAPIVersion
	}
	if c.Service.TimeoutSeconds <= 0 {
		c.Service.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if c.Service.MaxRetries <= 0 {
		c.Service.MaxRetries = defaultMaxRetries
	}
	if c.Service.BackoffFactor <= 1 {
		c.Service.BackoffFactor = defaultBackoffFactor
	}
}

func (c *Config) normalizeIngest() {
	if strings.TrimSpace(c.Ingest.CSVDelimiter) == "" {
		c.Ingest.CSVDelimiter = defaultCSVDelimiter
	}
	if strings.TrimSpace(c.Ingest.JSONParticipantField) == "" {
		c.Ingest.JSONParticipantField = defaultJSONParticipantField
	}
	if strings.TrimSpace(c.Ingest.JSONTextField) == "" {
		c.Ingest.JSONTextField = defaultJSONTextField
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
