package config

const (
	defaultAPIVersion           = "2025-05-15-preview"
	defaultInputDir             = "input"
	defaultOutputDir            = "output"
	defaultStateDir             = "~/.local/share/scrubber"
	defaultLogDir               = "~/.local/share/scrubber/logs"
	defaultHTTPTimeoutSeconds   = 30
	defaultMaxRetries           = 5
	defaultBackoffFactor        = 1.5
	defaultInitialPollSeconds   = 2
	defaultMaxPollSeconds       = 15
	defaultPollTimeoutSeconds   = 1200 // 20 minutes
	defaultMaxConcurrency       = 8
	defaultMaxDocumentRetries   = 3
	defaultRedactionCharacter   = "*"
	defaultModelVersion         = "latest"
	defaultCSVDelimiter         = "|"
	defaultJSONParticipantField = "participant"
	defaultJSONTextField        = "text"
	defaultLogLevel             = "info"
	defaultLogFormat            = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			APIVersion:     defaultAPIVersion,
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
			MaxRetries:     defaultMaxRetries,
			BackoffFactor:  defaultBackoffFactor,
		},
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Poll: Poll{
			InitialIntervalSeconds: defaultInitialPollSeconds,
			MaxIntervalSeconds:     defaultMaxPollSeconds,
			TimeoutSeconds:         defaultPollTimeoutSeconds,
		},
		Run: Run{
			MaxConcurrency:     defaultMaxConcurrency,
			MaxDocumentRetries: defaultMaxDocumentRetries,
		},
		Redaction: Redaction{
			Character:     defaultRedactionCharacter,
			PIICategories: []string{},
			ModelVersion:  defaultModelVersion,
		},
		Ingest: Ingest{
			CSVDelimiter:         defaultCSVDelimiter,
			JSONParticipantField: defaultJSONParticipantField,
			JSONTextField:        defaultJSONTextField,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
