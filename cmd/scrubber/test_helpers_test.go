package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig lays down a minimal valid config rooted in a temp dir and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[service]
endpoint = "https://example.cognitiveservices.azure.com/"
api_key = "test-key-1234"

[paths]
input_dir = %q
output_dir = %q
state_dir = %q
log_dir = %q

[logging]
format = "console"
`,
		filepath.Join(base, "input"),
		filepath.Join(base, "output"),
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"))

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "input"), 0o755); err != nil {
		t.Fatalf("create input dir: %v", err)
	}
	return path
}

// runCLI executes the root command with args and returns captured stdout and
// stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
