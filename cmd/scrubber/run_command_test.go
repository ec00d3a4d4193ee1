package main

import "testing"

func TestRunWithEmptyInputDirectory(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, _, err := runCLI(t, "--config", cfgPath, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Succeeded")
}

func TestRunRejectsMissingInputDirectory(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, _, err := runCLI(t, "--config", cfgPath, "run", "--input", "/nonexistent/input/dir")
	if err == nil {
		t.Fatal("expected error for missing input directory")
	}
}
