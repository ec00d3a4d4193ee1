package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrTransient      = errors.New("transient failure")
	ErrFatal          = errors.New("fatal failure")
	ErrTimeout        = errors.New("timeout")
	ErrJobFailed      = errors.New("job failed")
	ErrReconciliation = errors.New("reconciliation error")
	ErrSink           = errors.New("sink error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a failed pipeline attempt should be re-run from a
// fresh submission. Validation and configuration problems never resolve on
// retry; everything else (transient HTTP failures, poll timeouts, service-side
// job failures, unexpected response shapes) gets the document-level budget.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) {
		return false
	}
	return true
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
