// Package sink persists redacted records as JSON artifacts, one file per
// document, and answers the existence checks that make re-runs idempotent.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"scrubber/internal/conversation"
	"scrubber/internal/services"
)

// Sink is the output surface the orchestrator depends on.
type Sink interface {
	Exists(id string) (bool, error)
	Write(record conversation.RedactedDocument) (string, error)
}

// Directory writes artifacts into a single output directory. Writes go
// through a temp file and rename so a crashed run never leaves a partial
// artifact that a later run would mistake for completed work.
type Directory struct {
	dir       string
	overwrite bool
	lock      *flock.Flock
}

// NewDirectory creates the output directory if needed and returns a sink
// over it.
func NewDirectory(dir string, overwrite bool) (*Directory, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "sink", "new", "output directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrSink, "sink", "new", "create output directory", err)
	}
	return &Directory{
		dir:       dir,
		overwrite: overwrite,
		lock:      flock.New(filepath.Join(dir, ".scrubber.lock")),
	}, nil
}

// Acquire takes the run lock on the output directory so concurrent processes
// cannot race the check-then-write sequence.
func (d *Directory) Acquire() error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrSink, "sink", "lock", "acquire output directory lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrSink, "sink", "lock",
			fmt.Sprintf("another run holds the output directory %s", d.dir), nil)
	}
	return nil
}

// Release drops the run lock.
func (d *Directory) Release() error {
	return d.lock.Unlock()
}

// Exists reports whether a completed artifact is already present for the id.
func (d *Directory) Exists(id string) (bool, error) {
	path, err := d.artifactPath(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, services.Wrap(services.ErrSink, "sink", "exists", "stat artifact", err)
}

// Write durably persists the record keyed by its document id and returns the
// artifact path. Unless overwrites are enabled, an existing artifact fails
// the write.
func (d *Directory) Write(record conversation.RedactedDocument) (string, error) {
	path, err := d.artifactPath(record.ID)
	if err != nil {
		return "", err
	}

	if !d.overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", services.Wrap(services.ErrSink, "sink", "write",
				fmt.Sprintf("artifact already exists: %s", path), nil)
		}
	}

	encoded, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return "", services.Wrap(services.ErrSink, "sink", "write", "encode record", err)
	}
	encoded = append(encoded, '\n')

	tmp, err := os.CreateTemp(d.dir, "."+record.ID+".tmp-*")
	if err != nil {
		return "", services.Wrap(services.ErrSink, "sink", "write", "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrSink, "sink", "write", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrSink, "sink", "write", "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrSink, "sink", "write", "publish artifact", err)
	}
	return path, nil
}

func (d *Directory) artifactPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", services.Wrap(services.ErrSink, "sink", "path", "document id is empty", nil)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", services.Wrap(services.ErrSink, "sink", "path",
			fmt.Sprintf("document id %q is not a valid artifact name", id), nil)
	}
	return filepath.Join(d.dir, id+".json"), nil
}
