// Package orchestrator drives a batch run end to end: discover inputs, skip
// work whose artifacts already exist, and push the rest through the pipeline
// with a bounded worker pool.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"scrubber/internal/config"
	"scrubber/internal/conversation"
	"scrubber/internal/ingest"
	"scrubber/internal/ledger"
	"scrubber/internal/logging"
	"scrubber/internal/sink"
)

// Processor redacts a single document and reports the attempts consumed.
// Satisfied by pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, doc conversation.Document, timestamps conversation.Timestamps) (conversation.RedactedDocument, int, error)
}

// Failure captures one input file that could not be fully processed.
type Failure struct {
	Source string
	Err    error
}

// Summary reports a run's outcome in input-file units. A multi-document file
// counts once and succeeds only when every document in it succeeded.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []Failure
}

// Orchestrator coordinates one batch run.
type Orchestrator struct {
	cfg       *config.Config
	loader    *ingest.Loader
	processor Processor
	out       sink.Sink
	store     *ledger.Store
	logger    *slog.Logger
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, loader *ingest.Loader, processor Processor, out sink.Sink, store *ledger.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		loader:    loader,
		processor: processor,
		out:       out,
		store:     store,
		logger:    logging.WithComponent(logger, "orchestrator"),
	}
}

// Run processes every eligible input file and returns the tally. Failures of
// individual files are reported in the summary, not as an error; the error
// return is reserved for faults that prevent the run itself.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	paths, err := ingest.Discover(o.cfg.Paths.InputDir)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	summary := &Summary{RunID: runID}
	logger := o.logger.With(logging.FieldRunID, runID)

	if len(paths) == 0 {
		logger.Info("no input files found", "input_dir", o.cfg.Paths.InputDir)
		return summary, nil
	}

	if err := o.store.BeginRun(ctx, runID); err != nil {
		return nil, err
	}

	// Parse every file up front so a multi-document file is only skipped
	// when all of its sibling artifacts exist.
	var pending []*ingest.Unit
	for _, path := range paths {
		unit, err := o.loader.Load(path)
		if err != nil {
			logger.Error("failed to parse input", logging.FieldSource, path, "error", err)
			o.recordFailure(ctx, runID, ingest.Unit{Source: path}, err)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Source: path, Err: err})
			continue
		}
		complete, err := o.artifactsComplete(unit)
		if err != nil {
			return nil, err
		}
		if complete {
			logger.Info("skipping input, artifacts already exist", logging.FieldSource, unit.Source)
			o.recordSkips(ctx, runID, unit)
			summary.Skipped++
			continue
		}
		pending = append(pending, unit)
	}

	o.processPending(ctx, runID, logger, pending, summary)

	if err := o.store.FinishRun(ctx, runID, summary.Succeeded, summary.Failed, summary.Skipped); err != nil {
		logger.Error("failed to finalize run ledger", "error", err)
	}
	logger.Info("run complete",
		"succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

func (o *Orchestrator) processPending(ctx context.Context, runID string, logger *slog.Logger, pending []*ingest.Unit, summary *Summary) {
	if len(pending) == 0 {
		return
	}

	workers := o.cfg.Run.MaxConcurrency
	if workers > len(pending) {
		workers = len(pending)
	}
	if workers < 1 {
		workers = 1
	}
	logger.Info("processing inputs", "count", len(pending), "workers", workers)

	units := make(chan *ingest.Unit)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range units {
				err := o.processUnit(ctx, runID, unit)
				mu.Lock()
				if err != nil {
					summary.Failed++
					summary.Failures = append(summary.Failures, Failure{Source: unit.Source, Err: err})
				} else {
					summary.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

	for _, unit := range pending {
		select {
		case units <- unit:
		case <-ctx.Done():
			mu.Lock()
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Source: unit.Source, Err: ctx.Err()})
			mu.Unlock()
		}
	}
	close(units)
	wg.Wait()
}

// processUnit redacts every document of one input file. The first document
// failure fails the whole file so a rerun revisits it.
func (o *Orchestrator) processUnit(ctx context.Context, runID string, unit *ingest.Unit) error {
	logger := o.logger.With(logging.FieldRunID, runID, logging.FieldSource, unit.Source)

	for _, doc := range unit.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Another run may have produced this artifact since the
		// eligibility scan.
		exists, err := o.out.Exists(doc.ID)
		if err != nil {
			return err
		}
		if exists {
			logger.Info("artifact already exists", logging.FieldDocumentID, doc.ID)
			o.record(ctx, ledger.Record{
				RunID: runID, DocumentID: doc.ID, Source: unit.Source,
				Status: ledger.StatusSkipped,
			})
			continue
		}

		o.record(ctx, ledger.Record{
			RunID: runID, DocumentID: doc.ID, Source: unit.Source,
			Status: ledger.StatusProcessing,
		})

		redacted, attempts, err := o.processor.Process(ctx, doc.Document, doc.Timestamps)
		if err != nil {
			logger.Error("document failed", logging.FieldDocumentID, doc.ID, "error", err)
			o.record(ctx, ledger.Record{
				RunID: runID, DocumentID: doc.ID, Source: unit.Source,
				Status: ledger.StatusFailed, Attempts: attempts, ErrorMessage: err.Error(),
			})
			return err
		}

		path, err := o.out.Write(redacted)
		if err != nil {
			logger.Error("artifact write failed", logging.FieldDocumentID, doc.ID, "error", err)
			o.record(ctx, ledger.Record{
				RunID: runID, DocumentID: doc.ID, Source: unit.Source,
				Status: ledger.StatusFailed, Attempts: attempts, ErrorMessage: err.Error(),
			})
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}

		logger.Info("document redacted", logging.FieldDocumentID, doc.ID, "artifact", path)
		o.record(ctx, ledger.Record{
			RunID: runID, DocumentID: doc.ID, Source: unit.Source,
			Status: ledger.StatusCompleted, Attempts: attempts, OutputPath: path,
		})
	}
	return nil
}

// artifactsComplete reports whether every document of the unit already has an
// artifact. Overwrite mode forces reprocessing regardless.
func (o *Orchestrator) artifactsComplete(unit *ingest.Unit) (bool, error) {
	if o.cfg.Run.OverwriteExisting {
		return false, nil
	}
	if len(unit.Documents) == 0 {
		return false, nil
	}
	for _, doc := range unit.Documents {
		exists, err := o.out.Exists(doc.ID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

func (o *Orchestrator) recordSkips(ctx context.Context, runID string, unit *ingest.Unit) {
	for _, doc := range unit.Documents {
		o.record(ctx, ledger.Record{
			RunID: runID, DocumentID: doc.ID, Source: unit.Source,
			Status: ledger.StatusSkipped,
		})
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, runID string, unit ingest.Unit, err error) {
	o.record(ctx, ledger.Record{
		RunID: runID, DocumentID: unitDocumentID(unit), Source: unit.Source,
		Status: ledger.StatusFailed, ErrorMessage: err.Error(),
	})
}

func (o *Orchestrator) record(ctx context.Context, rec ledger.Record) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordDocument(ctx, rec); err != nil {
		o.logger.Warn("ledger write failed", logging.FieldDocumentID, rec.DocumentID, "error", err)
	}
}

func unitDocumentID(unit ingest.Unit) string {
	if len(unit.Documents) > 0 {
		return unit.Documents[0].ID
	}
	name := filepath.Base(unit.Source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
