package ledger_test

import (
	"context"
	"testing"

	"scrubber/internal/ledger"
	"scrubber/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.BeginRun(ctx, "run-1"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.RecordDocument(ctx, ledger.Record{
		RunID:      "run-1",
		DocumentID: "call-01",
		Source:     "call-01.csv",
		Status:     ledger.StatusProcessing,
	}); err != nil {
		t.Fatalf("RecordDocument: %v", err)
	}
	if err := store.RecordDocument(ctx, ledger.Record{
		RunID:      "run-1",
		DocumentID: "call-01",
		Source:     "call-01.csv",
		Status:     ledger.StatusCompleted,
		Attempts:   1,
		OutputPath: "/out/call-01.json",
	}); err != nil {
		t.Fatalf("RecordDocument update: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", 1, 0, 0); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	records, err := store.Documents(ctx, "run-1")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != ledger.StatusCompleted || rec.Attempts != 1 || rec.OutputPath != "/out/call-01.json" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	run, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run == nil || run.ID != "run-1" {
		t.Fatalf("unexpected latest run: %+v", run)
	}
	if run.FinishedAt == nil || run.Succeeded != 1 {
		t.Fatalf("run not finalized: %+v", run)
	}
}

func TestLatestRunEmptyLedger(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))

	run, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil run for empty ledger, got %+v", run)
	}
}

func TestRecentRunsOrdering(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.BeginRun(ctx, id); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestFailedDocumentKeepsErrorMessage(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.BeginRun(ctx, "run-1"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.RecordDocument(ctx, ledger.Record{
		RunID:        "run-1",
		DocumentID:   "call-02",
		Status:       ledger.StatusFailed,
		Attempts:     3,
		ErrorMessage: "analysis job failed",
	}); err != nil {
		t.Fatalf("RecordDocument: %v", err)
	}

	records, err := store.Documents(ctx, "run-1")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if records[0].ErrorMessage != "analysis job failed" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}
