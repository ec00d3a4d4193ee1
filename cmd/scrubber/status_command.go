package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scrubber/internal/ledger"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the most recent run did",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			writer := cmd.OutOrStdout()
			ctx := cmd.Context()

			target := strings.TrimSpace(runID)
			if target == "" {
				latest, err := store.LatestRun(ctx)
				if err != nil {
					return err
				}
				if latest == nil {
					fmt.Fprintln(writer, "No runs recorded.")
					return nil
				}
				target = latest.ID
			}

			runs, err := store.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(writer, renderRuns(runs))

			records, err := store.Documents(ctx, target)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(writer, "No documents recorded for run %s.\n", target)
				return nil
			}
			fmt.Fprintln(writer, renderDocuments(target, records))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to inspect (defaults to the most recent)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Number of recent runs to list")
	return cmd
}

func renderRuns(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "running"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			finished,
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Skipped),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Finished", "Succeeded", "Failed", "Skipped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderDocuments(runID string, records []ledger.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := rec.OutputPath
		if rec.Status == ledger.StatusFailed {
			detail = rec.ErrorMessage
		}
		rows = append(rows, []string{
			rec.DocumentID,
			string(rec.Status),
			strconv.Itoa(rec.Attempts),
			rec.Source,
			detail,
		})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Documents for run %s:\n", runID)
	b.WriteString(renderTable(
		[]string{"Document", "Status", "Attempts", "Source", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return b.String()
}
