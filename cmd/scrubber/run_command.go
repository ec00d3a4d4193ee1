package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"scrubber/internal/config"
	"scrubber/internal/ingest"
	"scrubber/internal/ledger"
	"scrubber/internal/orchestrator"
	"scrubber/internal/pipeline"
	"scrubber/internal/services/language"
	"scrubber/internal/sink"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var inputDir string
	var outputDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Redact every transcript in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cfg, cmd, inputDir, outputDir, overwrite)

			logger, closer, err := cmdCtx.buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			if closer != nil {
				defer closer.Close()
			}

			out, err := sink.NewDirectory(cfg.Paths.OutputDir, cfg.Run.OverwriteExisting)
			if err != nil {
				return err
			}
			if err := out.Acquire(); err != nil {
				return err
			}
			defer out.Release()

			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			client, err := language.NewFromConfig(cfg, language.WithLogger(logger))
			if err != nil {
				return err
			}
			proc := pipeline.New(client, cfg, logger)
			orch := orchestrator.New(cfg, ingest.NewLoader(cfg), proc, out, store, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := orch.Run(ctx)
			if err != nil {
				return err
			}

			writer := cmd.OutOrStdout()
			fmt.Fprintln(writer, renderSummary(summary))
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d input file(s) failed", summary.Failed,
					summary.Succeeded+summary.Failed+summary.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "Input directory override")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory override")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Reprocess inputs whose artifacts already exist")
	return cmd
}

func applyRunFlags(cfg *config.Config, cmd *cobra.Command, inputDir, outputDir string, overwrite bool) {
	if dir := strings.TrimSpace(inputDir); dir != "" {
		cfg.Paths.InputDir = dir
	}
	if dir := strings.TrimSpace(outputDir); dir != "" {
		cfg.Paths.OutputDir = dir
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Run.OverwriteExisting = overwrite
	}
}

func renderSummary(summary *orchestrator.Summary) string {
	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Run", "Succeeded", "Failed", "Skipped"},
		[][]string{{
			summary.RunID,
			strconv.Itoa(summary.Succeeded),
			strconv.Itoa(summary.Failed),
			strconv.Itoa(summary.Skipped),
		}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
	if len(summary.Failures) > 0 {
		rows := make([][]string, 0, len(summary.Failures))
		for _, failure := range summary.Failures {
			rows = append(rows, []string{failure.Source, failure.Err.Error()})
		}
		b.WriteString("\n")
		b.WriteString(renderTable(
			[]string{"Failed Input", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft},
		))
	}
	return b.String()
}
