// Package core orchestrates parsing, analysis, caching and run tracking for datalens.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/outwriter"
	"github.com/huangsam/datalens/internal/report"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteAnalyze analyzes every configured file and prints the records.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if len(cfg.Files) == 0 {
		return errors.New("at least one file is required")
	}
	start := time.Now()
	outwriter.LogAnalysisHeader(cfg)
	records, err := AnalyzeFiles(ctx, mgr, cfg.Files, cfg.Options, cfg.CacheTTL, cfg.Workers)
	if err != nil {
		return err
	}
	return outwriter.PrintRecords(records, cfg, time.Since(start))
}

// ExecuteForecast analyzes a single file and prints only its forecast.
func ExecuteForecast(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if len(cfg.Files) != 1 {
		return errors.New("exactly one file is required")
	}
	start := time.Now()
	rec, err := AnalyzeFile(ctx, mgr, cfg.Files[0], cfg.Options, cfg.CacheTTL)
	if err != nil {
		return err
	}
	return outwriter.PrintForecast(rec, cfg, time.Since(start))
}

// ExecuteReport analyzes a single file and renders it as a workbook, HTML page or PDF.
// The report goes to --output-file, or report_<id>.<ext> in the working directory.
func ExecuteReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if len(cfg.Files) != 1 {
		return errors.New("exactly one file is required")
	}
	rec, err := AnalyzeFile(ctx, mgr, cfg.Files[0], cfg.Options, cfg.CacheTTL)
	if err != nil {
		return err
	}

	data, err := report.Render(ctx, rec, cfg.Report)
	if err != nil {
		return fmt.Errorf("failed to render %s report: %w", cfg.Report, err)
	}

	path := cfg.OutputFile
	if path == "" {
		path = report.FileName(rec.AnalysisID, cfg.Report)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.UseEmojis {
		fmt.Fprintf(os.Stderr, "💾 Wrote %s report to %s (%s)\n", cfg.Report, path, describe(rec))
	} else {
		fmt.Fprintf(os.Stderr, "Wrote %s report to %s (%s)\n", cfg.Report, path, describe(rec))
	}
	return nil
}
