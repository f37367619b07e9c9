// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"golang.org/x/term"
)

// stderr receives status lines.
var stderr io.Writer = os.Stderr

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRecords prints analysis records using the configured output format.
func (ow *OutWriter) WriteRecords(records []*schema.AnalysisRecord, cfg *contract.Config, duration time.Duration) error {
	return PrintRecords(records, cfg, duration)
}

// WriteForecast prints the forecast of a record using the configured output format.
func (ow *OutWriter) WriteForecast(rec *schema.AnalysisRecord, cfg *contract.Config, duration time.Duration) error {
	return PrintForecast(rec, cfg, duration)
}

// GetMaxTableTextWidth calculates the maximum width for free-text cells (sample
// values, insights) based on terminal width.
func GetMaxTableTextWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Column, DType, Missing and Unique with borders and padding
	available := termWidth - 60
	if available < 20 {
		return 20
	}
	if available > 80 {
		return 80
	}
	return available
}

// LogAnalysisHeader prints a short banner for an analysis run to stderr.
func LogAnalysisHeader(cfg *contract.Config) {
	if cfg.Output != schema.TextOut {
		return
	}
	names := make([]string, len(cfg.Files))
	for i, f := range cfg.Files {
		names[i] = baseName(f)
	}
	prefix := ""
	if cfg.UseEmojis {
		prefix = "🔎 "
	}
	title := fmt.Sprintf("%sAnalyzing %d file(s): %s", prefix, len(names), strings.Join(names, ", "))
	if cfg.UseColors {
		title = contract.HeaderColor.Sprint(title)
	}
	fmt.Fprintln(stderr, title)
	if cfg.Options != (schema.AnalyzeOptions{}) {
		fmt.Fprintf(stderr, "   frequency=%s horizon=%d target=%s date-col=%s\n",
			orAuto(string(cfg.Options.Frequency)), cfg.Options.Horizon, orAuto(cfg.Options.Target), orAuto(cfg.Options.DateCol))
	}
}

func orAuto(s string) string {
	if s == "" {
		return "auto"
	}
	return s
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
