// Package report renders an analysis record into downloadable documents.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/huangsam/datalens/schema"
)

// Title heads every rendered report.
const Title = "AI-Powered Data Analysis Report"

// MaxInsights caps the insights shown in HTML and PDF reports.
const MaxInsights = 6

var contentTypes = map[schema.ReportFormat]string{
	schema.XLSXReport: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	schema.HTMLReport: "text/html; charset=utf-8",
	schema.PDFReport:  "application/pdf",
}

// Render builds the report for rec in the requested format.
func Render(ctx context.Context, rec *schema.AnalysisRecord, format schema.ReportFormat) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("no analysis record to render")
	}
	switch format {
	case schema.XLSXReport:
		return renderWorkbook(rec)
	case schema.HTMLReport:
		return renderHTML(rec)
	case schema.PDFReport:
		return renderPDF(ctx, rec)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// FileName returns the attachment name for a report.
func FileName(analysisID string, format schema.ReportFormat) string {
	return fmt.Sprintf("report_%s.%s", analysisID, format)
}

// ContentType returns the MIME type for a report format.
func ContentType(format schema.ReportFormat) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// headerLine is the one-line identity shown under the title.
func headerLine(rec *schema.AnalysisRecord) string {
	return fmt.Sprintf("Analysis ID: %s  |  Rows: %d  |  Columns: %d",
		rec.AnalysisID, rec.Summary.Rows, rec.Summary.Columns)
}

func topInsights(rec *schema.AnalysisRecord) []string {
	if len(rec.Insights) <= MaxInsights {
		return rec.Insights
	}
	return rec.Insights[:MaxInsights]
}

// previewHeader orders preview keys by the profiled column order, then any
// remaining keys alphabetically.
func previewHeader(rec *schema.AnalysisRecord) []string {
	present := make(map[string]struct{})
	for _, row := range rec.PreviewRows {
		for k := range row {
			present[k] = struct{}{}
		}
	}
	var header []string
	for _, c := range rec.Columns {
		if _, ok := present[c.Name]; ok {
			header = append(header, c.Name)
			delete(present, c.Name)
		}
	}
	rest := make([]string, 0, len(present))
	for k := range present {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(header, rest...)
}
