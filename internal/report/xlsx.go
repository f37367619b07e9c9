package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/huangsam/datalens/schema"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SampleSheet       = "SampleData"
	SummarySheet      = "Summary"
	MissingnessSheet  = "Missingness"
	CorrelationsSheet = "Correlations"
)

// renderWorkbook writes the preview, summary, missingness and correlation sheets.
func renderWorkbook(rec *schema.AnalysisRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// NewFile starts with "Sheet1"; rename it so the preview comes first.
	if err := f.SetSheetName(f.GetSheetName(0), SampleSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeSampleSheet(f, rec); err != nil {
		return nil, err
	}
	if err := writeRows(f, SummarySheet, summaryRows(rec.Summary)); err != nil {
		return nil, err
	}
	if err := writeRows(f, MissingnessSheet, missingnessRows(rec.Summary)); err != nil {
		return nil, err
	}
	if hm := rec.Charts.Heatmap; hm != nil {
		if err := writeRows(f, CorrelationsSheet, correlationRows(hm)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeSampleSheet(f *excelize.File, rec *schema.AnalysisRecord) error {
	header := previewHeader(rec)
	rows := make([][]any, 0, len(rec.PreviewRows)+1)
	rows = append(rows, toAny(header))
	for _, pr := range rec.PreviewRows {
		row := make([]any, len(header))
		for i, h := range header {
			row[i] = pr[h]
		}
		rows = append(rows, row)
	}
	return fillSheet(f, SampleSheet, rows)
}

func summaryRows(s schema.Summary) [][]any {
	return [][]any{
		{"", "value"},
		{"rows", s.Rows},
		{"columns", s.Columns},
		{"memory_bytes", s.MemoryBytes},
		{"dtypes", joinPairs(s.DTypes)},
		{"missing_total", s.MissingTotal},
		{"missing_by_col", joinPairs(s.MissingByCol)},
		{"duplicate_rows", s.DuplicateRows},
	}
}

func missingnessRows(s schema.Summary) [][]any {
	rows := [][]any{{"column", "missing"}}
	names := make([]string, 0, len(s.MissingByCol))
	for name := range s.MissingByCol {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, []any{name, s.MissingByCol[name]})
	}
	return rows
}

func correlationRows(hm *schema.Heatmap) [][]any {
	rows := [][]any{append([]any{""}, toAny(hm.Columns)...)}
	for i, name := range hm.Columns {
		row := []any{name}
		for _, v := range hm.Matrix[i] {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows
}

// writeRows creates sheet and fills it row by row from A1.
func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}
	return fillSheet(f, sheet, rows)
}

func fillSheet(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write sheet %q: %w", sheet, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// joinPairs renders a map as "k=v" pairs sorted by key.
func joinPairs[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, ", ")
}
