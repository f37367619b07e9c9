// Package tableio decodes uploaded CSV and XLSX files into schema tables.
package tableio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
)

// Supported file extensions.
const (
	extCSV  = ".csv"
	extTSV  = ".tsv"
	extTXT  = ".txt"
	extXLSX = ".xlsx"
	extXLSM = ".xlsm"
)

// Load decodes data according to the extension of name. Anything that is not
// a workbook is read as delimited text.
func Load(name string, data []byte) (*schema.Table, error) {
	if len(data) == 0 {
		return nil, contract.NewInputError("empty file", contract.ErrEmptyInput)
	}

	var (
		header []string
		rows   [][]string
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case extXLSX, extXLSM:
		header, rows, err = readWorkbook(data)
	default:
		header, rows, err = readDelimited(data, sniffDelimiter(ext, data))
	}
	if err != nil {
		return nil, contract.NewInputError(fmt.Sprintf("could not parse %s", filepath.Base(name)), err)
	}
	if len(header) == 0 {
		return nil, contract.NewInputError("no columns parsed from file", contract.ErrNoRows)
	}
	return build(header, rows)
}

// LoadFile reads a file from disk and decodes it with Load.
func LoadFile(path string) (*schema.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Load(path, data)
}

// build normalizes the header, squares off ragged rows and infers column kinds.
func build(header []string, rows [][]string) (*schema.Table, error) {
	names := dedupeHeader(header)
	width := len(names)
	cells := make([][]string, width)
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		for j := 0; j < width && j < len(row); j++ {
			cells[j][i] = row[j]
		}
	}

	t := &schema.Table{}
	for j, name := range names {
		if err := t.Append(inferColumn(name, cells[j])); err != nil {
			return nil, fmt.Errorf("failed to build column %q: %w", name, err)
		}
	}
	return t, nil
}

// dedupeHeader fills blank names and suffixes repeated names with ".N".
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			suffix[base]++
			name = fmt.Sprintf("%s.%d", base, suffix[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
