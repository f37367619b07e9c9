package agg

import "github.com/huangsam/datalens/schema"

// Memory estimate constants, in bytes.
const (
	indexOverhead   = 128
	cellWidth       = 8
	boolWidth       = 1
	textObjectBytes = 49
	nullObjectBytes = 24
)

// Summarize computes table-level statistics over the full table.
func Summarize(t *schema.Table) schema.Summary {
	s := schema.Summary{
		Rows:         t.Rows(),
		Columns:      len(t.Columns),
		MemoryBytes:  EstimateMemory(t),
		DTypes:       make(map[string]string, len(t.Columns)),
		MissingByCol: make(map[string]int, len(t.Columns)),
	}
	for _, col := range t.Columns {
		missing := col.Missing()
		s.DTypes[col.Name] = col.DType()
		s.MissingByCol[col.Name] = missing
		s.MissingTotal += missing
	}
	s.DuplicateRows = DuplicateRows(t)
	return s
}

// Profiles describes each column in table order.
func Profiles(t *schema.Table) []schema.ColumnProfile {
	out := make([]schema.ColumnProfile, 0, len(t.Columns))
	for _, col := range t.Columns {
		samples := make([]string, 0, 5)
		for i := 0; i < col.Len() && len(samples) < 5; i++ {
			if !col.IsNull(i) {
				samples = append(samples, col.Stringify(i))
			}
		}
		out = append(out, schema.ColumnProfile{
			Name:         col.Name,
			DType:        col.DType(),
			Missing:      col.Missing(),
			Unique:       col.Distinct(),
			SampleValues: samples,
		})
	}
	return out
}

// EstimateMemory approximates the in-memory footprint of a dataframe holding t.
func EstimateMemory(t *schema.Table) int64 {
	total := int64(indexOverhead)
	rows := int64(t.Rows())
	for _, col := range t.Columns {
		switch col.Kind {
		case schema.BoolKind:
			total += rows * boolWidth
		case schema.TextKind:
			total += rows * cellWidth
			for i := range col.Len() {
				if s, ok := col.Text(i); ok {
					total += int64(textObjectBytes + len(s))
				} else {
					total += nullObjectBytes
				}
			}
		default:
			total += rows * cellWidth
		}
	}
	return total
}

// DuplicateRows counts rows identical to an earlier row.
func DuplicateRows(t *schema.Table) int {
	seen := make(map[string]struct{}, t.Rows())
	dups := 0
	for i := range t.Rows() {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}
