// Package schema has models, enums and shared helpers for all parts of datalens.
package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column is a named, nullable sequence of values of a single kind.
// Exactly one of the value slices is populated, matching Kind.
type Column struct {
	Name     string
	Kind     ColumnKind
	Integral bool // numeric values are all whole numbers

	Floats []float64
	Texts  []string
	Bools  []bool
	Times  []time.Time
	Valid  []bool // Valid[i] is false when row i is null
}

// maxExactInt is the largest magnitude at which every whole float64 is exact.
const maxExactInt = 1 << 53

// NewNumericColumn builds a numeric column. NaN and infinite values are
// treated as null. The column is integral only when every value is a whole
// number that fits in an int64 without loss.
func NewNumericColumn(name string, values []float64, valid []bool) *Column {
	integral := true
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			valid[i] = false
		}
		if valid[i] && (v != math.Trunc(v) || math.Abs(v) > maxExactInt) {
			integral = false
		}
	}
	return &Column{Name: name, Kind: NumericKind, Integral: integral, Floats: values, Valid: valid}
}

// NewTextColumn builds a text column.
func NewTextColumn(name string, values []string, valid []bool) *Column {
	return &Column{Name: name, Kind: TextKind, Texts: values, Valid: valid}
}

// NewBoolColumn builds a boolean column.
func NewBoolColumn(name string, values []bool, valid []bool) *Column {
	return &Column{Name: name, Kind: BoolKind, Bools: values, Valid: valid}
}

// NewTemporalColumn builds a temporal column.
func NewTemporalColumn(name string, values []time.Time, valid []bool) *Column {
	return &Column{Name: name, Kind: TemporalKind, Times: values, Valid: valid}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Valid) }

// IsNull reports whether row i holds no value.
func (c *Column) IsNull(i int) bool { return !c.Valid[i] }

// Float returns the numeric value at row i. Booleans map to 0/1.
func (c *Column) Float(i int) (float64, bool) {
	if !c.Valid[i] {
		return 0, false
	}
	switch c.Kind {
	case NumericKind:
		return c.Floats[i], true
	case BoolKind:
		if c.Bools[i] {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Time returns the timestamp at row i for temporal columns.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.Kind != TemporalKind || !c.Valid[i] {
		return time.Time{}, false
	}
	return c.Times[i], true
}

// Text returns the raw text at row i for text columns.
func (c *Column) Text(i int) (string, bool) {
	if c.Kind != TextKind || !c.Valid[i] {
		return "", false
	}
	return c.Texts[i], true
}

// Stringify renders row i the way it is shown to users. Nulls render as "NaN".
func (c *Column) Stringify(i int) string {
	if !c.Valid[i] {
		return NullLabel
	}
	switch c.Kind {
	case NumericKind:
		return FormatNumber(c.Floats[i], c.Integral)
	case BoolKind:
		if c.Bools[i] {
			return "True"
		}
		return "False"
	case TemporalKind:
		return FormatTimestamp(c.Times[i])
	default:
		return c.Texts[i]
	}
}

// Value returns row i as a JSON-friendly value, or nil for null.
func (c *Column) Value(i int) any {
	if !c.Valid[i] {
		return nil
	}
	switch c.Kind {
	case NumericKind:
		if c.Integral {
			return int64(c.Floats[i])
		}
		return c.Floats[i]
	case BoolKind:
		return c.Bools[i]
	case TemporalKind:
		return FormatTimestamp(c.Times[i])
	default:
		return c.Texts[i]
	}
}

// NonNull returns the number of non-null rows.
func (c *Column) NonNull() int {
	n := 0
	for _, ok := range c.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Missing returns the number of null rows.
func (c *Column) Missing() int { return c.Len() - c.NonNull() }

// Distinct returns the number of distinct non-null values.
func (c *Column) Distinct() int {
	seen := make(map[string]struct{})
	for i := range c.Valid {
		if !c.Valid[i] {
			continue
		}
		seen[c.key(i)] = struct{}{}
	}
	return len(seen)
}

// key is an exact identity for row i, used for distinct and duplicate counts.
func (c *Column) key(i int) string {
	if !c.Valid[i] {
		return "\x00"
	}
	switch c.Kind {
	case NumericKind:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case TemporalKind:
		return strconv.FormatInt(c.Times[i].UnixNano(), 10)
	default:
		return c.Stringify(i)
	}
}

// DType returns the declared kind using the names report consumers expect.
func (c *Column) DType() string {
	switch c.Kind {
	case NumericKind:
		if c.Integral && c.NonNull() == c.Len() {
			return "int64"
		}
		return "float64"
	case BoolKind:
		return "bool"
	case TemporalKind:
		return "datetime64[ns]"
	default:
		return "object"
	}
}

// Table is an ordered set of uniquely named columns of equal length.
type Table struct {
	Columns []*Column
}

// NewTable validates column names and lengths.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{}
	for _, c := range cols {
		if err := t.Append(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Append adds a column to the end of the table.
func (t *Table) Append(c *Column) error {
	if t.Column(c.Name) != nil {
		return fmt.Errorf("duplicate column name %q", c.Name)
	}
	if len(t.Columns) > 0 && c.Len() != t.Rows() {
		return fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.Rows())
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnFold looks up the first column whose name matches case-insensitively.
func (t *Table) ColumnFold(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// Numeric returns the numeric columns in table order.
func (t *Table) Numeric() []*Column { return t.ofKind(NumericKind) }

// Temporal returns the temporal columns in table order.
func (t *Table) Temporal() []*Column { return t.ofKind(TemporalKind) }

// Categorical returns text and boolean columns in table order.
func (t *Table) Categorical() []*Column { return t.ofKind(TextKind, BoolKind) }

func (t *Table) ofKind(kinds ...ColumnKind) []*Column {
	var out []*Column
	for _, c := range t.Columns {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// RowKey joins the identities of every cell in row i.
func (t *Table) RowKey(i int) string {
	var sb strings.Builder
	for j, c := range t.Columns {
		if j > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(c.key(i))
	}
	return sb.String()
}

// Take returns a new table holding the given rows in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for j, c := range t.Columns {
		nc := &Column{Name: c.Name, Kind: c.Kind, Integral: c.Integral, Valid: make([]bool, len(rows))}
		switch c.Kind {
		case NumericKind:
			nc.Floats = make([]float64, len(rows))
		case TextKind:
			nc.Texts = make([]string, len(rows))
		case BoolKind:
			nc.Bools = make([]bool, len(rows))
		case TemporalKind:
			nc.Times = make([]time.Time, len(rows))
		}
		for k, r := range rows {
			nc.Valid[k] = c.Valid[r]
			switch c.Kind {
			case NumericKind:
				nc.Floats[k] = c.Floats[r]
			case TextKind:
				nc.Texts[k] = c.Texts[r]
			case BoolKind:
				nc.Bools[k] = c.Bools[r]
			case TemporalKind:
				nc.Times[k] = c.Times[r]
			}
		}
		out.Columns[j] = nc
	}
	return out
}

// Replace swaps the column with the same name for c, keeping its position.
func (t *Table) Replace(c *Column) error {
	for i, old := range t.Columns {
		if old.Name == c.Name {
			if c.Len() != old.Len() {
				return fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), old.Len())
			}
			t.Columns[i] = c
			return nil
		}
	}
	return fmt.Errorf("column %q not found", c.Name)
}

// Clone returns a shallow copy whose column list can be changed independently.
func (t *Table) Clone() *Table {
	return &Table{Columns: append([]*Column(nil), t.Columns...)}
}
