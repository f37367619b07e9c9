package detect

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/datalens/schema"
)

// existingStrategy accepts columns that are already temporal.
type existingStrategy struct{}

func (existingStrategy) Name() string { return "existing" }

func (existingStrategy) Apply(t *schema.Table, _ map[string]bool) []*schema.Column {
	return t.Temporal()
}

// parseStrategy coerces text columns that parse as timestamps.
type parseStrategy struct{}

func (parseStrategy) Name() string { return "parse" }

func (parseStrategy) Apply(t *schema.Table, accepted map[string]bool) []*schema.Column {
	var out []*schema.Column
	for _, col := range t.Columns {
		if col.Kind != schema.TextKind || accepted[col.Name] {
			continue
		}
		if c, _, ok := tryConventions(col, false); ok {
			out = append(out, c)
		}
	}
	return out
}

// keywordStrategy retries date-named columns with extra layouts. Thresholds are unchanged.
type keywordStrategy struct{}

func (keywordStrategy) Name() string { return "keyword" }

func (keywordStrategy) Apply(t *schema.Table, accepted map[string]bool) []*schema.Column {
	var out []*schema.Column
	for _, col := range t.Columns {
		if col.Kind != schema.TextKind || accepted[col.Name] {
			continue
		}
		if !containsAny(NormalizeName(col.Name), dateKeywords) {
			continue
		}
		if c, _, ok := tryConventions(col, true); ok {
			out = append(out, c)
		}
	}
	return out
}

// yearMonthDayStrategy synthesizes a date from year, month and optional day columns.
type yearMonthDayStrategy struct{}

func (yearMonthDayStrategy) Name() string { return "year_month_day" }

func (yearMonthDayStrategy) Apply(t *schema.Table, _ map[string]bool) []*schema.Column {
	year, month := t.ColumnFold("year"), t.ColumnFold("month")
	if year == nil || month == nil || t.Column(schema.AutoDateColumn) != nil {
		return nil
	}
	day := t.ColumnFold("day")

	n := t.Rows()
	times := make([]time.Time, n)
	valid := make([]bool, n)
	count := 0
	for i := range n {
		y, ok := wholeAt(year, i)
		if !ok {
			continue
		}
		m, ok := wholeAt(month, i)
		if !ok {
			continue
		}
		d := 1
		if day != nil {
			if d, ok = wholeAt(day, i); !ok {
				continue
			}
		}
		if ts, ok := makeDate(y, m, d); ok {
			times[i], valid[i] = ts, true
			count++
		}
	}
	if count < MinSynthesized {
		return nil
	}
	return []*schema.Column{schema.NewTemporalColumn(schema.AutoDateColumn, times, valid)}
}

// yearMonthNameStrategy synthesizes a first-of-month date from year and month-name columns.
type yearMonthNameStrategy struct{}

func (yearMonthNameStrategy) Name() string { return "year_month_name" }

func (yearMonthNameStrategy) Apply(t *schema.Table, _ map[string]bool) []*schema.Column {
	year := t.ColumnFold("year")
	if year == nil || t.Column(schema.AutoDate2Column) != nil {
		return nil
	}
	var monthName *schema.Column
	for _, col := range t.Columns {
		if containsExact(strings.ToLower(col.Name), monthNameColumns) {
			monthName = col
			break
		}
	}
	if monthName == nil {
		return nil
	}

	n := t.Rows()
	times := make([]time.Time, n)
	valid := make([]bool, n)
	count := 0
	for i := range n {
		y, ok := wholeAt(year, i)
		if !ok {
			continue
		}
		m, ok := monthAt(monthName, i)
		if !ok {
			continue
		}
		if ts, ok := makeDate(y, m, 1); ok {
			times[i], valid[i] = ts, true
			count++
		}
	}
	if count < MinSynthesized {
		return nil
	}
	return []*schema.Column{schema.NewTemporalColumn(schema.AutoDate2Column, times, valid)}
}

// makeDate rejects out-of-range parts instead of normalizing them.
func makeDate(y, m, d int) (time.Time, bool) {
	if y < 1 || y > 9999 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	ts := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if ts.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return ts, true
}

// monthAt maps a month name or number in row i to 1..12.
func monthAt(col *schema.Column, i int) (int, bool) {
	if s, ok := col.Text(i); ok {
		key := strings.ToLower(strings.TrimSpace(s))
		if len(key) >= 3 {
			if m, ok := monthAbbrev[key[:3]]; ok {
				return int(m), true
			}
		}
	}
	m, ok := wholeAt(col, i)
	if !ok || m < 1 || m > 12 {
		return 0, false
	}
	return m, true
}

// wholeAt reads row i as an integer, rejecting fractional values.
func wholeAt(col *schema.Column, i int) (int, bool) {
	v, ok := numberAt(col, i)
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// parseLooseNumber parses text such as " 12 " or "3.0".
func parseLooseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func containsExact(name string, options []string) bool {
	for _, o := range options {
		if name == o {
			return true
		}
	}
	return false
}
