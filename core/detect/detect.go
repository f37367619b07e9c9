// Package detect infers temporal columns and picks the date and target columns of a table.
package detect

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"github.com/mozillazg/go-unidecode"
)

// Thresholds shared by the temporal strategies.
const (
	MinParseRate    = 0.40
	MinDistinctTime = 6
	MinSynthesized  = 6
)

// dateKeywords mark column names that deserve a second parsing attempt.
var dateKeywords = []string{
	"date", "time", "timestamp", "datetime", "orderdate", "order_date",
	"invoice", "sale", "created", "posted",
}

// monthNameColumns are the accepted spellings of a month-name column.
var monthNameColumns = []string{"monthname", "month_name", "month name"}

// monthAbbrev maps three-letter month prefixes to months.
var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Result is the outcome of detection over one table.
type Result struct {
	Table        *schema.Table // table with coercions and synthesized columns applied
	Temporal     []string      // accepted temporal columns, in acceptance order
	DateCol      string
	Target       string
	Aggregation  schema.Aggregation
	DateReason   string
	TargetReason string
	AcceptedBy   map[string]string // column -> strategy name
}

// Reason returns the first detection gap, if any.
func (r *Result) Reason() string {
	if r.DateReason != "" {
		return r.DateReason
	}
	return r.TargetReason
}

// Strategy is one step of temporal detection. Apply returns the columns it accepts,
// or nil when it has nothing to contribute.
type Strategy interface {
	Name() string
	Apply(t *schema.Table, accepted map[string]bool) []*schema.Column
}

// DefaultChain is the fixed priority order of temporal strategies.
func DefaultChain() []Strategy {
	return []Strategy{
		existingStrategy{},
		parseStrategy{},
		keywordStrategy{},
		yearMonthDayStrategy{},
		yearMonthNameStrategy{},
	}
}

// Detect runs the strategy chain, then selects the date and target columns.
// The input table is not modified; Result.Table holds the coerced view.
func Detect(in *schema.Table, opts schema.AnalyzeOptions) (*Result, error) {
	t := in.Clone()
	res := &Result{
		Table:      t,
		AcceptedBy: make(map[string]string),
	}
	accepted := make(map[string]bool)

	for _, s := range DefaultChain() {
		for _, col := range s.Apply(t, accepted) {
			var err error
			if t.Column(col.Name) != nil {
				err = t.Replace(col)
			} else {
				err = t.Append(col)
			}
			if err != nil {
				return nil, fmt.Errorf("%s strategy: %w", s.Name(), err)
			}
			accepted[col.Name] = true
			res.AcceptedBy[col.Name] = s.Name()
			res.Temporal = append(res.Temporal, col.Name)
		}
	}

	if err := res.selectDate(opts.DateCol); err != nil {
		return nil, err
	}
	if err := res.selectTarget(opts.Target); err != nil {
		return nil, err
	}
	return res, nil
}

// selectDate picks the accepted temporal column with the most distinct values.
func (r *Result) selectDate(override string) error {
	if override != "" {
		col := r.Table.Column(override)
		if col == nil {
			return contract.NewInputError(fmt.Sprintf("date column %q not found", override), nil)
		}
		if col.Kind != schema.TemporalKind {
			coerced, ok := coerceAny(col)
			if !ok {
				r.DateReason = schema.ReasonNoValidRows
				return nil
			}
			if err := r.Table.Replace(coerced); err != nil {
				return err
			}
		}
		r.DateCol = override
		return nil
	}

	best, bestDistinct := "", 0
	for _, name := range r.Temporal {
		if d := r.Table.Column(name).Distinct(); d > bestDistinct {
			best, bestDistinct = name, d
		}
	}
	if bestDistinct < MinDistinctTime {
		r.DateReason = schema.ReasonNoDateColumn
		return nil
	}
	r.DateCol = best
	return nil
}

// coerceAny parses an arbitrary column as timestamps under either convention.
func coerceAny(col *schema.Column) (*schema.Column, bool) {
	if col.Kind != schema.TextKind {
		return nil, false
	}
	for _, conv := range []Convention{MonthFirst, DayFirst} {
		c, rate, _ := coerceText(col, NewParser(conv, true))
		if rate > 0 {
			return c, true
		}
	}
	return nil, false
}

// coerceText parses a text column and reports parse rate over non-null values and distinct timestamps.
func coerceText(col *schema.Column, p *Parser) (*schema.Column, float64, int) {
	n := col.Len()
	times := make([]time.Time, n)
	valid := make([]bool, n)
	nonNull, parsedCount := 0, 0
	distinct := make(map[int64]struct{})
	for i := range n {
		s, ok := col.Text(i)
		if !ok {
			continue
		}
		nonNull++
		if ts, ok := p.Parse(s); ok {
			times[i], valid[i] = ts, true
			parsedCount++
			distinct[ts.UnixNano()] = struct{}{}
		}
	}
	if nonNull == 0 {
		return nil, 0, 0
	}
	return schema.NewTemporalColumn(col.Name, times, valid), float64(parsedCount) / float64(nonNull), len(distinct)
}

// tryConventions attempts month-first then day-first and returns the first accepted coercion.
func tryConventions(col *schema.Column, extended bool) (*schema.Column, Convention, bool) {
	for _, conv := range []Convention{MonthFirst, DayFirst} {
		c, rate, distinct := coerceText(col, NewParser(conv, extended))
		if c != nil && rate >= MinParseRate && distinct >= MinDistinctTime {
			return c, conv, true
		}
	}
	return nil, MonthFirst, false
}

// NormalizeName lower-cases and transliterates a column name for keyword matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(name)))
}

func containsAny(name string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// numberAt reads row i of a numeric or numeric-looking text column.
func numberAt(col *schema.Column, i int) (float64, bool) {
	if v, ok := col.Float(i); ok {
		return v, !math.IsNaN(v)
	}
	if s, ok := col.Text(i); ok {
		return parseLooseNumber(s)
	}
	return 0, false
}
