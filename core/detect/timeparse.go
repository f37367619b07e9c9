package detect

import (
	"strings"
	"time"
)

// Convention is the order of day and month in ambiguous numeric dates.
type Convention int

// Supported date conventions, tried in this order.
const (
	MonthFirst Convention = iota
	DayFirst
)

func (c Convention) String() string {
	if c == DayFirst {
		return "day-first"
	}
	return "month-first"
}

// isoLayouts do not depend on the convention.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006.01.02",
	"2006-01",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"Jan 2006",
	"January 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
	time.RFC1123Z,
}

var monthFirstLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1-2-2006",
	"1.2.2006",
	"1/2/06",
	"1-2-06",
}

var dayFirstLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006",
	"2.1.2006",
	"2.1.2006 15:04",
	"2.1.2006 15:04:05",
	"2/1/06",
	"2-1-06",
	"2.1.06",
}

// extendedLayouts are only tried for columns whose names suggest a date.
var extendedLayouts = []string{
	"20060102",
	"200601",
	"01/2006",
	"1/2006",
	"Jan-06",
	"Jan-2006",
	"January-2006",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"02/Jan/2006:15:04:05 -0700",
}

// Parser parses free-text timestamps under one convention.
type Parser struct {
	layouts []string
	cache   map[string]parsed
}

type parsed struct {
	t  time.Time
	ok bool
}

// NewParser returns a parser for the convention. Extended adds compact and partial layouts.
func NewParser(conv Convention, extended bool) *Parser {
	layouts := append([]string(nil), isoLayouts...)
	if conv == DayFirst {
		layouts = append(layouts, dayFirstLayouts...)
	} else {
		layouts = append(layouts, monthFirstLayouts...)
	}
	if extended {
		layouts = append(layouts, extendedLayouts...)
	}
	return &Parser{layouts: layouts, cache: make(map[string]parsed)}
}

// Parse returns the timestamp for s, remembering results for repeated values.
func (p *Parser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if hit, ok := p.cache[s]; ok {
		return hit.t, hit.ok
	}
	for _, l := range p.layouts {
		if t, err := time.Parse(l, s); err == nil {
			t = t.UTC()
			p.cache[s] = parsed{t: t, ok: true}
			return t, true
		}
	}
	p.cache[s] = parsed{}
	return time.Time{}, false
}
