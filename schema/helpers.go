package schema

import (
	"math"
	"strconv"
	"time"
)

// DateFormat is how bucket and forecast dates are serialized.
const DateFormat = "2006-01-02"

// DateTimeFormat is how non-midnight timestamps are serialized.
const DateTimeFormat = "2006-01-02 15:04:05"

// FormatNumber renders a float without trailing zeros. Integral columns render without a decimal point.
func FormatNumber(v float64, integral bool) string {
	switch {
	case math.IsNaN(v):
		return NullLabel
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case integral:
		return strconv.FormatInt(int64(v), 10)
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// FormatTimestamp renders a timestamp as a date when it falls on midnight.
func FormatTimestamp(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateFormat)
	}
	return t.Format(DateTimeFormat)
}

// FormatDates renders a slice of timestamps as plain dates.
func FormatDates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(DateFormat)
	}
	return out
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
