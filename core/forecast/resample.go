package forecast

import (
	"sort"
	"time"

	"github.com/huangsam/datalens/schema"
)

// Point is one observation of the target.
type Point struct {
	At    time.Time
	Value float64
}

// Bucket is one resampled period, labelled by its closing date.
type Bucket struct {
	Label time.Time
	Value float64
}

// BucketLabel returns the label of the period holding ts: the day itself,
// the Sunday closing its week, or the last day of its month.
func BucketLabel(ts time.Time, freq schema.Frequency) time.Time {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	switch freq {
	case schema.Weekly:
		return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	case schema.Monthly:
		return monthEnd(day)
	default:
		return day
	}
}

// NextLabel returns the label one period after label.
func NextLabel(label time.Time, freq schema.Frequency) time.Time {
	switch freq {
	case schema.Weekly:
		return label.AddDate(0, 0, 7)
	case schema.Monthly:
		first := time.Date(label.Year(), label.Month(), 1, 0, 0, 0, 0, time.UTC)
		return monthEnd(first.AddDate(0, 1, 0))
	default:
		return label.AddDate(0, 0, 1)
	}
}

func monthEnd(day time.Time) time.Time {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// Resample groups points by period and aggregates them. Only periods holding at
// least one point are returned, in ascending order.
func Resample(points []Point, freq schema.Frequency, agg schema.Aggregation) []Bucket {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, p := range points {
		label := BucketLabel(p.At, freq)
		sums[label] += p.Value
		counts[label]++
	}

	out := make([]Bucket, 0, len(sums))
	for label, sum := range sums {
		v := sum
		if agg == schema.MeanAgg {
			v = sum / float64(counts[label])
		}
		out = append(out, Bucket{Label: label, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label.Before(out[j].Label) })
	return out
}
