package detect

import (
	"fmt"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"gonum.org/v1/gonum/stat"
)

// Target selection thresholds.
const (
	IDLikeRatio     = 0.98
	MinTargetValues = 6
)

// sumKeywords mark additive measures.
var sumKeywords = []string{
	"sales", "revenue", "amount", "qty", "quantity", "units", "orders", "profit",
	"turnover", "count", "gmv", "visits", "views", "clicks", "volume", "sold",
}

// meanKeywords mark intensive measures.
var meanKeywords = []string{"price", "cost", "rate", "avg", "average", "margin"}

// selectTarget picks the forecast target and how its buckets aggregate.
func (r *Result) selectTarget(override string) error {
	if override != "" {
		col := r.Table.Column(override)
		if col == nil {
			return contract.NewInputError(fmt.Sprintf("target column %q not found", override), nil)
		}
		if col.Kind != schema.NumericKind {
			return contract.NewInputError(fmt.Sprintf("target column %q is not numeric", override), nil)
		}
		r.Target = override
		r.Aggregation = AggregationFor(override)
		return nil
	}

	numerics := r.Table.Numeric()
	if len(numerics) == 0 {
		r.TargetReason = schema.ReasonNoTargetColumn
		return nil
	}

	candidates := Candidates(numerics, r.Table.Rows())
	if len(candidates) == 0 {
		candidates = numerics
	}

	for _, col := range candidates {
		if containsAny(NormalizeName(col.Name), sumKeywords) {
			r.Target, r.Aggregation = col.Name, schema.SumAgg
			return nil
		}
	}
	for _, col := range candidates {
		if containsAny(NormalizeName(col.Name), meanKeywords) {
			r.Target, r.Aggregation = col.Name, schema.MeanAgg
			return nil
		}
	}

	best, bestVar := candidates[0], -1.0
	for _, col := range candidates {
		if v := columnVariance(col); v > bestVar {
			best, bestVar = col, v
		}
	}
	r.Target, r.Aggregation = best.Name, schema.SumAgg
	return nil
}

// Candidates drops ID-like columns and columns with too few values.
func Candidates(numerics []*schema.Column, rows int) []*schema.Column {
	var out []*schema.Column
	for _, col := range numerics {
		if IsIDLike(col, rows) || col.NonNull() < MinTargetValues {
			continue
		}
		out = append(out, col)
	}
	return out
}

// IsIDLike reports whether nearly every value of the column is distinct.
func IsIDLike(col *schema.Column, rows int) bool {
	if rows == 0 {
		return false
	}
	return float64(col.Distinct())/float64(rows) >= IDLikeRatio
}

// AggregationFor infers the bucket aggregation from a column name.
func AggregationFor(name string) schema.Aggregation {
	norm := NormalizeName(name)
	if !containsAny(norm, sumKeywords) && containsAny(norm, meanKeywords) {
		return schema.MeanAgg
	}
	return schema.SumAgg
}

// columnVariance is the sample variance of non-null values, or 0 when undefined.
func columnVariance(col *schema.Column) float64 {
	var xs []float64
	for i := range col.Len() {
		if v, ok := col.Float(i); ok {
			xs = append(xs, v)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	return stat.Variance(xs, nil)
}
