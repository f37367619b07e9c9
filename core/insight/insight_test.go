package insight

import (
	"math"
	"testing"
	"time"

	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numCol(name string, vals ...float64) *schema.Column {
	valid := make([]bool, len(vals))
	for i := range valid {
		valid[i] = true
	}
	return schema.NewNumericColumn(name, vals, valid)
}

func mustTable(t *testing.T, cols ...*schema.Column) *schema.Table {
	t.Helper()
	tbl, err := schema.NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

// TestGenerateFallback tests the healthy-data notice.
func TestGenerateFallback(t *testing.T) {
	tbl := mustTable(t, numCol("x", 1, 2, 3))
	got := Generate(Input{Table: tbl, Summary: schema.Summary{Rows: 3}, Charts: schema.NewChartBundle()})
	assert.Equal(t, []string{HealthyDataNotice}, got)
}

// TestMissingness tests ordering and the cap of the missingness rule.
func TestMissingness(t *testing.T) {
	tbl := mustTable(t,
		numCol("a", 1), numCol("b", 1), numCol("c", 1), numCol("d", 1), numCol("e", 1),
	)
	summary := schema.Summary{
		Rows:         10,
		MissingByCol: map[string]int{"a": 1, "b": 3, "c": 0, "d": 3, "e": 2},
	}
	got := missingness(Input{Table: tbl, Summary: summary})
	assert.Equal(t, []string{
		"Column 'b' has 3 missing values (30.0%). Consider imputation or dropping.",
		"Column 'd' has 3 missing values (30.0%). Consider imputation or dropping.",
		"Column 'e' has 2 missing values (20.0%). Consider imputation or dropping.",
	}, got)
}

// TestCorrelation tests the strong-relationship rule.
func TestCorrelation(t *testing.T) {
	heatmap := &schema.Heatmap{
		Columns: []string{"A", "B", "C"},
		Matrix: [][]float64{
			{1, 0.3, -0.8},
			{0.3, 1, 0.1},
			{-0.8, 0.1, 1},
		},
	}
	got := correlation(Input{Charts: schema.ChartBundle{Heatmap: heatmap}})
	assert.Equal(t, []string{"Strong relationship detected between 'A' and 'C' (|r|=0.80)."}, got)

	heatmap.Matrix[0][2], heatmap.Matrix[2][0] = 0.59, 0.59
	assert.Empty(t, correlation(Input{Charts: schema.ChartBundle{Heatmap: heatmap}}))
}

// TestDominantCategories tests the first two bar charts only.
func TestDominantCategories(t *testing.T) {
	bars := []schema.BarCount{
		{Column: "city", Labels: []string{"Oslo", "Rome"}, Counts: []int{3, 1}},
		{Column: "empty"},
		{Column: "third", Labels: []string{"z"}, Counts: []int{1}},
	}
	got := dominantCategories(Input{Charts: schema.ChartBundle{BarCounts: bars}})
	assert.Equal(t, []string{"In 'city', 'Oslo' is the most frequent category (75.0%)."}, got)
}

// TestSkewBoundary tests the strict skew threshold.
func TestSkewBoundary(t *testing.T) {
	_, ok := skewLine("x", 1.0)
	assert.False(t, ok)
	_, ok = skewLine("x", -1.0)
	assert.False(t, ok)

	line, ok := skewLine("x", 1.01)
	assert.True(t, ok)
	assert.Equal(t, "'x' appears right-skewed (skew=1.01); consider transform or robust stats.", line)

	line, ok = skewLine("y", -1.5)
	assert.True(t, ok)
	assert.Contains(t, line, "left-skewed (skew=-1.50)")
}

// TestSkewness tests the value-count gate and direction on real data.
func TestSkewness(t *testing.T) {
	long := numCol("long", 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 10)
	short := numCol("short", 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 10)
	short.Valid[0] = false // 10 values is not enough

	got := skewness(Input{Table: mustTable(t, long, short)})
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "'long' appears right-skewed")
}

// TestSampleSkew tests the adjusted Fisher-Pearson estimator.
func TestSampleSkew(t *testing.T) {
	assert.InDelta(t, 0, SampleSkew([]float64{1, 2, 3, 4, 5}), 1e-12)
	// pandas: pd.Series([1, 2, 3, 10]).skew()
	assert.InDelta(t, 1.7636, SampleSkew([]float64{1, 2, 3, 10}), 1e-4)
	assert.True(t, math.IsNaN(SampleSkew([]float64{1, 2})))
}

// TestTrend tests the time correlation rule.
func TestTrend(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 8
	times := make([]time.Time, n)
	valid := make([]bool, n)
	vals := make([]float64, n)
	for i := range n {
		times[i], valid[i], vals[i] = start.AddDate(0, 0, i), true, float64(100-i*3)
	}
	tbl := mustTable(t, schema.NewTemporalColumn("date", times, valid), numCol("sales", vals...))

	got := trend(Input{Table: tbl, Temporal: []string{"date"}})
	assert.Equal(t, []string{"'sales' shows a mildly decreasing trend over time (r=-1.00)."}, got)

	assert.Empty(t, trend(Input{Table: tbl}))
}

// TestForecastTotal tests the forecast rule and full ordering.
func TestForecastTotal(t *testing.T) {
	fc := &schema.ForecastResult{
		Target:    "sales",
		Horizon:   2,
		Frequency: schema.Daily,
		Forecast:  schema.Projection{X: []string{"2024-01-01", "2024-01-02"}, YHat: []float64{1.5, 2.25}},
	}
	tbl := mustTable(t, numCol("sales", 1, 2))
	summary := schema.Summary{Rows: 2, MissingByCol: map[string]int{"sales": 1}}

	got := Generate(Input{Table: tbl, Summary: summary, Charts: schema.NewChartBundle(), Forecast: fc})
	assert.Equal(t, []string{
		"Column 'sales' has 1 missing values (50.0%). Consider imputation or dropping.",
		"Forecast for 'sales' sums to 3.75 over the next 2 days (frequency D).",
	}, got)
}
