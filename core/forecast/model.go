package forecast

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/huangsam/datalens/schema"
	"gonum.org/v1/gonum/mat"
)

// mapeEpsilon replaces a zero denominator in MAPE.
const mapeEpsilon = 1e-9

// Season maps a period label to its seasonal category.
type Season func(time.Time) int

// SeasonFor returns day-of-week (Monday=0) for daily and weekly data, month-of-year otherwise.
func SeasonFor(freq schema.Frequency) Season {
	if freq == schema.Monthly {
		return func(t time.Time) int { return int(t.Month()) }
	}
	return func(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }
}

// Design builds rows of [1, index, dummies...] for a fixed set of seasonal categories.
type Design struct {
	season     Season
	categories []int
}

// NewDesign collects the categories observed in labels, in ascending order.
func NewDesign(labels []time.Time, season Season) *Design {
	seen := make(map[int]struct{})
	var cats []int
	for _, l := range labels {
		c := season(l)
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			cats = append(cats, c)
		}
	}
	slices.Sort(cats)
	return &Design{season: season, categories: cats}
}

// Width is the number of model coefficients.
func (d *Design) Width() int { return 2 + len(d.categories) }

// Matrix builds the design rows for labels whose time index starts at offset.
// Categories not seen when the design was built get no column.
func (d *Design) Matrix(labels []time.Time, offset int) *mat.Dense {
	x := mat.NewDense(len(labels), d.Width(), nil)
	for i, l := range labels {
		x.Set(i, 0, 1)
		x.Set(i, 1, float64(offset+i))
		if j, ok := slices.BinarySearch(d.categories, d.season(l)); ok {
			x.Set(i, 2+j, 1)
		}
	}
	return x
}

// Fit returns the minimum-norm least-squares coefficients for x·β ≈ y.
func Fit(x *mat.Dense, y []float64) (*mat.VecDense, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, errors.New("design rows do not match observations")
	}
	if rows == 0 {
		return nil, errors.New("no observations to fit")
	}
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition failed")
	}
	rcond := float64(max(rows, cols)) * 2.220446049250313e-16
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, errors.New("design matrix has rank 0")
	}
	beta := mat.NewVecDense(cols, nil)
	svd.SolveVecTo(beta, mat.NewVecDense(rows, append([]float64(nil), y...)), rank)
	for i := range cols {
		if v := beta.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("non-finite coefficient")
		}
	}
	return beta, nil
}

// Predict applies the coefficients to each design row.
func Predict(x *mat.Dense, beta *mat.VecDense) []float64 {
	rows, _ := x.Dims()
	var out mat.VecDense
	out.MulVec(x, beta)
	y := make([]float64, rows)
	for i := range rows {
		y[i] = out.AtVec(i)
	}
	return y
}

// Metrics computes MAE, RMSE and MAPE (in percent) over paired values.
// All fields are nil when there are no pairs.
func Metrics(yTrue, yHat []float64) schema.ForecastMetrics {
	n := min(len(yTrue), len(yHat))
	if n == 0 {
		return schema.ForecastMetrics{}
	}
	var abs, sq, pct float64
	for i := range n {
		e := yTrue[i] - yHat[i]
		abs += math.Abs(e)
		sq += e * e
		den := math.Abs(yTrue[i])
		if den == 0 {
			den = mapeEpsilon
		}
		pct += math.Abs(e) / den
	}
	fn := float64(n)
	return schema.ForecastMetrics{
		MAE:  schema.Float64Ptr(abs / fn),
		RMSE: schema.Float64Ptr(math.Sqrt(sq / fn)),
		MAPE: schema.Float64Ptr(100 * pct / fn),
	}
}
