package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/martinbsolomon/philoca/internal/model"
)

// Summarize computes descriptive statistics over the validated sample set.
// Standard deviation uses the sample form (Bessel's correction); the median
// interpolates linearly between the middle order statistics. When cls is
// non-nil its counts and fractions are folded in. All statistics are
// order-invariant: values are copied and sorted internally.
func Summarize(ss model.SampleSet, cls *model.Classification) model.Summary {
	sum := model.Summary{Parameter: ss.Parameter, Count: ss.Len()}
	if ss.Len() == 0 {
		return sum
	}

	vals := ss.Values()
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	sum.Mean = stat.Mean(vals, nil)
	sum.StdDev = stat.StdDev(vals, nil)
	sum.Median = median(sorted)
	sum.Min = floats.Min(sorted)
	sum.Max = floats.Max(sorted)

	if cls != nil {
		sum.AboveCount = len(cls.Above)
		sum.BelowCount = len(cls.Below)
		if sum.Count > 0 {
			sum.AboveFraction = float64(sum.AboveCount) / float64(sum.Count)
			sum.BelowFraction = float64(sum.BelowCount) / float64(sum.Count)
		}
	}
	return sum
}

// median of a pre-sorted slice: the middle value, or the mean of the two
// middle values for even counts. gonum's quantile kinds interpolate the
// empirical CDF, which does not match the conventional textbook median.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
