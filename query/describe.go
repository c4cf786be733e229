package query

import (
	"math"
	"slices"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
)

// DefaultPercentiles are the quartiles reported when none are requested.
var DefaultPercentiles = []float64{0.25, 0.5, 0.75}

// Describe summarises the present values of numeric col. Percentiles are
// fractions in [0, 1] computed by linear interpolation between order
// statistics; nil selects DefaultPercentiles. The standard deviation is the
// sample one and is absent for a single value. Describe fails with an
// empty-input error when col has no present values in t.
func Describe(t *models.Table, col models.Column, percentiles []float64) (models.Summary, error) {
	if !col.Numeric() {
		return models.Summary{}, apperrors.New(apperrors.KindInvalidArgument, "cannot describe non-numeric column %q", col)
	}
	if percentiles == nil {
		percentiles = DefaultPercentiles
	}
	for _, p := range percentiles {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return models.Summary{}, apperrors.New(apperrors.KindInvalidArgument, "percentile %v outside [0, 1]", p)
		}
	}

	values := make([]float64, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.Row(i).Number(col); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return models.Summary{}, apperrors.New(apperrors.KindEmptyInput, "no %s values to describe", col).
			WithDetail("rows", t.Len())
	}
	slices.Sort(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	s := models.Summary{
		Column: col,
		Count:  len(values),
		Mean:   mean,
		Min:    values[0],
		Max:    values[len(values)-1],
	}
	if len(values) > 1 {
		var ss float64
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		s.StdDev = models.Float(math.Sqrt(ss / float64(len(values)-1)))
	}
	s.Percentiles = make([]models.Percentile, len(percentiles))
	for i, p := range percentiles {
		s.Percentiles[i] = models.Percentile{P: p, Value: quantile(values, p)}
	}
	return s, nil
}

// quantile interpolates linearly between the order statistics of sorted.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
