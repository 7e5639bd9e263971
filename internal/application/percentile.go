package application

import (
	"math"
	"slices"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// Percentile returns the p-th percentile (0-100) of samples using continuous
// interpolation: the rank p/100*(n-1) is linearly interpolated between the
// two nearest sorted samples. Returns nil when samples is empty.
func Percentile(samples []float64, p float64) *float64 {
	if len(samples) == 0 {
		return nil
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		v := sorted[lower]
		return &v
	}

	frac := rank - float64(lower)
	v := sorted[lower] + frac*(sorted[upper]-sorted[lower])
	return &v
}

// durationStats summarizes hour samples as p50/p90 with the sample count.
func durationStats(samples []float64) model.DurationStats {
	return model.DurationStats{
		P50Hours: Percentile(samples, 50),
		P90Hours: Percentile(samples, 90),
		Count:    len(samples),
	}
}
