// Package stats reduces raw sold-price observations to a point estimate.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// TrimFraction is the share of observations dropped from each end.
const TrimFraction = 0.1

// Summary is the trimmed average and the range of the kept observations.
// All zeros means "no data".
type Summary struct {
	Average float64
	Low     float64
	High    float64
	Kept    int
}

// Trimmed computes a symmetric trimmed mean. Lists of three or fewer values
// are not trimmed; longer lists lose max(1, floor(0.1*n)) values from each
// end. The input slice is left untouched and no rounding is applied.
func Trimmed(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	kept := sorted
	if len(sorted) > 3 {
		trim := int(math.Floor(float64(len(sorted)) * TrimFraction))
		if trim < 1 {
			trim = 1
		}
		kept = sorted[trim : len(sorted)-trim]
	}

	return Summary{
		Average: mean(kept),
		Low:     kept[0],
		High:    kept[len(kept)-1],
		Kept:    len(kept),
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Round2 rounds a currency amount half away from zero to cents. Only
// presentation and persistence boundaries call this.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Rounded returns a copy of s with every amount rounded to cents.
func (s Summary) Rounded() Summary {
	return Summary{
		Average: Round2(s.Average),
		Low:     Round2(s.Low),
		High:    Round2(s.High),
		Kept:    s.Kept,
	}
}
