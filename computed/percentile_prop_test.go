package computed

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPercentile_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("median picks or averages the middle ranks", prop.ForAll(
		func(vals []int32) bool {
			slices.Sort(vals)
			n := len(vals)
			got := Percentile(vals, P50)
			if n%2 == 1 {
				return got == float64(vals[n/2])
			}
			return got == (float64(vals[n/2-1])+float64(vals[n/2]))/2
		},
		gen.SliceOf(gen.Int32()).SuchThat(func(v []int32) bool { return len(v) > 0 }),
	))

	properties.Property("percentiles stay within the bucket", prop.ForAll(
		func(vals []float64, p float64) bool {
			slices.Sort(vals)
			got := Percentile(vals, p)
			return got >= vals[0] && got <= vals[len(vals)-1]
		},
		gen.SliceOf(gen.Float64Range(-1e9, 1e9)).SuchThat(func(v []float64) bool { return len(v) > 0 }),
		gen.Float64Range(0, 1),
	))

	properties.Property("fold sum matches bucket", prop.ForAll(
		func(vals []int64) bool {
			var want int64
			for _, v := range vals {
				want += v
			}
			return Fold(vals).Sum == want
		},
		gen.SliceOf(gen.Int64Range(-1<<20, 1<<20)),
	))

	properties.TestingRun(t)
}
