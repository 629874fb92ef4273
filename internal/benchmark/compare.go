package benchmark

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Bucket classifies a current/reference timing ratio.
type Bucket int

const (
	Faster Bucket = iota
	OK
	SlightlySlower
	Slower
)

// Upper bounds (exclusive) of the Faster, OK and SlightlySlower buckets.
const (
	FasterBound         = 0.80
	OKBound             = 1.10
	SlightlySlowerBound = 1.25
)

func (b Bucket) String() string {
	switch b {
	case Faster:
		return "FASTER"
	case OK:
		return "OK"
	case SlightlySlower:
		return "SLIGHTLY SLOWER"
	case Slower:
		return "SLOWER"
	}
	return fmt.Sprintf("Bucket(%d)", int(b))
}

// IsError reports whether the bucket counts as a regression.
func (b Bucket) IsError() bool {
	return b == Slower
}

// Classify maps ratio = current/reference to its bucket. Each upper bound is
// exclusive, so a boundary value lands in the bucket above it.
func Classify(ratio float64) Bucket {
	switch {
	case ratio < FasterBound:
		return Faster
	case ratio < OKBound:
		return OK
	case ratio < SlightlySlowerBound:
		return SlightlySlower
	default:
		return Slower
	}
}

// Ratio returns current/reference. The reference must be positive.
func Ratio(current, reference float64) (float64, error) {
	if reference <= 0 || math.IsNaN(reference) {
		return 0, fmt.Errorf("reference timing must be positive, got %v", reference)
	}
	return current / reference, nil
}

var errNoTimings = errors.New("no timings collected")

// ClosestPair sorts both lists ascending, pairs them by rank and returns the
// pair with the smallest absolute difference. The first such pair wins ties.
func ClosestPair(current, reference []float64) (float64, float64, error) {
	n := min(len(current), len(reference))
	if n == 0 {
		return 0, 0, errNoTimings
	}

	c := append([]float64(nil), current...)
	r := append([]float64(nil), reference...)
	sort.Float64s(c)
	sort.Float64s(r)

	best := 0
	for i := 1; i < n; i++ {
		if math.Abs(c[i]-r[i]) < math.Abs(c[best]-r[best]) {
			best = i
		}
	}
	return c[best], r[best], nil
}
