package simd

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// Implementation represents the active SIMD implementation
type Implementation string

const (
	// ImplGeneric indicates pure Go fallback (no SIMD)
	ImplGeneric Implementation = "generic"
	// ImplAccelerated indicates vek32 is running a native SIMD kernel
	ImplAccelerated Implementation = "accelerated"
)

// RuntimeInfo contains information about the active SIMD implementation
type RuntimeInfo struct {
	// Implementation is the active SIMD backend
	Implementation Implementation
	// Features lists specific CPU features being used
	Features []string
	// Accelerated indicates whether SIMD acceleration is active
	Accelerated bool
}

// Mismatch is one element that differs from its expected value.
type Mismatch struct {
	Index int
	Got   float32
	Want  float32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("[%d] got %g, want %g", m.Index, m.Got, m.Want)
}

// Add returns a new slice holding a[i]+b[i].
//
// Returns nil if the vectors have different lengths.
//
// Example:
//
//	simd.Add([]float32{0, 1, 2}, []float32{0, 2, 4}) // [0 3 6]
func Add(a, b []float32) []float32 {
	if len(a) != len(b) {
		return nil
	}
	if len(a) == 0 {
		return []float32{}
	}
	return vek32.Add(a, b)
}

// Sum returns the sum of all elements of v.
func Sum(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return vek32.Sum(v)
}

// MaxAbsDiff returns max(|a[i]-b[i]|).
//
// Returns +Inf if the vectors have different lengths and 0 if both are empty.
func MaxAbsDiff(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	if len(a) == 0 {
		return 0
	}
	diff := vek32.Sub(a, b)
	vek32.Abs_Inplace(diff)
	return vek32.Max(diff)
}

// Compare checks got against want element by element. An element matches
// when |got-want| <= relTol*max(1, |want|); NaN never matches.
//
// It returns the total number of mismatches and at most limit of them, in
// index order. A negative limit returns all of them. Elements beyond the
// shorter slice count as mismatches with a zero Got or Want.
func Compare(got, want []float32, relTol float32, limit int) (int, []Mismatch) {
	n := len(want)
	if len(got) < n {
		n = len(got)
	}

	var diffs []float32
	if n > 0 {
		diffs = vek32.Sub(got[:n], want[:n])
		vek32.Abs_Inplace(diffs)
	}

	var (
		count      int
		mismatches []Mismatch
	)
	record := func(m Mismatch) {
		count++
		if limit < 0 || len(mismatches) < limit {
			mismatches = append(mismatches, m)
		}
	}

	for i := 0; i < n; i++ {
		bound := relTol * float32(math.Max(1, math.Abs(float64(want[i]))))
		d := diffs[i]
		if d <= bound {
			continue
		}
		// NaN comparisons are false, so NaN also lands here.
		record(Mismatch{Index: i, Got: got[i], Want: want[i]})
	}
	for i := n; i < len(want); i++ {
		record(Mismatch{Index: i, Want: want[i]})
	}
	for i := n; i < len(got); i++ {
		record(Mismatch{Index: i, Got: got[i]})
	}
	return count, mismatches
}

// Info returns information about the active SIMD implementation.
//
// Example:
//
//	info := simd.Info()
//	if info.Accelerated {
//	    fmt.Printf("Using %v\n", info.Features)
//	}
func Info() RuntimeInfo {
	info := vek32.Info()
	impl := ImplGeneric
	if info.Acceleration {
		impl = ImplAccelerated
	}
	return RuntimeInfo{
		Implementation: impl,
		Features:       info.CPUFeatures,
		Accelerated:    info.Acceleration,
	}
}
