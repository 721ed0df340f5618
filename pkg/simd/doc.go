// Package simd provides SIMD-accelerated float32 vector helpers used to check
// GPU results on the host.
//
// All operations go through github.com/viterin/vek/vek32, which selects an
// AVX2 or NEON kernel at runtime and falls back to pure Go elsewhere.
//
// # Supported Operations
//
//   - Add: element-wise sum of two vectors (the host reference for a dispatch)
//   - Sum: sum of all elements
//   - MaxAbsDiff: largest element-wise absolute difference
//   - Compare: element-wise comparison with a relative tolerance
//
// # Usage
//
//	want := simd.Add(a, b)
//	n, mismatches := simd.Compare(got, want, 1e-6, 10)
//	if n > 0 {
//		fmt.Printf("%d mismatches, first at %d\n", n, mismatches[0].Index)
//	}
//
// # Thread Safety
//
// All functions in this package are safe for concurrent use.
// They do not modify their inputs or any global state.
package simd
