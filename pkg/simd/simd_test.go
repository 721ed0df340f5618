package simd

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
)

const epsilon = 1e-5

func approxEqual(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) < float64(eps)
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected []float32
	}{
		{
			name:     "simple",
			a:        []float32{0, 1, 2},
			b:        []float32{0, 2, 4},
			expected: []float32{0, 3, 6},
		},
		{
			name:     "empty",
			a:        []float32{},
			b:        []float32{},
			expected: []float32{},
		},
		{
			name:     "negative",
			a:        []float32{-1, -2},
			b:        []float32{1, 1},
			expected: []float32{0, -1},
		},
		{
			name:     "different lengths",
			a:        []float32{1, 2},
			b:        []float32{1},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Add(tt.a, tt.b)
			if (result == nil) != (tt.expected == nil) || len(result) != len(tt.expected) {
				t.Fatalf("Add() = %v, expected %v", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("Add()[%d] = %v, expected %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestAddDoesNotModifyInputs(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	_ = Add(a, b)
	if a[0] != 1 || b[0] != 4 {
		t.Errorf("Add modified its inputs: %v %v", a, b)
	}
}

// Large vectors exercise the accelerated path on AVX2/NEON hosts.
func TestAddMatchesReference(t *testing.T) {
	const n = 1024
	a := make([]float32, n)
	b := make([]float32, n)
	for i := range a {
		a[i] = float32(i)
		b[i] = float32(2 * i)
	}
	result := Add(a, b)
	for i, v := range result {
		if v != float32(3*i) {
			t.Fatalf("Add()[%d] = %v, expected %v", i, v, float32(3*i))
		}
	}
}

func TestSum(t *testing.T) {
	if s := Sum(nil); s != 0 {
		t.Errorf("Sum(nil) = %v, expected 0", s)
	}
	v := make([]float32, 100)
	for i := range v {
		v[i] = float32(i)
	}
	if s := Sum(v); !approxEqual(s, 4950, epsilon) {
		t.Errorf("Sum() = %v, expected 4950", s)
	}
}

func TestMaxAbsDiff(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"one off", []float32{1, 2, 3}, []float32{1, 5, 3}, 3},
		{"negative diff", []float32{10, 0}, []float32{0, 0}, 10},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxAbsDiff(tt.a, tt.b); !approxEqual(got, tt.expected, epsilon) {
				t.Errorf("MaxAbsDiff() = %v, expected %v", got, tt.expected)
			}
		})
	}

	if got := MaxAbsDiff([]float32{1}, nil); !math.IsInf(float64(got), 1) {
		t.Errorf("MaxAbsDiff with mismatched lengths = %v, expected +Inf", got)
	}
}

func TestCompare(t *testing.T) {
	want := []float32{0, 3, 6, 9, 3000}

	t.Run("exact", func(t *testing.T) {
		n, mm := Compare([]float32{0, 3, 6, 9, 3000}, want, 0, 10)
		if n != 0 || len(mm) != 0 {
			t.Errorf("expected no mismatches, got %d %v", n, mm)
		}
	})

	t.Run("relative tolerance", func(t *testing.T) {
		// 3000.001 is within 1e-6 relative of 3000; 9.5 is not close to 9.
		got := []float32{0, 3, 6, 9.5, 3000.001}
		n, mm := Compare(got, want, 1e-6, 10)
		if n != 1 {
			t.Fatalf("expected 1 mismatch, got %d %v", n, mm)
		}
		if mm[0].Index != 3 || mm[0].Got != 9.5 || mm[0].Want != 9 {
			t.Errorf("unexpected mismatch %v", mm[0])
		}
	})

	t.Run("limit", func(t *testing.T) {
		got := []float32{1, 1, 1, 1, 1}
		n, mm := Compare(got, want, 0, 2)
		if n != 5 {
			t.Errorf("expected 5 mismatches, got %d", n)
		}
		if len(mm) != 2 || mm[0].Index != 0 || mm[1].Index != 1 {
			t.Errorf("expected first two mismatches, got %v", mm)
		}
		_, all := Compare(got, want, 0, -1)
		if len(all) != 5 {
			t.Errorf("negative limit should return all, got %d", len(all))
		}
	})

	t.Run("nan", func(t *testing.T) {
		nan := float32(math.NaN())
		n, _ := Compare([]float32{nan}, []float32{0}, 1, 10)
		if n != 1 {
			t.Errorf("NaN should never match, got %d mismatches", n)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		n, mm := Compare([]float32{0, 3}, want, 0, -1)
		if n != 3 {
			t.Fatalf("expected 3 mismatches for missing elements, got %d", n)
		}
		if mm[0].Index != 2 || mm[0].Want != 6 {
			t.Errorf("unexpected first mismatch %v", mm[0])
		}
	})
}

func TestMismatchString(t *testing.T) {
	m := Mismatch{Index: 7, Got: 1.5, Want: 21}
	if s := m.String(); s != "[7] got 1.5, want 21" {
		t.Errorf("String() = %q", s)
	}
}

func TestInfo(t *testing.T) {
	info := Info()
	if info.Accelerated && info.Implementation != ImplAccelerated {
		t.Errorf("accelerated info with implementation %q", info.Implementation)
	}
	if !info.Accelerated && info.Implementation != ImplGeneric {
		t.Errorf("generic info with implementation %q", info.Implementation)
	}
}

func BenchmarkAdd(b *testing.B) {
	for _, size := range []int{1024, 1 << 16, 1 << 20} {
		x := make([]float32, size)
		y := make([]float32, size)
		for i := range x {
			x[i] = rand.Float32()
			y[i] = rand.Float32()
		}
		b.Run(fmt.Sprintf("%d", size), func(b *testing.B) {
			b.SetBytes(int64(size * 4 * 2))
			for i := 0; i < b.N; i++ {
				_ = Add(x, y)
			}
		})
	}
}

func BenchmarkCompare(b *testing.B) {
	const size = 1 << 16
	x := make([]float32, size)
	for i := range x {
		x[i] = rand.Float32()
	}
	b.SetBytes(int64(size * 4 * 2))
	for i := 0; i < b.N; i++ {
		_, _ = Compare(x, x, 1e-6, 10)
	}
}
