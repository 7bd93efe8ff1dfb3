// SPDX-License-Identifier: MIT
package analysis

// TransformResult is the output of one spectral computation: the transformed
// values plus their minimum and maximum. It is immutable; Values hands out a
// copy so callers can never alter a memoized result.
type TransformResult struct {
	values   []float64
	min, max float64
}

// newTransformResult takes ownership of values. An empty result has min and
// max of 0.
func newTransformResult(values []float64) TransformResult {
	r := TransformResult{values: values}
	if len(values) == 0 {
		return r
	}
	r.min, r.max = values[0], values[0]
	for _, v := range values[1:] {
		if v < r.min {
			r.min = v
		}
		if v > r.max {
			r.max = v
		}
	}
	return r
}

// Values returns a copy of the transformed values.
func (r TransformResult) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// At returns the i-th value. It panics if i is out of range, like a slice.
func (r TransformResult) At(i int) float64 { return r.values[i] }

// Len returns the number of values.
func (r TransformResult) Len() int { return len(r.values) }

// Min returns the smallest value.
func (r TransformResult) Min() float64 { return r.min }

// Max returns the largest value.
func (r TransformResult) Max() float64 { return r.max }
