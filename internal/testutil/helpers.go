// Package testutil provides reusable helpers for dynamics-processing tests:
// deterministic signal generators and level measurement in dB.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10

	// DBTolerance is loose enough for envelope-converged comparisons.
	DBTolerance = 0.1

	// MeasureEpsilon floors measured levels before the dB conversion.
	MeasureEpsilon = 1e-9
)

const dbPerDecade = 20.0

// DBToLinear converts decibels to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10.0, db/dbPerDecade)
}

// LinearToDB converts a linear amplitude to decibels.
func LinearToDB(v float64) float64 {
	return dbPerDecade * math.Log10(math.Max(v, MeasureEpsilon))
}

// ConstantFrames generates interleaved frames where every sample sits at
// the given dBFS level. Useful for steady-state compressor checks.
func ConstantFrames(levelDB float64, frames, channels int) []float64 {
	v := DBToLinear(levelDB)
	out := make([]float64, frames*channels)
	for i := range out {
		out[i] = v
	}
	return out
}

// SineFrames generates an interleaved sine at the given frequency and peak
// amplitude, identical on every channel.
func SineFrames(freq, amplitude float64, sampleRate, frames, channels int) []float64 {
	out := make([]float64, frames*channels)
	for i := range frames {
		v := amplitude * math.Sin(2.0*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := range channels {
			out[i*channels+ch] = v
		}
	}
	return out
}

// SineInt16 generates an interleaved sine quantized to the signed 16-bit
// range, for building integer clips.
func SineInt16(freq, amplitude float64, sampleRate, frames, channels int) []int {
	const fullScale = 32767.0
	out := make([]int, frames*channels)
	for i := range frames {
		v := int(math.Round(amplitude * fullScale * math.Sin(2.0*math.Pi*freq*float64(i)/float64(sampleRate))))
		for ch := range channels {
			out[i*channels+ch] = v
		}
	}
	return out
}

// PeakDB measures the peak absolute level of a buffer in dBFS.
func PeakDB(s []float64) float64 {
	if len(s) == 0 {
		return LinearToDB(0)
	}
	peak := math.Max(floats.Max(s), -floats.Min(s))
	return LinearToDB(peak)
}

// TailPeakDB measures the peak level of the last fraction of a buffer,
// after envelope convergence. fraction is in (0, 1].
func TailPeakDB(s []float64, fraction float64) float64 {
	if len(s) == 0 {
		return LinearToDB(0)
	}
	start := len(s) - int(float64(len(s))*fraction)
	if start < 0 || start >= len(s) {
		start = 0
	}
	return PeakDB(s[start:])
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}
