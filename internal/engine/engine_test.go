package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-dynamics/internal/testutil"
)

const testSampleRate = 44100.0

func defaultParams() Params {
	return Params{
		ThresholdDB:     -18,
		Ratio:           4,
		AttackMs:        10,
		ReleaseMs:       120,
		OutputCeilingDB: -1,
		SampleRate:      testSampleRate,
	}
}

func TestApplyBelowThresholdIsIdentity(t *testing.T) {
	data := testutil.ConstantFrames(-30, int(testSampleRate), 1)
	want := make([]float64, len(data))
	copy(want, data)

	require.NoError(t, Apply(data, 1, defaultParams()))

	for i := range data {
		assert.InDelta(t, want[i], data[i], testutil.DefaultTolerance)
	}
}

func TestApplySteadyStateGainReduction(t *testing.T) {
	// A sustained -6 dBFS level against threshold -18 and ratio 4 should
	// converge to -18 + 12/4 = -15 dBFS.
	data := testutil.ConstantFrames(-6, int(testSampleRate), 1)

	require.NoError(t, Apply(data, 1, defaultParams()))

	tail := testutil.TailPeakDB(data, 0.1)
	assert.InDelta(t, -15.0, tail, testutil.DBTolerance)
	testutil.AssertNoNaNOrInf(t, data)
}

func TestApplyMakeupGainShiftsOutput(t *testing.T) {
	p := defaultParams()
	p.MakeupGainDB = 3
	data := testutil.ConstantFrames(-6, int(testSampleRate), 1)

	require.NoError(t, Apply(data, 1, p))

	tail := testutil.TailPeakDB(data, 0.1)
	assert.InDelta(t, -12.0, tail, testutil.DBTolerance)
}

func TestApplyInputGainFeedsDetector(t *testing.T) {
	// -30 dBFS is below the threshold, but +18 dB of input gain lifts it
	// to -12 dBFS, which must be compressed like any hot signal.
	p := defaultParams()
	p.InputGainDB = 18
	data := testutil.ConstantFrames(-30, int(testSampleRate), 1)

	require.NoError(t, Apply(data, 1, p))

	// -18 + 6/4 = -16.5 dBFS.
	tail := testutil.TailPeakDB(data, 0.1)
	assert.InDelta(t, -16.5, tail, testutil.DBTolerance)
}

func TestApplyCeilingClipsHardLimit(t *testing.T) {
	p := defaultParams()
	p.MakeupGainDB = 24
	p.OutputCeilingDB = -1
	data := testutil.ConstantFrames(-3, 4096, 2)

	require.NoError(t, Apply(data, 2, p))

	ceiling := DBToLinear(-1)
	testutil.AssertAllInRange(t, data, -ceiling, ceiling)
	// The makeup gain is large enough that the tail must sit exactly at
	// the ceiling.
	assert.InDelta(t, ceiling, data[len(data)-1], testutil.DefaultTolerance)
}

func TestApplyStereoSharesGainAcrossChannels(t *testing.T) {
	// Left sustains -6 dBFS, right -30 dBFS. The louder channel drives
	// the detector and the resulting gain applies to both, so the quiet
	// channel is attenuated by the same 9 dB.
	frames := int(testSampleRate)
	loud := testutil.DBToLinear(-6)
	quiet := testutil.DBToLinear(-30)
	data := make([]float64, frames*2)
	for i := range frames {
		data[i*2] = loud
		data[i*2+1] = quiet
	}

	require.NoError(t, Apply(data, 2, defaultParams()))

	tailStart := (frames - frames/10) * 2
	var leftPeak, rightPeak float64
	for i := tailStart; i < len(data); i += 2 {
		leftPeak = math.Max(leftPeak, math.Abs(data[i]))
		rightPeak = math.Max(rightPeak, math.Abs(data[i+1]))
	}
	assert.InDelta(t, -15.0, testutil.LinearToDB(leftPeak), testutil.DBTolerance)
	assert.InDelta(t, -39.0, testutil.LinearToDB(rightPeak), testutil.DBTolerance)
}

func TestApplyEmptyBufferIsNoOp(t *testing.T) {
	assert.NoError(t, Apply(nil, 2, defaultParams()))
	assert.NoError(t, Apply([]float64{}, 1, defaultParams()))
}

func TestApplyLayoutErrors(t *testing.T) {
	err := Apply(make([]float64, 5), 2, defaultParams())
	assert.ErrorIs(t, err, ErrInvalidLayout)

	err = Apply(make([]float64, 4), 0, defaultParams())
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestParamsValidate(t *testing.T) {
	p := defaultParams()
	p.SampleRate = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = defaultParams()
	p.Ratio = 0.5
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = defaultParams()
	assert.NoError(t, p.Validate())
}

func TestFollowerTimeConstantFloor(t *testing.T) {
	// Sub-millisecond times are floored at 1 ms before the coefficient
	// computation, so 0.1 ms and 1 ms produce the same follower.
	p := defaultParams()
	p.AttackMs = 0.1
	p.ReleaseMs = 0.0
	floored := NewFollower(p)

	p.AttackMs = 1.0
	p.ReleaseMs = 1.0
	reference := NewFollower(p)

	assert.Equal(t, reference.attackCoeff, floored.attackCoeff)
	assert.Equal(t, reference.releaseCoeff, floored.releaseCoeff)
}

func TestFollowerAttackReleaseAsymmetry(t *testing.T) {
	p := defaultParams()
	follower := NewFollower(p)

	// Drive the envelope up with a hot signal.
	for range 4096 {
		follower.NextGain(1.0)
	}
	raised := follower.Envelope()
	assert.Greater(t, raised, 0.9)

	// One silent frame: the release coefficient is much slower than the
	// attack, so the envelope barely moves.
	follower.NextGain(0)
	assert.Greater(t, follower.Envelope(), raised*0.99)
}

func TestFollowerGainCurve(t *testing.T) {
	p := defaultParams()
	follower := NewFollower(p)

	// Converge on a -6 dBFS peak, then check the static curve: gain
	// reduction of (1 - 1/ratio) * over = 9 dB.
	var gain float64
	for range int(testSampleRate) {
		gain = follower.NextGain(testutil.DBToLinear(-6))
	}
	assert.InDelta(t, -9.0, testutil.LinearToDB(gain), testutil.DBTolerance)
}

func TestFollowerSilenceStaysUnity(t *testing.T) {
	follower := NewFollower(defaultParams())
	for range 1024 {
		assert.Equal(t, 1.0, follower.NextGain(0))
	}
}

func TestDBConversionsRoundTrip(t *testing.T) {
	for _, db := range []float64{-60, -18, -6, 0, 6} {
		assert.InDelta(t, db, LinearToDB(DBToLinear(db)), 1e-9)
	}
	// The epsilon floor keeps silence finite.
	assert.InDelta(t, -180.0, LinearToDB(0), 1e-9)
}
