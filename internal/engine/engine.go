// Package engine implements the single-band dynamics chain on normalized
// float64 samples. The chain is a strict single pass with no look-ahead:
// input gain, per-frame peak detection, an envelope follower with separate
// attack/release one-pole smoothing, static gain computation above the
// threshold, makeup gain, and a hard output ceiling.
//
// The engine is format-agnostic; sample conversion to and from native PCM
// representations happens in the pcm package before and after this chain.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/tphakala/go-audio-dynamics/pcm"
)

const (
	// Epsilon floors the envelope before the dB conversion (avoids -Inf)
	// and the linear output ceiling.
	Epsilon = 1e-9

	// minTimeConstantMs floors the attack and release time constants.
	minTimeConstantMs = 1.0

	msPerSecond = 1000.0

	// dB conversion factors: amplitude dB is 20*log10(x).
	dbPerDecade = 20.0

	unityGain = 1.0
)

// Errors returned by the engine.
var (
	// ErrInvalidParams indicates unusable processing parameters.
	ErrInvalidParams = errors.New("engine: invalid parameters")

	// ErrInvalidLayout indicates an impossible buffer/channel layout.
	ErrInvalidLayout = errors.New("engine: invalid buffer layout")
)

// Params holds the audio-affecting compressor parameters plus the sample
// rate supplied by the playback subsystem. Cache sizing and revision
// counters deliberately do not appear here; they never touch the audio.
type Params struct {
	InputGainDB     float64
	ThresholdDB     float64
	Ratio           float64
	AttackMs        float64
	ReleaseMs       float64
	MakeupGainDB    float64
	OutputCeilingDB float64
	SampleRate      float64
}

// Validate checks the parameters the chain cannot silently absorb.
func (p *Params) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidParams, p.SampleRate)
	}
	if p.Ratio < unityGain {
		return fmt.Errorf("%w: ratio %v below 1", ErrInvalidParams, p.Ratio)
	}
	return nil
}

// DBToLinear converts a decibel value to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10.0, db/dbPerDecade)
}

// LinearToDB converts a linear amplitude to decibels, floored at Epsilon.
func LinearToDB(v float64) float64 {
	return dbPerDecade * math.Log10(math.Max(v, Epsilon))
}

// Follower is the stateful peak-detector envelope follower. It is the one
// inherently sequential piece of the chain: frames must be fed in order and
// the per-frame update is O(1).
type Follower struct {
	attackCoeff  float64
	releaseCoeff float64
	thresholdDB  float64
	ratio        float64
	env          float64
}

// NewFollower precomputes the per-sample smoothing coefficients from the
// attack/release times and the sample rate. Time constants are floored at
// 1 ms.
func NewFollower(p Params) *Follower {
	attackS := math.Max(minTimeConstantMs, p.AttackMs) / msPerSecond
	releaseS := math.Max(minTimeConstantMs, p.ReleaseMs) / msPerSecond
	return &Follower{
		attackCoeff:  math.Exp(-1.0 / (attackS * p.SampleRate)),
		releaseCoeff: math.Exp(-1.0 / (releaseS * p.SampleRate)),
		thresholdDB:  p.ThresholdDB,
		ratio:        math.Max(unityGain, p.Ratio),
		env:          0,
	}
}

// Envelope returns the current envelope level (linear).
func (f *Follower) Envelope() float64 {
	return f.env
}

// NextGain advances the envelope with the frame's peak level and returns
// the scalar gain for that frame. Levels at or below the threshold leave
// the signal untouched; above it the gain realizes the threshold +
// over/ratio static curve, so the returned value is always in (0, 1].
func (f *Follower) NextGain(peak float64) float64 {
	coeff := f.releaseCoeff
	if peak > f.env {
		coeff = f.attackCoeff
	}
	f.env = coeff*f.env + (1.0-coeff)*peak

	envDB := LinearToDB(f.env)
	if envDB <= f.thresholdDB {
		return unityGain
	}

	overDB := envDB - f.thresholdDB
	compressedDB := f.thresholdDB + overDB/f.ratio
	reductionDB := compressedDB - envDB // always <= 0
	return DBToLinear(reductionDB)
}

// Apply runs the full chain in place over interleaved samples. The caller
// owns normalization; data is expected in [-1, 1] but nothing breaks if the
// input gain pushes it beyond — the ceiling stage clips last.
func Apply(data []float64, channels int, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if channels < 1 {
		return fmt.Errorf("%w: channels=%d", ErrInvalidLayout, channels)
	}
	if len(data)%channels != 0 {
		return fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidLayout, len(data), channels)
	}
	if len(data) == 0 {
		return nil
	}

	if g := DBToLinear(p.InputGainDB); g != unityGain {
		f64.Scale(data, data, g)
	}

	peaks := pcm.FramePeaks(data, channels, nil)
	follower := NewFollower(p)
	frames := len(peaks)
	for i := range frames {
		gain := follower.NextGain(peaks[i])
		if gain == unityGain {
			continue
		}
		base := i * channels
		for ch := range channels {
			data[base+ch] *= gain
		}
	}

	if g := DBToLinear(p.MakeupGainDB); g != unityGain {
		f64.Scale(data, data, g)
	}

	ceiling := math.Max(Epsilon, DBToLinear(p.OutputCeilingDB))
	for i, v := range data {
		if v > ceiling {
			data[i] = ceiling
		} else if v < -ceiling {
			data[i] = -ceiling
		}
	}

	return nil
}
