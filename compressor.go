package dynamics

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-dynamics/internal/engine"
	"github.com/tphakala/go-audio-dynamics/pcm"
)

// Errors returned by the processing facade.
var (
	// ErrNilClip indicates a nil input buffer.
	ErrNilClip = errors.New("dynamics: nil clip")

	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("dynamics: invalid sample rate")
)

// Process applies the compressor chain to a clip and returns a new clip in
// the same native representation and channel layout. The input clip is not
// modified. An empty clip is returned unchanged (no-op fast path).
//
// The sample rate comes from the playback subsystem; clips do not carry it.
func Process(clip *pcm.Clip, sampleRate int, settings Settings) (*pcm.Clip, error) {
	if clip == nil {
		return nil, ErrNilClip
	}
	if clip.Empty() {
		return clip, nil
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	data, err := clip.Normalize()
	if err != nil {
		return nil, fmt.Errorf("dynamics: normalize: %w", err)
	}

	if err := engine.Apply(data, clip.Channels, settings.clamped().engineParams(float64(sampleRate))); err != nil {
		return nil, fmt.Errorf("dynamics: process: %w", err)
	}

	out, err := clip.Denormalize(data)
	if err != nil {
		return nil, fmt.Errorf("dynamics: denormalize: %w", err)
	}
	return out, nil
}
