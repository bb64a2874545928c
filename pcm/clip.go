// Package pcm defines the PCM buffer model shared by the dynamics engine,
// the caches and the playback layer. A Clip carries interleaved samples in
// their native representation together with an explicit format tag, so the
// processing chain can normalize to float, work in a single domain, and hand
// back a buffer in exactly the shape it received.
package pcm

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-audio/audio"
)

// SampleFormat identifies the native sample representation of a Clip.
// Conversions are dispatched on this tag; there is no runtime type
// inspection anywhere in the pipeline.
type SampleFormat int

const (
	// FormatUint8 is unsigned 8-bit PCM (silence at 128).
	FormatUint8 SampleFormat = iota

	// FormatInt16 is signed 16-bit PCM, the most common decode format.
	FormatInt16

	// FormatInt32 is signed 32-bit PCM.
	FormatInt32

	// FormatFloat32 is 32-bit floating point, nominally in [-1, 1].
	FormatFloat32
)

// Full-scale constants per format.
const (
	maxUint8 = 255.0

	// Signed formats normalize by the symmetric maximum magnitude
	// (the absolute value of the most negative code) and denormalize
	// by the positive maximum, matching common fixed-point practice.
	normInt16   = 32768.0
	denormInt16 = 32767.0
	normInt32   = 2147483648.0
	denormInt32 = 2147483647.0
)

// Errors returned by clip construction and conversion.
var (
	// ErrInvalidFormat indicates an unknown sample format tag.
	ErrInvalidFormat = errors.New("pcm: invalid sample format")

	// ErrInvalidLayout indicates an impossible channel/frame layout.
	ErrInvalidLayout = errors.New("pcm: invalid channel layout")
)

// String returns a short name for the format.
func (f SampleFormat) String() string {
	switch f {
	case FormatUint8:
		return "u8"
	case FormatInt16:
		return "s16"
	case FormatInt32:
		return "s32"
	case FormatFloat32:
		return "f32"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// BitDepth returns the container bit depth used when a clip of this format
// is written to a WAV file.
func (f SampleFormat) BitDepth() int {
	switch f {
	case FormatUint8:
		return 8
	case FormatInt16:
		return 16
	case FormatInt32, FormatFloat32:
		return 32
	default:
		return 16
	}
}

// Valid reports whether f is a known format tag.
func (f SampleFormat) Valid() bool {
	switch f {
	case FormatUint8, FormatInt16, FormatInt32, FormatFloat32:
		return true
	}
	return false
}

// Clip is an in-memory PCM buffer: interleaved frames in the clip's native
// representation. Integer formats live in Data (one element per sample, in
// the format's native range); FormatFloat32 lives in Float32. A Clip does
// not know its sample rate; that is supplied by the playback subsystem.
type Clip struct {
	Format   SampleFormat
	Channels int

	// Data holds interleaved integer samples for the integer formats.
	Data []int

	// Float32 holds interleaved samples for FormatFloat32.
	Float32 []float32
}

// NewIntClip builds an integer-format clip around data. The slice is not
// copied.
func NewIntClip(format SampleFormat, channels int, data []int) (*Clip, error) {
	if !format.Valid() || format == FormatFloat32 {
		return nil, fmt.Errorf("%w: %v is not an integer format", ErrInvalidFormat, format)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: channels=%d", ErrInvalidLayout, channels)
	}
	if len(data)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidLayout, len(data), channels)
	}
	return &Clip{Format: format, Channels: channels, Data: data}, nil
}

// NewFloatClip builds a FormatFloat32 clip around data. The slice is not
// copied.
func NewFloatClip(channels int, data []float32) (*Clip, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channels=%d", ErrInvalidLayout, channels)
	}
	if len(data)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidLayout, len(data), channels)
	}
	return &Clip{Format: FormatFloat32, Channels: channels, Float32: data}, nil
}

// NumSamples returns the total interleaved sample count.
func (c *Clip) NumSamples() int {
	if c.Format == FormatFloat32 {
		return len(c.Float32)
	}
	return len(c.Data)
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels < 1 {
		return 0
	}
	return c.NumSamples() / c.Channels
}

// Empty reports whether the clip holds no samples.
func (c *Clip) Empty() bool {
	return c.NumSamples() == 0
}

// Duration returns the clip length at the given sample rate.
func (c *Clip) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(sampleRate) * float64(time.Second))
}

// Normalize converts the clip's samples to signed float64 in [-1, 1]:
// unsigned rescales [0, max] onto [-1, 1], signed divides by the symmetric
// maximum magnitude, float passes through.
func (c *Clip) Normalize() ([]float64, error) {
	switch c.Format {
	case FormatUint8:
		out := make([]float64, len(c.Data))
		for i, v := range c.Data {
			out[i] = float64(v)/maxUint8*2.0 - 1.0
		}
		return out, nil
	case FormatInt16:
		out := make([]float64, len(c.Data))
		for i, v := range c.Data {
			out[i] = float64(v) / normInt16
		}
		return out, nil
	case FormatInt32:
		out := make([]float64, len(c.Data))
		for i, v := range c.Data {
			out[i] = float64(v) / normInt32
		}
		return out, nil
	case FormatFloat32:
		out := make([]float64, len(c.Float32))
		for i, v := range c.Float32 {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, c.Format)
	}
}

// Denormalize converts normalized float64 samples back into a clip with the
// same format and channel layout as c. Integer targets are clipped to
// [-1, 1] first and rescaled by the representation's range; the float target
// is clipped and kept as float.
func (c *Clip) Denormalize(data []float64) (*Clip, error) {
	switch c.Format {
	case FormatUint8:
		out := make([]int, len(data))
		for i, v := range data {
			out[i] = int((clampUnit(v) + 1.0) * 0.5 * maxUint8)
		}
		return &Clip{Format: c.Format, Channels: c.Channels, Data: out}, nil
	case FormatInt16:
		out := make([]int, len(data))
		for i, v := range data {
			out[i] = int(clampUnit(v) * denormInt16)
		}
		return &Clip{Format: c.Format, Channels: c.Channels, Data: out}, nil
	case FormatInt32:
		out := make([]int, len(data))
		for i, v := range data {
			out[i] = int(clampUnit(v) * denormInt32)
		}
		return &Clip{Format: c.Format, Channels: c.Channels, Data: out}, nil
	case FormatFloat32:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(clampUnit(v))
		}
		return &Clip{Format: c.Format, Channels: c.Channels, Float32: out}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, c.Format)
	}
}

// Clone returns a deep copy of the clip.
func (c *Clip) Clone() *Clip {
	out := &Clip{Format: c.Format, Channels: c.Channels}
	if c.Data != nil {
		out.Data = make([]int, len(c.Data))
		copy(out.Data, c.Data)
	}
	if c.Float32 != nil {
		out.Float32 = make([]float32, len(c.Float32))
		copy(out.Float32, c.Float32)
	}
	return out
}

// ToIntBuffer converts the clip into a go-audio IntBuffer suitable for the
// WAV encoder, along with the container bit depth. Float32 clips are scaled
// to 32-bit PCM; everything else maps one to one.
func (c *Clip) ToIntBuffer(sampleRate int) (*audio.IntBuffer, int) {
	format := &audio.Format{NumChannels: c.Channels, SampleRate: sampleRate}
	if c.Format == FormatFloat32 {
		data := make([]int, len(c.Float32))
		for i, v := range c.Float32 {
			data[i] = int(math.Round(clampUnit(float64(v)) * denormInt32))
		}
		return &audio.IntBuffer{Format: format, Data: data, SourceBitDepth: 32}, 32
	}

	data := make([]int, len(c.Data))
	copy(data, c.Data)
	depth := c.Format.BitDepth()
	return &audio.IntBuffer{Format: format, Data: data, SourceBitDepth: depth}, depth
}

// ClipFromIntBuffer reconstructs a clip in the given native format from a
// decoded IntBuffer. The buffer's samples must use the container encoding
// matching format.BitDepth().
func ClipFromIntBuffer(buf *audio.IntBuffer, format SampleFormat) (*Clip, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidLayout)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%w: channels=%d", ErrInvalidLayout, channels)
	}

	if format == FormatFloat32 {
		data := make([]float32, len(buf.Data))
		for i, v := range buf.Data {
			data[i] = float32(float64(v) / denormInt32)
		}
		return NewFloatClip(channels, data)
	}

	data := make([]int, len(buf.Data))
	copy(data, buf.Data)
	return NewIntClip(format, channels, data)
}

// FramePeaks writes the per-frame peak absolute value across channels into
// dst and returns it. For multi-channel audio the single highest-magnitude
// channel drives the value, not an average. dst is grown as needed.
func FramePeaks(data []float64, channels int, dst []float64) []float64 {
	if channels < 1 {
		return dst[:0]
	}
	frames := len(data) / channels
	if cap(dst) < frames {
		dst = make([]float64, frames)
	}
	dst = dst[:frames]

	if channels == 1 {
		for i, v := range data[:frames] {
			dst[i] = math.Abs(v)
		}
		return dst
	}

	for i := range frames {
		base := i * channels
		peak := math.Abs(data[base])
		for ch := 1; ch < channels; ch++ {
			if a := math.Abs(data[base+ch]); a > peak {
				peak = a
			}
		}
		dst[i] = peak
	}
	return dst
}

func clampUnit(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
