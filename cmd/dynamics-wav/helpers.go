package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/floats"

	"github.com/tphakala/go-audio-dynamics/pcm"
)

// wavFormatPCM is the WAV audio format tag for linear PCM.
const wavFormatPCM = 1

// shift24to32 widens 24-bit samples into the 32-bit range.
const shift24to32 = 8

// wavClip holds a decoded file along with its sample rate.
type wavClip struct {
	clip       *pcm.Clip
	sampleRate int
}

// readWAVClip decodes a whole WAV file into a native-format clip.
func readWAVClip(path string) (*wavClip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	var format pcm.SampleFormat
	switch decoder.BitDepth {
	case 8:
		format = pcm.FormatUint8
	case 16:
		format = pcm.FormatInt16
	case 24:
		format = pcm.FormatInt32
		for i, v := range buf.Data {
			buf.Data[i] = v << shift24to32
		}
	case 32:
		format = pcm.FormatInt32
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", decoder.BitDepth)
	}

	clip, err := pcm.ClipFromIntBuffer(buf, format)
	if err != nil {
		return nil, err
	}
	return &wavClip{clip: clip, sampleRate: buf.Format.SampleRate}, nil
}

// writeWAVClip writes the clip back out as an uncompressed WAV file.
func writeWAVClip(path string, clip *pcm.Clip, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	buf, bitDepth := clip.ToIntBuffer(sampleRate)
	encoder := wav.NewEncoder(f, sampleRate, bitDepth, clip.Channels, wavFormatPCM)

	if err := encoder.Write(buf); err == nil {
		err = encoder.Close()
	} else {
		_ = encoder.Close()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// peakLevels measures the peak level of both clips in dBFS.
func peakLevels(before, after *pcm.Clip) (inDB, outDB float64) {
	return clipPeakDB(before), clipPeakDB(after)
}

func clipPeakDB(clip *pcm.Clip) float64 {
	data, err := clip.Normalize()
	if err != nil || len(data) == 0 {
		return math.Inf(-1)
	}
	peak := math.Max(floats.Max(data), -floats.Min(data))
	return 20.0 * math.Log10(math.Max(peak, 1e-9))
}
