// Package playback is the default Player implementation on ebitengine/oto.
// One audio context is opened per process at a fixed output format; clips
// are converted (channel-mapped, linearly resampled when the rates differ,
// requantized to signed 16-bit) on each Play call. Voices overlap freely
// until StopAll.
package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/tphakala/go-audio-dynamics/pcm"
)

const (
	defaultSampleRate = 44100
	defaultChannels   = 2
	defaultBufferSize = 50 * time.Millisecond

	// readyTimeout bounds the wait for the audio backend to come up.
	readyTimeout = 5 * time.Second

	maxInt16          = 32767.0
	bytesPerI16Sample = 2
)

// ErrNotReady indicates the audio context did not initialize in time.
var ErrNotReady = errors.New("playback: audio context not ready")

// Config configures the output device.
type Config struct {
	SampleRate int
	Channels   int
	BufferSize time.Duration
	Logger     *log.Logger
}

// Player plays whole in-memory clips through an oto context. It implements
// the board's Player interface.
type Player struct {
	ctx      *oto.Context
	rate     int
	channels int
	log      *log.Logger

	mu     sync.Mutex
	voices []*oto.Player
}

// New opens the audio context and waits for it to become ready.
func New(cfg Config) (*Player, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaultChannels
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("playback: create audio context: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		return nil, ErrNotReady
	}

	return &Player{
		ctx:      ctx,
		rate:     cfg.SampleRate,
		channels: cfg.Channels,
		log:      cfg.Logger,
	}, nil
}

// Play converts the clip to the device format and starts a new voice.
func (p *Player) Play(clip *pcm.Clip, sampleRate int) error {
	if clip == nil || clip.Empty() {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = p.rate
	}

	data, err := clip.Normalize()
	if err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	buf := p.render(data, clip.Channels, sampleRate)

	voice := p.ctx.NewPlayer(bytes.NewReader(buf))
	voice.Play()

	p.mu.Lock()
	p.reapLocked()
	p.voices = append(p.voices, voice)
	p.mu.Unlock()
	return nil
}

// StopAll closes every voice.
func (p *Player) StopAll() {
	p.mu.Lock()
	voices := p.voices
	p.voices = nil
	p.mu.Unlock()

	for _, voice := range voices {
		if err := voice.Close(); err != nil {
			p.log.Debug("could not close voice", "error", err)
		}
	}
}

// Busy reports whether any voice is still playing.
func (p *Player) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, voice := range p.voices {
		if voice.IsPlaying() {
			return true
		}
	}
	return false
}

// reapLocked drops voices that finished playing. Caller holds the mutex.
func (p *Player) reapLocked() {
	active := p.voices[:0]
	for _, voice := range p.voices {
		if voice.IsPlaying() {
			active = append(active, voice)
			continue
		}
		_ = voice.Close()
	}
	p.voices = active
}

// render converts normalized interleaved samples into the device's signed
// 16-bit little-endian frame stream, mapping channels and linearly
// resampling when the clip rate differs from the device rate.
func (p *Player) render(data []float64, channels, sampleRate int) []byte {
	srcFrames := len(data) / channels
	outFrames := srcFrames
	step := 1.0
	if sampleRate != p.rate {
		outFrames = int(float64(srcFrames) * float64(p.rate) / float64(sampleRate))
		if outFrames < 1 {
			outFrames = 1
		}
		step = float64(sampleRate) / float64(p.rate)
	}

	buf := make([]byte, outFrames*p.channels*bytesPerI16Sample)
	for i := range outFrames {
		pos := float64(i) * step
		frame := int(pos)
		frac := pos - float64(frame)
		next := frame + 1
		if next >= srcFrames {
			next = srcFrames - 1
		}

		for ch := range p.channels {
			src := ch
			if src >= channels {
				src = channels - 1
			}
			a := data[frame*channels+src]
			b := data[next*channels+src]
			v := a + (b-a)*frac
			if v > 1.0 {
				v = 1.0
			} else if v < -1.0 {
				v = -1.0
			}
			s := int16(math.Round(v * maxInt16))
			idx := (i*p.channels + ch) * bytesPerI16Sample
			binary.LittleEndian.PutUint16(buf[idx:], uint16(s))
		}
	}
	return buf
}
