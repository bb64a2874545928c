package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-dynamics/pcm"
)

const testSignature = "ig=0.000|th=-18.000|ra=4.000|at=10.000|re=120.000|mk=0.000|ce=-1.000"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func writeSourceFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	return path
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s, err := New(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestKeyIsStableForUnchangedInputs(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, t.TempDir(), "clip.wav")

	assert.Equal(t, s.Key(src, testSignature), s.Key(src, testSignature))
	assert.Len(t, s.Key(src, testSignature), 40, "sha1 hex digest")
}

func TestKeyChangesWithSignature(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, t.TempDir(), "clip.wav")

	a := s.Key(src, testSignature)
	b := s.Key(src, "ig=0.000|th=-24.000|ra=4.000|at=10.000|re=120.000|mk=0.000|ce=-1.000")
	assert.NotEqual(t, a, b)
}

func TestKeyChangesWhenSourceChanges(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, t.TempDir(), "clip.wav")
	before := s.Key(src, testSignature)

	// A different mtime means a different identity even with identical
	// content and size.
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(src, later, later))
	assert.NotEqual(t, before, s.Key(src, testSignature))
}

func TestKeyForMissingSourceUsesSentinelStamp(t *testing.T) {
	s := newTestStore(t)
	missing := filepath.Join(t.TempDir(), "gone.wav")

	// Deterministic even without a source to stat.
	assert.Equal(t, s.Key(missing, testSignature), s.Key(missing, testSignature))
}

func TestStoreLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		clip *pcm.Clip
	}{
		{
			name: "int16 stereo",
			clip: &pcm.Clip{Format: pcm.FormatInt16, Channels: 2, Data: []int{0, 100, -200, 32000, -32000, 7}},
		},
		{
			name: "uint8 mono",
			clip: &pcm.Clip{Format: pcm.FormatUint8, Channels: 1, Data: []int{0, 127, 255, 64}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.Store("abc123", tt.clip, 44100)

			loaded, ok := s.Load("abc123", tt.clip.Format)
			require.True(t, ok)
			assert.Equal(t, tt.clip.Data, loaded.Data)
			assert.Equal(t, tt.clip.Channels, loaded.Channels)
			assert.Equal(t, tt.clip.Format, loaded.Format)
		})
	}
}

func TestStoreLoadRoundTripFloat32(t *testing.T) {
	s := newTestStore(t)
	clip, err := pcm.NewFloatClip(1, []float32{0, 0.5, -0.5, 0.999})
	require.NoError(t, err)

	s.Store("float-entry", clip, 48000)

	loaded, ok := s.Load("float-entry", pcm.FormatFloat32)
	require.True(t, ok)
	require.Len(t, loaded.Float32, len(clip.Float32))
	for i := range clip.Float32 {
		assert.InDelta(t, clip.Float32[i], loaded.Float32[i], 1e-6)
	}
}

func TestLoadMissingEntryIsMiss(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.Load("does-not-exist", pcm.FormatInt16)
	assert.False(t, ok)
}

func TestLoadCorruptEntryIsMiss(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.EntryPath("bad"), []byte("not a wav"), 0o644))

	_, ok := s.Load("bad", pcm.FormatInt16)
	assert.False(t, ok)
}

func TestClearAllRemovesOnlyEntries(t *testing.T) {
	s := newTestStore(t)
	clip := &pcm.Clip{Format: pcm.FormatInt16, Channels: 1, Data: []int{1, 2, 3}}
	s.Store("one", clip, 44100)
	s.Store("two", clip, 44100)

	// An unrelated file in the cache directory must survive.
	other := filepath.Join(s.Dir(), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))

	s.ClearAll()

	_, ok := s.Load("one", pcm.FormatInt16)
	assert.False(t, ok)
	_, ok = s.Load("two", pcm.FormatInt16)
	assert.False(t, ok)
	_, err := os.Stat(other)
	assert.NoError(t, err)
}

func TestEntryPathLayout(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, filepath.Join(s.Dir(), "deadbeef.wav"), s.EntryPath("deadbeef"))
}
