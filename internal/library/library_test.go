package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-dynamics/pcm"
)

// writeWAV encodes an integer PCM file for the loader to find.
func writeWAV(t *testing.T, path string, bitDepth, channels, sampleRate int, data []int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestLoadWalksDirectoryTree(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "ding.wav"), 16, 1, 44100, []int{0, 1000, -1000, 500})
	writeWAV(t, filepath.Join(dir, "alerts", "horn.wav"), 16, 2, 48000, []int{1, 2, 3, 4})

	items, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byKey := map[string]bool{}
	for _, item := range items {
		byKey[item.Key] = true
	}
	assert.True(t, byKey["ding"])
	assert.True(t, byKey["alerts/horn"])
}

func TestLoadItemMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts", "horn.wav")
	writeWAV(t, path, 16, 2, 48000, make([]int, 48000*2))

	items, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "alerts/horn", item.Key)
	assert.Equal(t, "horn", item.DisplayName)
	assert.Equal(t, "alerts", item.Group)
	assert.Equal(t, path, item.Path)
	assert.Equal(t, 48000, item.SampleRate)
	assert.Equal(t, pcm.FormatInt16, item.Clip.Format)
	assert.Equal(t, 2, item.Clip.Channels)
	assert.InDelta(t, 1.0, item.Duration.Seconds(), 1e-9)
}

func TestLoadTopLevelFileHasNoGroup(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "ding.wav"), 16, 1, 44100, []int{1, 2, 3})

	items, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Group)
}

func TestLoadSkipsCorruptAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "good.wav"), 16, 1, 44100, []int{1, 2, 3, 4})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.wav"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))

	items, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "good", items[0].Key)
}

func TestLoadMissingDirectoryErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}

func TestLoadEightBitAsset(t *testing.T) {
	dir := t.TempDir()
	// WAV 8-bit is unsigned; full scale is 255, silence 128.
	writeWAV(t, filepath.Join(dir, "lofi.wav"), 8, 1, 22050, []int{0, 128, 255})

	items, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pcm.FormatUint8, items[0].Clip.Format)
	assert.Equal(t, []int{0, 128, 255}, items[0].Clip.Data)
}

func TestFormatForDepth(t *testing.T) {
	tests := []struct {
		depth  int
		format pcm.SampleFormat
		ok     bool
	}{
		{8, pcm.FormatUint8, true},
		{16, pcm.FormatInt16, true},
		{24, pcm.FormatInt32, true},
		{32, pcm.FormatInt32, true},
		{12, 0, false},
	}
	for _, tt := range tests {
		format, err := formatForDepth(tt.depth)
		if tt.ok {
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
		} else {
			assert.Error(t, err)
		}
	}
}
