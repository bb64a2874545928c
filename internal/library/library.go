// Package library loads sound assets from a directory tree. Each WAV file
// becomes one immutable SoundItem keyed by its slash-separated relative
// path without extension; a first-level subdirectory, when present, becomes
// the item's group. Unreadable or unsupported files are skipped with a log
// line and loading continues.
package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-audio/wav"

	dynamics "github.com/tphakala/go-audio-dynamics"
	"github.com/tphakala/go-audio-dynamics/pcm"
)

// Bit depths of the PCM encodings the loader accepts.
const (
	depth8  = 8
	depth16 = 16
	depth24 = 24
	depth32 = 32

	// shift24to32 widens 24-bit samples into the 32-bit range so they
	// normalize against the int32 full scale.
	shift24to32 = 8
)

// Load scans dir recursively and decodes every .wav file into a SoundItem.
// It returns an error only when the directory itself cannot be walked;
// individual asset failures are logged and skipped.
func Load(dir string, logger *log.Logger) ([]*dynamics.SoundItem, error) {
	if logger == nil {
		logger = log.Default()
	}

	var items []*dynamics.SoundItem
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}

		item, loadErr := loadOne(dir, path)
		if loadErr != nil {
			logger.Warn("skipping sound asset", "path", path, "error", loadErr)
			return nil
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("library: scan %s: %w", dir, err)
	}
	return items, nil
}

// loadOne decodes a single WAV file into a SoundItem.
func loadOne(root, path string) (*dynamics.SoundItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	format, err := formatForDepth(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}
	if format == pcm.FormatInt32 && decoder.BitDepth == depth24 {
		for i, v := range buf.Data {
			buf.Data[i] = v << shift24to32
		}
	}

	clip, err := pcm.ClipFromIntBuffer(buf, format)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	key := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	group := ""
	if i := strings.IndexByte(key, '/'); i >= 0 {
		group = key[:i]
	}

	sampleRate := buf.Format.SampleRate
	return &dynamics.SoundItem{
		Key:         key,
		DisplayName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Clip:        clip,
		Path:        path,
		SampleRate:  sampleRate,
		Duration:    clip.Duration(sampleRate),
		Group:       group,
	}, nil
}

// formatForDepth maps a container bit depth onto the native clip format.
// 24-bit assets are widened to 32-bit; WAV 8-bit is unsigned by definition.
func formatForDepth(depth int) (pcm.SampleFormat, error) {
	switch depth {
	case depth8:
		return pcm.FormatUint8, nil
	case depth16:
		return pcm.FormatInt16, nil
	case depth24, depth32:
		return pcm.FormatInt32, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth %d", depth)
	}
}
