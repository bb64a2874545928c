// Package store implements the persistent tier of the processed-clip cache.
// Entries are WAV files named by a SHA-1 digest of the source file identity
// (absolute path plus modification stamp) and the settings signature, so an
// edited source file or changed processing parameters address a different
// entry without any explicit invalidation step.
//
// Every I/O failure here is deliberately non-fatal: a read problem is a
// cache miss, a write problem only costs the next playback a recompute.
package store

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-audio-dynamics/pcm"
)

// entryExt is the container suffix for cache entries. Only files carrying
// it are touched by ClearAll.
const entryExt = ".wav"

// statFailureStamp stands in for the modification stamp when the source
// file cannot be stat'd. The entry then simply never matches a healthy
// source again.
const statFailureStamp = "0:0"

// wavFormatPCM is the WAV audio format tag for linear PCM.
const wavFormatPCM = 1

// Store is a directory of processed-clip WAV files.
type Store struct {
	dir string
	log *log.Logger
}

// New opens (creating if needed) a store rooted at dir. A nil logger falls
// back to the package default.
func New(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create cache dir: %w", err)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Key derives the cache file identifier for a source file under a settings
// signature. The digest input is "sourcePath|mtimeNanos:sizeBytes|signature"
// so the key binds to the exact source bytes as well as the exact
// processing parameters.
func (s *Store) Key(sourcePath, signature string) string {
	stamp := statFailureStamp
	if fi, err := os.Stat(sourcePath); err == nil {
		stamp = fmt.Sprintf("%d:%d", fi.ModTime().UnixNano(), fi.Size())
	}
	raw := fmt.Sprintf("%s|%s|%s", sourcePath, stamp, signature)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EntryPath returns the on-disk path for a cache file identifier.
func (s *Store) EntryPath(key string) string {
	return filepath.Join(s.dir, key+entryExt)
}

// Load reads the entry for key back into a clip in the given native format.
// It returns false when the entry does not exist or cannot be decoded;
// decode failures are logged and treated as a miss.
func (s *Store) Load(key string, format pcm.SampleFormat) (*pcm.Clip, bool) {
	path := s.EntryPath(key)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("could not open disk cache entry", "path", path, "error", err)
		}
		return nil, false
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		s.log.Warn("disk cache entry is not a valid WAV file", "path", path)
		return nil, false
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		s.log.Warn("could not decode disk cache entry", "path", path, "error", err)
		return nil, false
	}

	clip, err := pcm.ClipFromIntBuffer(buf, format)
	if err != nil {
		s.log.Warn("disk cache entry has unusable layout", "path", path, "error", err)
		return nil, false
	}
	return clip, true
}

// Store writes the processed clip under key as an uncompressed WAV
// container (channel count, sample width, sample rate, raw frames). Write
// failures are logged and the partial entry removed; playback proceeds from
// the in-memory result regardless.
func (s *Store) Store(key string, clip *pcm.Clip, sampleRate int) {
	path := s.EntryPath(key)
	f, err := os.Create(path)
	if err != nil {
		s.log.Warn("could not create disk cache entry", "path", path, "error", err)
		return
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
		s.log.Warn("could not write disk cache entry", "path", path, "error", err)
		_ = os.Remove(path)
	}
}

// ClearAll removes every recognized cache file in the store directory,
// tolerating individual removal failures.
func (s *Store) ClearAll() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("could not enumerate disk cache", "dir", s.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), entryExt) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warn("could not remove disk cache entry", "path", path, "error", err)
		}
	}
}
