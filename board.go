package dynamics

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/go-audio-dynamics/internal/lru"
	"github.com/tphakala/go-audio-dynamics/internal/store"
	"github.com/tphakala/go-audio-dynamics/pcm"
)

// Player is the playback collaborator the board drives. Implementations
// receive whole in-memory clips; there is no streaming.
type Player interface {
	// Play starts playback of the clip at the given sample rate.
	Play(clip *pcm.Clip, sampleRate int) error

	// StopAll stops every playing voice.
	StopAll()
}

// SoundItem is a loaded clip: created at asset-load time, immutable
// afterwards, replaced wholesale on reload. Key is unique across groups.
type SoundItem struct {
	Key         string
	DisplayName string
	Clip        *pcm.Clip
	Path        string
	SampleRate  int
	Duration    time.Duration
	Group       string
}

// Stats counts cache outcomes across the board's lifetime.
type Stats struct {
	MemHits   uint64
	DiskHits  uint64
	Processed uint64
	RawPlays  uint64
	Fallbacks uint64
}

// Errors returned by the board.
var (
	// ErrUnknownSound indicates a playback request for a key that was
	// never registered.
	ErrUnknownSound = errors.New("dynamics: unknown sound")

	// ErrDuplicateSound indicates a registration under an existing key.
	ErrDuplicateSound = errors.New("dynamics: duplicate sound key")

	// ErrNoPlayer indicates the board has no playback collaborator.
	ErrNoPlayer = errors.New("dynamics: no player configured")
)

// memKey addresses the in-memory tier: a processed clip per (clip key,
// settings signature) pair.
type memKey struct {
	clip      string
	signature string
}

// BoardConfig configures a Board.
type BoardConfig struct {
	// Settings is the initial compressor configuration. The zero value
	// means DefaultSettings.
	Settings Settings

	// CacheDir is the disk cache directory. Empty disables the
	// persistent tier; playback then works from memory and recompute.
	CacheDir string

	// Player performs actual playback. It may be nil for offline use;
	// Play then fails with ErrNoPlayer.
	Player Player

	// Logger receives cache and fallback diagnostics. Nil means the
	// package default.
	Logger *log.Logger
}

// Board orchestrates playback over the two cache tiers: memory LRU first,
// disk store second, fresh processing last, populating each faster tier on
// the way out. Processing failures never prevent playback; the raw clip is
// the fallback at every step.
//
// Board is safe for concurrent use. The mutex guards the settings snapshot
// and cache mutation only; the DSP pass runs outside it, with concurrent
// misses for the same (clip, signature) collapsed onto one computation.
type Board struct {
	mu       sync.Mutex
	settings Settings
	sounds   map[string]*SoundItem
	mem      *lru.Cache[memKey, *pcm.Clip]
	disk     *store.Store
	player   Player
	flight   singleflight.Group
	logger   *log.Logger
	stats    Stats
}

// NewBoard creates a board. The settings snapshot is clamped; a zero
// Settings value is replaced by the defaults.
func NewBoard(cfg BoardConfig) (*Board, error) {
	settings := cfg.Settings
	if settings == (Settings{}) {
		settings = DefaultSettings()
	}
	settings = settings.clamped()

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	var disk *store.Store
	if cfg.CacheDir != "" {
		var err error
		if disk, err = store.New(cfg.CacheDir, logger); err != nil {
			return nil, fmt.Errorf("dynamics: open disk cache: %w", err)
		}
	}

	return &Board{
		settings: settings,
		sounds:   make(map[string]*SoundItem),
		mem:      lru.New[memKey, *pcm.Clip](settings.CacheMaxItems),
		disk:     disk,
		player:   cfg.Player,
		logger:   logger,
	}, nil
}

// AddSound registers a loaded clip under its key.
func (b *Board) AddSound(item *SoundItem) error {
	if item == nil || item.Clip == nil {
		return ErrNilClip
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.sounds[item.Key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSound, item.Key)
	}
	b.sounds[item.Key] = item
	return nil
}

// ReplaceSounds swaps the whole sound index, dropping the previous items.
// The memory cache is cleared since its entries may refer to stale clips.
func (b *Board) ReplaceSounds(items []*SoundItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sounds = make(map[string]*SoundItem, len(items))
	for _, item := range items {
		if item != nil && item.Clip != nil {
			b.sounds[item.Key] = item
		}
	}
	b.mem.Clear()
}

// Sound returns the item registered under key.
func (b *Board) Sound(key string) (*SoundItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.sounds[key]
	return item, ok
}

// Sounds returns all registered items sorted by key.
func (b *Board) Sounds() []*SoundItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]*SoundItem, 0, len(b.sounds))
	for _, item := range b.sounds {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

// Play resolves the clip for key through the cache tiers and hands it to
// the player. With processing disabled the raw clip plays directly. Any
// failure in the processing chain downgrades to raw playback; only an
// unknown key or a player error is returned.
func (b *Board) Play(key string) error {
	b.mu.Lock()
	item, ok := b.sounds[key]
	settings := b.settings
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSound, key)
	}
	if b.player == nil {
		return ErrNoPlayer
	}

	clip := item.Clip
	if settings.Enabled {
		if processed, err := b.processed(item, settings); err != nil {
			b.mu.Lock()
			b.stats.Fallbacks++
			b.mu.Unlock()
			b.logger.Warn("compressor processing failed, playing raw clip",
				"sound", key, "error", err)
		} else {
			clip = processed
		}
	} else {
		b.mu.Lock()
		b.stats.RawPlays++
		b.mu.Unlock()
	}

	return b.player.Play(clip, item.SampleRate)
}

// processed returns the clip-under-current-settings, probing memory, then
// disk, then computing fresh. Concurrent misses on the same key share one
// computation through the flight group.
func (b *Board) processed(item *SoundItem, settings Settings) (*pcm.Clip, error) {
	signature := settings.Signature()
	key := memKey{clip: item.Key, signature: signature}

	b.mu.Lock()
	cached, hit := b.mem.Get(key)
	if hit {
		b.stats.MemHits++
	}
	b.mu.Unlock()
	if hit {
		return cached, nil
	}

	result, err, _ := b.flight.Do(item.Key+"\x00"+signature, func() (any, error) {
		return b.loadOrCompute(item, settings, signature)
	})
	if err != nil {
		return nil, err
	}
	clip, ok := result.(*pcm.Clip)
	if !ok {
		return nil, fmt.Errorf("dynamics: unexpected flight result %T", result)
	}

	b.mu.Lock()
	b.mem.Put(key, clip)
	b.mu.Unlock()
	return clip, nil
}

// loadOrCompute probes the disk tier and falls back to the engine. Runs
// outside the board mutex; the store serializes nothing because each
// (source, signature) addresses its own file.
func (b *Board) loadOrCompute(item *SoundItem, settings Settings, signature string) (*pcm.Clip, error) {
	var diskKey string
	if b.disk != nil {
		diskKey = b.disk.Key(item.Path, signature)
		if clip, ok := b.disk.Load(diskKey, item.Clip.Format); ok {
			b.logger.Debug("loaded processed clip from disk cache",
				"sound", item.Key, "entry", diskKey)
			b.mu.Lock()
			b.stats.DiskHits++
			b.mu.Unlock()
			return clip, nil
		}
	}

	b.logger.Debug("processing clip", "sound", item.Key, "signature", signature)
	clip, err := Process(item.Clip, item.SampleRate, settings)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.stats.Processed++
	b.mu.Unlock()

	if b.disk != nil {
		b.disk.Store(diskKey, clip, item.SampleRate)
	}
	return clip, nil
}

// Settings returns the current snapshot.
func (b *Board) Settings() Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// SetEnabled toggles processing. Caches are left intact: the numeric
// signature is unchanged, so existing entries stay valid for when
// processing is re-enabled.
func (b *Board) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = b.settings.WithEnabled(enabled)
}

// UpdateSetting applies one parameter change: a new clamped snapshot with a
// bumped revision, the memory cache resized when the bound changed, then
// both cache tiers cleared. Play calls after this use the new signature;
// in-flight computations under the old one populate keys nothing will ask
// for again.
func (b *Board) UpdateSetting(field Field, value float64) Settings {
	b.mu.Lock()
	b.settings = b.settings.With(field, value)
	b.mem.SetCapacity(b.settings.CacheMaxItems)
	b.mem.Clear()
	updated := b.settings
	b.mu.Unlock()

	if b.disk != nil {
		b.disk.ClearAll()
	}
	return updated
}

// ReplaceSettings installs a full snapshot, typically loaded from the
// settings file at startup. The memory cache is resized but not cleared;
// the disk tier is untouched so persisted entries from a previous run keep
// serving the same signature.
func (b *Board) ReplaceSettings(s Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = s.clamped()
	b.mem.SetCapacity(b.settings.CacheMaxItems)
}

// ResetDefaults restores the default parameters (revision carries on
// monotonically) and clears both cache tiers.
func (b *Board) ResetDefaults() Settings {
	b.mu.Lock()
	revision := b.settings.Revision + 1
	b.settings = DefaultSettings()
	b.settings.Revision = revision
	b.mem.SetCapacity(b.settings.CacheMaxItems)
	b.mem.Clear()
	updated := b.settings
	b.mu.Unlock()

	if b.disk != nil {
		b.disk.ClearAll()
	}
	return updated
}

// ClearCaches bumps the revision and drops both tiers.
func (b *Board) ClearCaches() {
	b.mu.Lock()
	b.settings.Revision++
	b.mem.Clear()
	b.mu.Unlock()

	if b.disk != nil {
		b.disk.ClearAll()
	}
}

// StopAll stops playback on the configured player.
func (b *Board) StopAll() {
	if b.player != nil {
		b.player.StopAll()
	}
}

// Stats returns a snapshot of the cache counters.
func (b *Board) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
