// Package dynamics is the audio-processing core of a soundboard: a
// single-band compressor/limiter applied to whole in-memory PCM clips, with
// a two-level cache (bounded in-memory LRU plus a persistent disk store)
// that makes repeated playback of the same clip under the same settings
// cheap.
//
// # Features
//
//   - Format-agnostic processing: unsigned 8-bit, signed 16/32-bit and
//     float32 clips, mono or multi-channel interleaved, returned in the same
//     native representation they came in
//   - Peak-detector compressor with exponential one-pole attack/release
//     smoothing, makeup gain and a hard output ceiling
//   - Stable settings signature addressing both cache tiers; the disk tier
//     additionally binds to the source file's modification stamp so edited
//     audio invalidates itself
//   - Fault-tolerant by construction: configuration, cache and processing
//     errors all degrade to playing the unprocessed clip
//
// # Quick Start
//
// One-shot processing of a decoded clip:
//
//	processed, err := dynamics.Process(clip, 44100, dynamics.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Full playback orchestration over both cache tiers:
//
//	board, err := dynamics.NewBoard(dynamics.BoardConfig{
//	    Settings: dynamics.DefaultSettings(),
//	    CacheDir: cacheDir,
//	    Player:   player,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, item := range items {
//	    _ = board.AddSound(item)
//	}
//	if err := board.Play("airhorn"); err != nil {
//	    log.Fatal(err)
//	}
//
// Settings mutation goes through a single entry point that clamps the value,
// bumps the revision counter and clears both cache tiers:
//
//	board.UpdateSetting(dynamics.FieldThresholdDB, -24)
//
// The playback backend is pluggable through the [Player] interface; package
// internal/playback provides the default implementation on ebitengine/oto.
package dynamics
