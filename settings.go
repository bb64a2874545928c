package dynamics

import (
	"fmt"

	"github.com/tphakala/go-audio-dynamics/internal/engine"
)

// Default compressor settings, applied at startup and whenever a persisted
// field is absent or malformed.
const (
	DefaultInputGainDB     = 0.0
	DefaultThresholdDB     = -18.0
	DefaultRatio           = 4.0
	DefaultAttackMs        = 10.0
	DefaultReleaseMs       = 120.0
	DefaultMakeupGainDB    = 0.0
	DefaultOutputCeilingDB = -1.0
	DefaultCacheMaxItems   = 32
)

// Parameter domain floors. Values below these are clamped, never rejected.
const (
	minRatio         = 1.0
	minAttackMs      = 1.0
	minReleaseMs     = 1.0
	minCacheMaxItems = 1
	minRevision      = 0
)

// Persisted field keys: the flat key/value record shared with the settings
// file. Unknown or missing keys fall back to defaults on load.
const (
	KeyEnabled         = "compressor_enabled"
	KeyInputGainDB     = "compressor_input_gain_db"
	KeyThresholdDB     = "compressor_threshold_db"
	KeyRatio           = "compressor_ratio"
	KeyAttackMs        = "compressor_attack_ms"
	KeyReleaseMs       = "compressor_release_ms"
	KeyMakeupGainDB    = "compressor_makeup_gain_db"
	KeyOutputCeilingDB = "compressor_output_ceiling_db"
	KeyCacheMaxItems   = "compressor_cache_max_items"
	KeyRevision        = "compressor_revision"
)

// Field names a mutable compressor parameter for the single update entry
// point. Enabled is not a Field: toggling it does not affect the audio
// transform and must not invalidate caches.
type Field int

const (
	FieldInputGainDB Field = iota
	FieldThresholdDB
	FieldRatio
	FieldAttackMs
	FieldReleaseMs
	FieldMakeupGainDB
	FieldOutputCeilingDB
	FieldCacheMaxItems
)

// String returns the persisted key for the field.
func (f Field) String() string {
	switch f {
	case FieldInputGainDB:
		return KeyInputGainDB
	case FieldThresholdDB:
		return KeyThresholdDB
	case FieldRatio:
		return KeyRatio
	case FieldAttackMs:
		return KeyAttackMs
	case FieldReleaseMs:
		return KeyReleaseMs
	case FieldMakeupGainDB:
		return KeyMakeupGainDB
	case FieldOutputCeilingDB:
		return KeyOutputCeilingDB
	case FieldCacheMaxItems:
		return KeyCacheMaxItems
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Settings is the immutable-per-use compressor configuration. Mutation goes
// through With/WithEnabled, which produce a new clamped snapshot; With also
// bumps Revision so caches can be invalidated even when the numeric
// signature would collide.
type Settings struct {
	Enabled         bool
	InputGainDB     float64
	ThresholdDB     float64
	Ratio           float64
	AttackMs        float64
	ReleaseMs       float64
	MakeupGainDB    float64
	OutputCeilingDB float64
	CacheMaxItems   int
	Revision        int
}

// DefaultSettings returns the startup configuration.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         true,
		InputGainDB:     DefaultInputGainDB,
		ThresholdDB:     DefaultThresholdDB,
		Ratio:           DefaultRatio,
		AttackMs:        DefaultAttackMs,
		ReleaseMs:       DefaultReleaseMs,
		MakeupGainDB:    DefaultMakeupGainDB,
		OutputCeilingDB: DefaultOutputCeilingDB,
		CacheMaxItems:   DefaultCacheMaxItems,
		Revision:        0,
	}
}

// clamped returns a copy with every field forced into its domain.
func (s Settings) clamped() Settings {
	s.Ratio = max(minRatio, s.Ratio)
	s.AttackMs = max(minAttackMs, s.AttackMs)
	s.ReleaseMs = max(minReleaseMs, s.ReleaseMs)
	s.CacheMaxItems = max(minCacheMaxItems, s.CacheMaxItems)
	s.Revision = max(minRevision, s.Revision)
	return s
}

// With returns a new snapshot with field set to value, clamped to the
// field's domain, and Revision incremented.
func (s Settings) With(field Field, value float64) Settings {
	switch field {
	case FieldInputGainDB:
		s.InputGainDB = value
	case FieldThresholdDB:
		s.ThresholdDB = value
	case FieldRatio:
		s.Ratio = value
	case FieldAttackMs:
		s.AttackMs = value
	case FieldReleaseMs:
		s.ReleaseMs = value
	case FieldMakeupGainDB:
		s.MakeupGainDB = value
	case FieldOutputCeilingDB:
		s.OutputCeilingDB = value
	case FieldCacheMaxItems:
		s.CacheMaxItems = int(value)
	}
	s.Revision++
	return s.clamped()
}

// WithEnabled returns a new snapshot with the processing toggle set.
// Revision is untouched: the numeric transform is unchanged, so existing
// cache entries stay valid and are reused when re-enabled.
func (s Settings) WithEnabled(enabled bool) Settings {
	s.Enabled = enabled
	return s
}

// SettingsFromMap builds settings from a flat key/value record. Each field
// is independently defaulted and clamped: absent keys, wrong types and
// out-of-range numbers silently fall back, never error. Hand-edited
// configuration files depend on this.
func SettingsFromMap(data map[string]any) Settings {
	s := DefaultSettings()
	if v, ok := data[KeyEnabled].(bool); ok {
		s.Enabled = v
	}
	s.InputGainDB = numOr(data[KeyInputGainDB], s.InputGainDB)
	s.ThresholdDB = numOr(data[KeyThresholdDB], s.ThresholdDB)
	s.Ratio = numOr(data[KeyRatio], s.Ratio)
	s.AttackMs = numOr(data[KeyAttackMs], s.AttackMs)
	s.ReleaseMs = numOr(data[KeyReleaseMs], s.ReleaseMs)
	s.MakeupGainDB = numOr(data[KeyMakeupGainDB], s.MakeupGainDB)
	s.OutputCeilingDB = numOr(data[KeyOutputCeilingDB], s.OutputCeilingDB)
	s.CacheMaxItems = int(numOr(data[KeyCacheMaxItems], float64(s.CacheMaxItems)))
	s.Revision = int(numOr(data[KeyRevision], float64(s.Revision)))
	return s.clamped()
}

// ToMap returns the exact persisted field set for the settings.
func (s Settings) ToMap() map[string]any {
	return map[string]any{
		KeyEnabled:         s.Enabled,
		KeyInputGainDB:     s.InputGainDB,
		KeyThresholdDB:     s.ThresholdDB,
		KeyRatio:           s.Ratio,
		KeyAttackMs:        s.AttackMs,
		KeyReleaseMs:       s.ReleaseMs,
		KeyMakeupGainDB:    s.MakeupGainDB,
		KeyOutputCeilingDB: s.OutputCeilingDB,
		KeyCacheMaxItems:   s.CacheMaxItems,
		KeyRevision:        s.Revision,
	}
}

// Signature returns the stable string encoding of the audio-affecting
// fields, formatted to fixed precision. CacheMaxItems and Revision are
// deliberately excluded: they govern cache policy, not the transform.
func (s Settings) Signature() string {
	return fmt.Sprintf("ig=%.3f|th=%.3f|ra=%.3f|at=%.3f|re=%.3f|mk=%.3f|ce=%.3f",
		s.InputGainDB, s.ThresholdDB, s.Ratio, s.AttackMs, s.ReleaseMs,
		s.MakeupGainDB, s.OutputCeilingDB)
}

// engineParams maps the settings onto the engine parameter set for a given
// sample rate.
func (s Settings) engineParams(sampleRate float64) engine.Params {
	return engine.Params{
		InputGainDB:     s.InputGainDB,
		ThresholdDB:     s.ThresholdDB,
		Ratio:           s.Ratio,
		AttackMs:        s.AttackMs,
		ReleaseMs:       s.ReleaseMs,
		MakeupGainDB:    s.MakeupGainDB,
		OutputCeilingDB: s.OutputCeilingDB,
		SampleRate:      sampleRate,
	}
}

// numOr returns v as a float64 when it is a numeric value, otherwise
// fallback. Strings and other types are not coerced, matching the settings
// file contract.
func numOr(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return fallback
	}
}
