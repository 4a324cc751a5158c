// Package config loads, validates, and persists the on-disk keymux
// configuration: the user's base remaps, named layers, game-mode
// overlay, MT/DT/OSM tuning, and per-keyboard overrides (spec §3
// "Config"). The on-disk format is config.yaml rather than the
// original daemon's config.ron — YAML has no mature pack analogue to
// RON, and gopkg.in/yaml.v3 is the library _examples/gazed-vu already
// reaches for to load its own settings.
package config

import (
	"fmt"
	"os"

	"github.com/fibsussy/keymux/internal/keymap"
	"github.com/fibsussy/keymux/xdg"
	"gopkg.in/yaml.v3"
)

// MtConfig mirrors keymap.MtConfig's tunables for on-disk
// representation; Resolve converts it into the runtime type.
type MtConfig struct {
	TappingTermMS               uint32  `yaml:"tapping_term_ms"`
	PermissiveHold               bool    `yaml:"permissive_hold"`
	SameHandRollDetection         bool    `yaml:"same_hand_roll_detection"`
	OppositeHandChordDetection    bool    `yaml:"opposite_hand_chord_detection"`
	MultiModDetection             bool    `yaml:"multi_mod_detection"`
	MultiModThreshold             int     `yaml:"multi_mod_threshold"`
	AdaptiveTiming                bool    `yaml:"adaptive_timing"`
	PredictiveScoring             bool    `yaml:"predictive_scoring"`
	RollDetectionWindowMS         uint32  `yaml:"roll_detection_window_ms"`
	ChordDetectionWindowMS        uint32  `yaml:"chord_detection_window_ms"`
	DoubleTapThenHold             bool    `yaml:"double_tap_then_hold"`
	DoubleTapWindowMS             uint32  `yaml:"double_tap_window_ms"`
	CrossHandUnwrap               bool    `yaml:"cross_hand_unwrap"`
	AdaptiveTargetMarginMS        float32 `yaml:"adaptive_target_margin_ms"`
	HoldDoNothingEmitsTap         bool    `yaml:"hold_do_nothing_emits_tap"`
}

// Resolve converts the on-disk MtConfig into the runtime keymap.MtConfig.
func (m MtConfig) Resolve() keymap.MtConfig {
	return keymap.MtConfig{
		TappingTermMS:            m.TappingTermMS,
		PermissiveHold:            m.PermissiveHold,
		SameHandRollDetection:     m.SameHandRollDetection,
		OppositeHandChordDetection: m.OppositeHandChordDetection,
		MultiModDetection:         m.MultiModDetection,
		MultiModThreshold:         m.MultiModThreshold,
		AdaptiveTiming:            m.AdaptiveTiming,
		PredictiveScoring:         m.PredictiveScoring,
		RollDetectionWindowMS:     m.RollDetectionWindowMS,
		ChordDetectionWindowMS:    m.ChordDetectionWindowMS,
		DoubleTapThenHold:         m.DoubleTapThenHold,
		DoubleTapWindowMS:         m.DoubleTapWindowMS,
		CrossHandUnwrap:           m.CrossHandUnwrap,
		AdaptiveTargetMarginMS:    uint32(m.AdaptiveTargetMarginMS),
		HoldDoNothingEmitsTap:     m.HoldDoNothingEmitsTap,
	}
}

// DefaultMtConfig returns the on-disk defaults, matching
// keymap.DefaultMtConfig()'s values field-for-field.
func DefaultMtConfig() MtConfig {
	d := keymap.DefaultMtConfig()
	return MtConfig{
		TappingTermMS:              d.TappingTermMS,
		PermissiveHold:             d.PermissiveHold,
		SameHandRollDetection:      d.SameHandRollDetection,
		OppositeHandChordDetection: d.OppositeHandChordDetection,
		MultiModDetection:          d.MultiModDetection,
		MultiModThreshold:          d.MultiModThreshold,
		AdaptiveTiming:             d.AdaptiveTiming,
		PredictiveScoring:          d.PredictiveScoring,
		RollDetectionWindowMS:      d.RollDetectionWindowMS,
		ChordDetectionWindowMS:     d.ChordDetectionWindowMS,
		DoubleTapThenHold:          d.DoubleTapThenHold,
		DoubleTapWindowMS:          d.DoubleTapWindowMS,
		CrossHandUnwrap:            d.CrossHandUnwrap,
		AdaptiveTargetMarginMS:     float32(d.AdaptiveTargetMarginMS),
		HoldDoNothingEmitsTap:      d.HoldDoNothingEmitsTap,
	}
}

// DtConfig mirrors keymap.DtConfig's two timing fields; Resolve keeps
// keymap.DefaultDtConfig()'s GracePeriodMS and PermissiveHold.
type DtConfig struct {
	TappingTermMS     uint32 `yaml:"tapping_term_ms"`
	DoubleTapWindowMS uint32 `yaml:"double_tap_window_ms"`
}

func (d DtConfig) Resolve() keymap.DtConfig {
	c := keymap.DefaultDtConfig()
	c.TappingTermMS = d.TappingTermMS
	c.DoubleTapWindowMS = d.DoubleTapWindowMS
	return c
}

func DefaultDtConfig() DtConfig {
	d := keymap.DefaultDtConfig()
	return DtConfig{TappingTermMS: d.TappingTermMS, DoubleTapWindowMS: d.DoubleTapWindowMS}
}

// OsmConfig mirrors keymap.OsmConfig.
type OsmConfig struct {
	OneshotTimeoutMS uint32 `yaml:"oneshot_timeout_ms"`
	TappingTermMS    uint32 `yaml:"tapping_term_ms"`
}

func (o OsmConfig) Resolve() keymap.OsmConfig {
	return keymap.OsmConfig{OneshotTimeoutMS: uint64(o.OneshotTimeoutMS), TappingTermMS: o.TappingTermMS}
}

func DefaultOsmConfig() OsmConfig {
	o := keymap.DefaultOsmConfig()
	return OsmConfig{OneshotTimeoutMS: uint32(o.OneshotTimeoutMS), TappingTermMS: o.TappingTermMS}
}

// SocdConfig toggles the SOCD cleaning subsystem, mirroring the
// original's game_mode.socd.enabled field (config/validator.rs).
type SocdConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LayerConfig holds one named layer's remaps (spec §3 "LayerConfig").
type LayerConfig struct {
	Remaps map[string]actionYAML `yaml:"remaps"`
}

// GameMode is the game-mode overlay: its own remap set plus the
// auto-detection tuning carried over from the original's GameMode
// struct (src/config/validator.rs references game_mode.remaps and
// game_mode.socd.enabled; auto-detection fields are supplemented from
// the broader original for completeness, not required by spec.md's
// Non-goals since focus detection itself stays external per spec §1).
type GameMode struct {
	Remaps           map[string]actionYAML `yaml:"remaps"`
	AutoDetect       bool                  `yaml:"auto_detect"`
	DetectionMethods []string              `yaml:"detection_methods"`
	ProcessTreeDepth int                   `yaml:"process_tree_depth"`
	Socd             SocdConfig            `yaml:"socd"`
	WindowPredicate  WindowPredicate       `yaml:"window_predicate"`
}

// WindowPredicate persists `keymux gamemode window ...`'s choice of
// focus predicate mode and app-id allowlist (src/niri.rs's predicate
// modes, supplemented as a CLI-configurable, persisted setting).
type WindowPredicate struct {
	Mode   string   `yaml:"mode"`
	AppIDs []string `yaml:"app_ids"`
}

// Config is the on-disk shape of the user's config.yaml. It converts
// to an immutable keymap.Config-shaped runtime snapshot via Resolve.
type Config struct {
	TappingTermMS     uint32                            `yaml:"tapping_term_ms"`
	Mt                MtConfig                          `yaml:"mt"`
	Dt                DtConfig                          `yaml:"dt"`
	Osm               OsmConfig                         `yaml:"osm"`
	Remaps            map[string]actionYAML             `yaml:"remaps"`
	Layers            map[string]LayerConfig            `yaml:"layers"`
	GameMode          GameMode                          `yaml:"game_mode"`
	EnabledKeyboards  []string                          `yaml:"enabled_keyboards"`
	HotConfigReload   bool                               `yaml:"hot_config_reload"`
	KeyboardOverrides map[string]PartialConfig          `yaml:"keyboard_overrides"`
}

// PartialConfig is a sparse override merged onto the base Config for
// one specific keyboard id, resolving spec §3's "opaque per-keyboard
// override map" (supplemented from the original's
// KeyRemapping/key_remapping parameter, src/keyboard_thread.rs).
// Only remaps and layer remaps may be overridden per keyboard; timing
// and game-mode stay global.
type PartialConfig struct {
	Remaps map[string]actionYAML  `yaml:"remaps"`
	Layers map[string]LayerConfig `yaml:"layers"`
}

// Default returns the built-in configuration: an empty remap set with
// every tuning subsystem at its documented default.
func Default() *Config {
	return &Config{
		TappingTermMS:    200,
		Mt:               DefaultMtConfig(),
		Dt:               DefaultDtConfig(),
		Osm:              DefaultOsmConfig(),
		Remaps:           map[string]actionYAML{},
		Layers:           map[string]LayerConfig{},
		HotConfigReload:  true,
		KeyboardOverrides: map[string]PartialConfig{},
	}
}

// DefaultPath returns ~/.config/keymux/config.yaml (or
// $XDG_CONFIG_HOME/keymux/config.yaml), grounded on the teacher's own
// xdg package.
func DefaultPath() (string, error) {
	f, err := xdg.ConfigFile("keymux/config.yaml")
	if err != nil {
		return "", fmt.Errorf("config.DefaultPath: %w", err)
	}
	path := f.Name()
	f.Close()
	return path, nil
}

// Load reads and parses path. A missing file is not an error: it
// returns Default(), mirroring the original's load_or_default
// fallback in src/config.rs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg back to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}
