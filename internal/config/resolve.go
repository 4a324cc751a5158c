package config

import (
	"fmt"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
)

// Resolved is the immutable runtime snapshot derived from a Config
// (spec §3 "Config (immutable snapshot)"). It is created once by the
// loader and handed to workers read-only; a reload produces a new
// Resolved rather than mutating one in place (spec §4.10 "stop all
// workers ... resync", never in-place reconfiguration).
type Resolved struct {
	BaseRemaps       map[keycode.Keycode]*keymap.Action
	Layers           map[keymap.Layer]*keymap.LayerConfig
	GameModeRemaps   map[keycode.Keycode]*keymap.Action
	SocdEnabled      bool
	Mt               keymap.MtConfig
	Dt               keymap.DtConfig
	Osm              keymap.OsmConfig
	EnabledKeyboards map[string]bool
	HotConfigReload  bool
	Overrides        map[string]*Resolved
	WindowPredicate  WindowPredicate
}

// allSocdActions walks every remap set (base, every layer, game mode)
// collecting SOCD(self, opposing) actions for the processor's group
// builder.
func allSocdActions(r *Resolved) []*keymap.Action {
	var out []*keymap.Action
	collect := func(m map[keycode.Keycode]*keymap.Action) {
		for _, a := range m {
			if a != nil && a.Kind == keymap.ActionSOCD {
				out = append(out, a)
			}
		}
	}
	collect(r.BaseRemaps)
	for _, l := range r.Layers {
		collect(l.Remaps)
	}
	collect(r.GameModeRemaps)
	return out
}

// NewProcessor builds a ready keymap.Processor from this snapshot,
// honoring any keyboardID-specific override first.
func (r *Resolved) NewProcessor(keyboardID string) *keymap.Processor {
	snap := r
	if ov, ok := r.Overrides[keyboardID]; ok {
		snap = ov
	}

	layerCfgs := make(map[keymap.Layer]*keymap.LayerConfig, len(snap.Layers))
	for name, l := range snap.Layers {
		layerCfgs[name] = l
	}

	stack := keymap.NewLayerStack(snap.BaseRemaps, layerCfgs, snap.GameModeRemaps)
	return keymap.NewProcessor(stack, snap.Mt, snap.Dt, snap.Osm, allSocdActions(snap))
}

// Resolve converts the decoded on-disk Config into a Resolved runtime
// snapshot, resolving every remap map's string keycode keys and
// tagged-union action nodes.
func Resolve(cfg *Config) (*Resolved, error) {
	base, err := resolveRemaps(cfg.Remaps)
	if err != nil {
		return nil, fmt.Errorf("config.Resolve: remaps: %w", err)
	}

	layers := make(map[keymap.Layer]*keymap.LayerConfig, len(cfg.Layers))
	for name, lc := range cfg.Layers {
		remaps, err := resolveRemaps(lc.Remaps)
		if err != nil {
			return nil, fmt.Errorf("config.Resolve: layer %q: %w", name, err)
		}
		layers[keymap.Layer(name)] = &keymap.LayerConfig{Remaps: remaps}
	}

	gameMode, err := resolveRemaps(cfg.GameMode.Remaps)
	if err != nil {
		return nil, fmt.Errorf("config.Resolve: game_mode: %w", err)
	}

	enabled := make(map[string]bool, len(cfg.EnabledKeyboards))
	for _, id := range cfg.EnabledKeyboards {
		enabled[id] = true
	}

	mtCfg := cfg.Mt.Resolve()
	if cfg.TappingTermMS != 0 {
		mtCfg.TappingTermMS = cfg.TappingTermMS
	}

	r := &Resolved{
		BaseRemaps:       base,
		Layers:           layers,
		GameModeRemaps:   gameMode,
		SocdEnabled:      cfg.GameMode.Socd.Enabled,
		Mt:               mtCfg,
		Dt:               cfg.Dt.Resolve(),
		Osm:              cfg.Osm.Resolve(),
		EnabledKeyboards: enabled,
		HotConfigReload:  cfg.HotConfigReload,
		Overrides:        map[string]*Resolved{},
		WindowPredicate:  cfg.GameMode.WindowPredicate,
	}

	for id, partial := range cfg.KeyboardOverrides {
		ov, err := resolveOverride(r, partial)
		if err != nil {
			return nil, fmt.Errorf("config.Resolve: keyboard_overrides[%q]: %w", id, err)
		}
		r.Overrides[id] = ov
	}

	return r, nil
}

// resolveOverride merges a PartialConfig onto base, per-keycode: a
// keycode named in the override replaces base's entry for it, unnamed
// keycodes fall through unchanged (spec §3 "opaque per-keyboard
// override map").
func resolveOverride(base *Resolved, partial PartialConfig) (*Resolved, error) {
	remaps, err := resolveRemaps(partial.Remaps)
	if err != nil {
		return nil, fmt.Errorf("remaps: %w", err)
	}
	merged := make(map[keycode.Keycode]*keymap.Action, len(base.BaseRemaps)+len(remaps))
	for k, v := range base.BaseRemaps {
		merged[k] = v
	}
	for k, v := range remaps {
		merged[k] = v
	}

	layers := make(map[keymap.Layer]*keymap.LayerConfig, len(base.Layers))
	for name, l := range base.Layers {
		layers[name] = l
	}
	for name, lc := range partial.Layers {
		lRemaps, err := resolveRemaps(lc.Remaps)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", name, err)
		}
		layer := keymap.Layer(name)
		merged2 := map[keycode.Keycode]*keymap.Action{}
		if existing, ok := layers[layer]; ok {
			for k, v := range existing.Remaps {
				merged2[k] = v
			}
		}
		for k, v := range lRemaps {
			merged2[k] = v
		}
		layers[layer] = &keymap.LayerConfig{Remaps: merged2}
	}

	out := *base
	out.BaseRemaps = merged
	out.Layers = layers
	out.Overrides = nil
	return &out, nil
}
