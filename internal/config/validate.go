package config

import (
	"fmt"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
)

// ValidationResult carries the validator's findings (spec
// supplemented feature, grounded on original_source's
// src/config/validator.rs: SOCD pair symmetry, layer-reference, and
// timing-range checks). The `validate` CLI subcommand renders this;
// the checks themselves stay presentation-free so the orchestrator's
// reload can also run them and abort the whole reload when any loaded
// user's config fails.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (v ValidationResult) OK() bool { return len(v.Errors) == 0 }

// Validate runs every check against the decoded config.
func Validate(cfg *Config) (ValidationResult, error) {
	var res ValidationResult

	resolved, err := Resolve(cfg)
	if err != nil {
		return res, fmt.Errorf("config.Validate: %w", err)
	}

	validateSocdSymmetry(resolved, &res)
	validateTiming(cfg, &res)
	validateLayerRefs(cfg, resolved, &res)

	return res, nil
}

// validateSocdSymmetry checks that every SOCD(self, opposing) pair
// has a matching reverse pair, mirroring validator.rs's socd_map
// reverse-lookup.
func validateSocdSymmetry(r *Resolved, res *ValidationResult) {
	pairs := map[string]string{}
	addFrom := func(actions []*keymap.Action) {
		for _, a := range actions {
			if a == nil || a.Kind != keymap.ActionSOCD || a.Self == nil || a.Self.Kind != keymap.ActionKey {
				continue
			}
			for _, opp := range a.Opposing {
				if opp != nil && opp.Kind == keymap.ActionKey {
					pairs[a.Self.Key.Name()] = opp.Key.Name()
				}
			}
		}
	}
	addFrom(allSocdActions(r))

	checked := map[string]bool{}
	for k1, k2 := range pairs {
		if checked[k1] {
			continue
		}
		reverse, ok := pairs[k2]
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("SOCD missing reverse pair: %s -> %s, but %s not defined", k1, k2, k2))
			continue
		}
		if reverse != k1 {
			res.Errors = append(res.Errors, fmt.Sprintf("SOCD pair asymmetric: %s -> %s, but %s -> %s", k1, k2, k2, reverse))
		}
		checked[k1] = true
		checked[k2] = true
	}
}

// validateTiming checks the same sanity ranges as validator.rs:
// tapping_term_ms and mt.double_tap_window_ms must be in (0, 1000].
func validateTiming(cfg *Config, res *ValidationResult) {
	if cfg.TappingTermMS == 0 || cfg.TappingTermMS > 1000 {
		res.Errors = append(res.Errors, fmt.Sprintf("tapping_term_ms out of reasonable range (0-1000): %d", cfg.TappingTermMS))
	}
	window := cfg.Mt.DoubleTapWindowMS
	if window == 0 || window > 1000 {
		res.Errors = append(res.Errors, fmt.Sprintf("mt.double_tap_window_ms out of reasonable range (0-1000): %d", window))
	}
}

// validateLayerRefs checks every TO(layer)/TG(layer)/MO(layer) action
// names a layer that is either "base" or defined in cfg.Layers.
func validateLayerRefs(cfg *Config, r *Resolved, res *ValidationResult) {
	referenced := map[keymap.Layer]bool{}
	collect := func(m map[keycode.Keycode]*keymap.Action) {
		for _, a := range m {
			if a == nil {
				continue
			}
			switch a.Kind {
			case keymap.ActionTO, keymap.ActionTG, keymap.ActionMO:
				referenced[a.Layer] = true
			}
		}
	}
	collect(r.BaseRemaps)
	for _, l := range r.Layers {
		collect(l.Remaps)
	}
	collect(r.GameModeRemaps)

	for layer := range referenced {
		if layer == keymap.BaseLayer {
			continue
		}
		if _, ok := cfg.Layers[string(layer)]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("referenced layer not defined: %q", layer))
		}
	}
}
