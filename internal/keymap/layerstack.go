package keymap

import "github.com/fibsussy/keymux/internal/keycode"

// LayerConfig is one named layer's remap table (spec §3).
type LayerConfig struct {
	Remaps map[keycode.Keycode]*Action
}

// LayerStack tracks the ordered set of currently-active layers on top
// of the always-present base layer, plus the game-mode overlay (spec
// §4.6). Lookups walk from the topmost active layer down, falling
// through Transparent entries, finally falling back to the base
// remaps.
type LayerStack struct {
	active       []Layer
	layerConfigs map[Layer]*LayerConfig
	baseRemaps   map[keycode.Keycode]*Action

	gameModeActive bool
	gameModeRemaps map[keycode.Keycode]*Action
}

// NewLayerStack builds a stack starting on the base layer only.
func NewLayerStack(baseRemaps map[keycode.Keycode]*Action, layerConfigs map[Layer]*LayerConfig, gameModeRemaps map[keycode.Keycode]*Action) *LayerStack {
	if baseRemaps == nil {
		baseRemaps = map[keycode.Keycode]*Action{}
	}
	if layerConfigs == nil {
		layerConfigs = map[Layer]*LayerConfig{}
	}
	if gameModeRemaps == nil {
		gameModeRemaps = map[keycode.Keycode]*Action{}
	}
	return &LayerStack{
		active:         []Layer{BaseLayer},
		layerConfigs:   layerConfigs,
		baseRemaps:     baseRemaps,
		gameModeRemaps: gameModeRemaps,
	}
}

// CurrentLayer returns the topmost active layer, or BaseLayer if the
// stack is (impossibly) empty.
func (s *LayerStack) CurrentLayer() Layer {
	if len(s.active) == 0 {
		return BaseLayer
	}
	return s.active[len(s.active)-1]
}

// Layers returns the active layer stack, base first.
func (s *LayerStack) Layers() []Layer {
	return s.active
}

// ActivateLayer pushes l onto the stack if not already present.
func (s *LayerStack) ActivateLayer(l Layer) {
	for _, existing := range s.active {
		if existing == l {
			return
		}
	}
	s.active = append(s.active, l)
}

// DeactivateLayer removes l from the stack. The base layer can never
// be removed.
func (s *LayerStack) DeactivateLayer(l Layer) {
	if l == BaseLayer {
		return
	}
	out := s.active[:0]
	for _, existing := range s.active {
		if existing != l {
			out = append(out, existing)
		}
	}
	s.active = out
}

// ToggleLayer activates l if inactive, deactivates it otherwise.
func (s *LayerStack) ToggleLayer(l Layer) {
	for _, existing := range s.active {
		if existing == l {
			s.DeactivateLayer(l)
			return
		}
	}
	s.ActivateLayer(l)
}

// SetGameMode switches the game-mode overlay on or off.
func (s *LayerStack) SetGameMode(active bool) {
	s.gameModeActive = active
}

// IsGameModeActive reports whether the overlay is in effect.
func (s *LayerStack) IsGameModeActive() bool {
	return s.gameModeActive
}

// LookupAction resolves the effective action for a physical keycode
// (spec §4.6): game mode wins outright when active, then each active
// layer is checked top-down skipping Transparent entries, finally
// falling back to the base layer (returning nil if unmapped there
// too, meaning "emit the physical keycode unchanged").
func (s *LayerStack) LookupAction(k keycode.Keycode) *Action {
	if s.gameModeActive {
		if a, ok := s.gameModeRemaps[k]; ok {
			return a
		}
	}

	for i := len(s.active) - 1; i >= 0; i-- {
		cfg, ok := s.layerConfigs[s.active[i]]
		if !ok {
			continue
		}
		a, ok := cfg.Remaps[k]
		if !ok {
			continue
		}
		if a.IsTransparent() {
			continue
		}
		return a
	}

	return s.baseRemaps[k]
}
