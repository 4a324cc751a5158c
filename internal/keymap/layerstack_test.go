package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func TestLayerStack_StartsOnBaseLayer(t *testing.T) {
	s := NewLayerStack(nil, nil, nil)
	assert.Equal(t, BaseLayer, s.CurrentLayer())
	assert.Equal(t, []Layer{BaseLayer}, s.Layers())
}

func TestLayerStack_ActivateAndDeactivate(t *testing.T) {
	s := NewLayerStack(nil, nil, nil)
	nav := Layer("nav")

	s.ActivateLayer(nav)
	assert.Equal(t, nav, s.CurrentLayer())

	// Activating an already-active layer is a no-op, not a duplicate push.
	s.ActivateLayer(nav)
	assert.Equal(t, []Layer{BaseLayer, nav}, s.Layers())

	s.DeactivateLayer(nav)
	assert.Equal(t, BaseLayer, s.CurrentLayer())
}

func TestLayerStack_BaseLayerCannotBeDeactivated(t *testing.T) {
	s := NewLayerStack(nil, nil, nil)
	s.DeactivateLayer(BaseLayer)
	assert.Equal(t, []Layer{BaseLayer}, s.Layers())
}

func TestLayerStack_ToggleLayer(t *testing.T) {
	s := NewLayerStack(nil, nil, nil)
	nav := Layer("nav")

	s.ToggleLayer(nav)
	assert.Equal(t, nav, s.CurrentLayer())
	s.ToggleLayer(nav)
	assert.Equal(t, BaseLayer, s.CurrentLayer())
}

func TestLayerStack_LookupFallsThroughTransparentToBase(t *testing.T) {
	base := map[keycode.Keycode]*Action{keycode.KC_A: KeyAction(keycode.KC_ESC)}
	nav := Layer("nav")
	layers := map[Layer]*LayerConfig{
		nav: {Remaps: map[keycode.Keycode]*Action{
			keycode.KC_A: TransparentAction(),
			keycode.KC_H: KeyAction(keycode.KC_LEFT),
		}},
	}
	s := NewLayerStack(base, layers, nil)
	s.ActivateLayer(nav)

	// KC_A is transparent on nav, so it falls through to base.
	assert.Equal(t, keycode.KC_ESC, s.LookupAction(keycode.KC_A).Key)
	// KC_H is mapped directly on nav.
	assert.Equal(t, keycode.KC_LEFT, s.LookupAction(keycode.KC_H).Key)
	// Unmapped anywhere returns nil (emit unchanged).
	assert.Nil(t, s.LookupAction(keycode.KC_Z))
}

func TestLayerStack_GameModeOverridesActiveLayers(t *testing.T) {
	base := map[keycode.Keycode]*Action{keycode.KC_A: KeyAction(keycode.KC_ESC)}
	gameMode := map[keycode.Keycode]*Action{keycode.KC_A: KeyAction(keycode.KC_TAB)}
	s := NewLayerStack(base, nil, gameMode)

	assert.Equal(t, keycode.KC_ESC, s.LookupAction(keycode.KC_A).Key)

	s.SetGameMode(true)
	assert.True(t, s.IsGameModeActive())
	assert.Equal(t, keycode.KC_TAB, s.LookupAction(keycode.KC_A).Key)
}
