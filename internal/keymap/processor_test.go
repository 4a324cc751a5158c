package keymap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func TestProcessor_UnmappedKeyEmitsItself(t *testing.T) {
	layers := NewLayerStack(nil, nil, nil)
	p := NewProcessor(layers, DefaultMtConfig(), DefaultDtConfig(), DefaultOsmConfig(), nil)

	press := p.ProcessKey(keycode.KC_J, true)
	assert.Equal(t, []Event{{keycode.KC_J, true}}, press)

	release := p.ProcessKey(keycode.KC_J, false)
	assert.Equal(t, []Event{{keycode.KC_J, false}}, release)
}

func TestProcessor_MomentaryLayerActivatesWhileHeld(t *testing.T) {
	nav := Layer("nav")
	base := map[keycode.Keycode]*Action{
		keycode.KC_SPC: MoAction(nav),
	}
	layerConfigs := map[Layer]*LayerConfig{
		nav: {Remaps: map[keycode.Keycode]*Action{
			keycode.KC_H: KeyAction(keycode.KC_LEFT),
		}},
	}
	layers := NewLayerStack(base, layerConfigs, nil)
	p := NewProcessor(layers, DefaultMtConfig(), DefaultDtConfig(), DefaultOsmConfig(), nil)

	p.ProcessKey(keycode.KC_SPC, true)
	assert.Equal(t, nav, layers.CurrentLayer())

	events := p.ProcessKey(keycode.KC_H, true)
	assert.Equal(t, []Event{{keycode.KC_LEFT, true}}, events)

	p.ProcessKey(keycode.KC_SPC, false)
	assert.Equal(t, BaseLayer, layers.CurrentLayer())
}

func TestProcessor_MTKeyQuickTapEmitsTapKey(t *testing.T) {
	base := map[keycode.Keycode]*Action{
		keycode.KC_A: MTAction(KeyAction(keycode.KC_A), KeyAction(keycode.KC_LCTL)),
	}
	layers := NewLayerStack(base, nil, nil)
	p := NewProcessor(layers, DefaultMtConfig(), DefaultDtConfig(), DefaultOsmConfig(), nil)

	p.ProcessKey(keycode.KC_A, true)
	events := p.ProcessKey(keycode.KC_A, false)
	assert.Equal(t, []Event{{keycode.KC_A, true}, {keycode.KC_A, false}}, events)
}

func TestProcessor_MTKeyHeldPastTermEmitsHoldKey(t *testing.T) {
	cfg := DefaultMtConfig()
	cfg.TappingTermMS = 1
	cfg.HoldDoNothingEmitsTap = false
	base := map[keycode.Keycode]*Action{
		keycode.KC_A: MTAction(KeyAction(keycode.KC_A), KeyAction(keycode.KC_LCTL)),
	}
	layers := NewLayerStack(base, nil, nil)
	p := NewProcessor(layers, cfg, DefaultDtConfig(), DefaultOsmConfig(), nil)

	p.ProcessKey(keycode.KC_A, true)
	time.Sleep(5 * time.Millisecond)
	events := p.ProcessKey(keycode.KC_A, false)
	assert.Equal(t, []Event{{keycode.KC_LCTL, true}, {keycode.KC_LCTL, false}}, events)
}

func TestProcessor_OSMReleasesOnNextKeyRelease(t *testing.T) {
	base := map[keycode.Keycode]*Action{
		keycode.KC_X: OSMAction(KeyAction(keycode.KC_LSFT)),
		keycode.KC_A: KeyAction(keycode.KC_A),
	}
	layers := NewLayerStack(base, nil, nil)
	p := NewProcessor(layers, DefaultMtConfig(), DefaultDtConfig(), DefaultOsmConfig(), nil)

	// Tap X: arms the one-shot, nothing emitted yet on press.
	assert.Empty(t, p.ProcessKey(keycode.KC_X, true))
	tapRelease := p.ProcessKey(keycode.KC_X, false)
	assert.Equal(t, []Event{{keycode.KC_LSFT, true}}, tapRelease)

	// Pressing a non-modifier key arms the one-shot for release; it
	// must actually release when that key releases, not 5s later.
	press := p.ProcessKey(keycode.KC_A, true)
	assert.Equal(t, []Event{{keycode.KC_A, true}}, press)

	release := p.ProcessKey(keycode.KC_A, false)
	assert.Equal(t, []Event{{keycode.KC_A, false}, {keycode.KC_LSFT, false}}, release)
}

func TestProcessor_DTWithNestedMTReDispatchesRecursively(t *testing.T) {
	mt := MTAction(KeyAction(keycode.KC_A), KeyAction(keycode.KC_LCTL))
	base := map[keycode.Keycode]*Action{
		keycode.KC_CAPS: DTAction(KeyAction(keycode.KC_ESC), mt),
	}
	layers := NewLayerStack(base, nil, nil)
	p := NewProcessor(layers, DefaultMtConfig(), DefaultDtConfig(), DefaultOsmConfig(), nil)

	// First tap: single press+release within the window, tracked as a
	// bare tap (no output yet).
	assert.Empty(t, p.ProcessKey(keycode.KC_CAPS, true))
	assert.Empty(t, p.ProcessKey(keycode.KC_CAPS, false))

	// Second press lands inside double_tap_window_ms: the double
	// action (a nested MT) is handed to the processor's own MT
	// resolver rather than DT's plain-Key-only leaf helper, so it
	// starts out Undecided (no output yet) exactly like a top-level
	// MT remap would.
	press := p.ProcessKey(keycode.KC_CAPS, true)
	assert.Empty(t, press)

	// A quick release resolves the nested MT to its tap output,
	// proving DT's resolved inner action really re-entered the
	// processor's recursive dispatch instead of being dropped.
	release := p.ProcessKey(keycode.KC_CAPS, false)
	assert.Equal(t, []Event{{keycode.KC_A, true}, {keycode.KC_A, false}}, release)
}

func TestProcessor_SOCDGroupLastInputPriority(t *testing.T) {
	socdActions := []*Action{SOCDAction(KeyAction(keycode.KC_W), KeyAction(keycode.KC_S))}
	base := map[keycode.Keycode]*Action{
		keycode.KC_W: SOCDAction(KeyAction(keycode.KC_W), KeyAction(keycode.KC_S)),
		keycode.KC_S: SOCDAction(KeyAction(keycode.KC_S), KeyAction(keycode.KC_W)),
	}
	layers := NewLayerStack(base, nil, nil)
	p := NewProcessor(layers, DefaultMtConfig(), DefaultDtConfig(), DefaultOsmConfig(), socdActions)

	events := p.ProcessKey(keycode.KC_W, true)
	assert.Equal(t, []Event{{keycode.KC_W, true}}, events)

	events = p.ProcessKey(keycode.KC_S, true)
	assert.Equal(t, []Event{{keycode.KC_W, false}, {keycode.KC_S, true}}, events)
}
