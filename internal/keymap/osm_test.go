package keymap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func TestOsmProcessor_QuickTapArmsOneShot(t *testing.T) {
	p := NewOsmProcessor(DefaultOsmConfig())

	p.OnPress(keycode.KC_CAPS, keycode.KC_LSFT)
	events := p.OnRelease(keycode.KC_CAPS)

	assert.Equal(t, []Event{{keycode.KC_LSFT, true}}, events)
	assert.Equal(t, 1, p.ActiveCount())
	assert.False(t, p.IsTracked(keycode.KC_CAPS))
}

func TestOsmProcessor_LongHoldActsAsPlainModifier(t *testing.T) {
	p := NewOsmProcessor(OsmConfig{OneshotTimeoutMS: 5000, TappingTermMS: 1})

	p.OnPress(keycode.KC_CAPS, keycode.KC_LSFT)
	time.Sleep(5 * time.Millisecond)
	events := p.OnRelease(keycode.KC_CAPS)

	assert.Equal(t, []Event{{keycode.KC_LSFT, false}}, events)
	assert.Equal(t, 0, p.ActiveCount())
}

func TestOsmProcessor_ConsumedByNextNonModifierKey(t *testing.T) {
	p := NewOsmProcessor(DefaultOsmConfig())

	p.OnPress(keycode.KC_CAPS, keycode.KC_LSFT)
	p.OnRelease(keycode.KC_CAPS)
	assert.Equal(t, 1, p.ActiveCount())

	// A modifier press must not consume the one-shot.
	p.OnOtherKeyPress(keycode.KC_LCTL)
	assert.Equal(t, 1, p.ActiveCount())

	p.OnOtherKeyPress(keycode.KC_A)
	events := p.OnOtherKeyRelease(keycode.KC_A)
	assert.Equal(t, []Event{{keycode.KC_LSFT, false}}, events)
	assert.Equal(t, 0, p.ActiveCount())
}

func TestOsmProcessor_CheckTimeoutsReleasesIdleOneShot(t *testing.T) {
	p := NewOsmProcessor(OsmConfig{OneshotTimeoutMS: 1, TappingTermMS: 200})

	p.OnPress(keycode.KC_CAPS, keycode.KC_LSFT)
	p.OnRelease(keycode.KC_CAPS)
	time.Sleep(5 * time.Millisecond)

	events := p.CheckTimeouts()
	assert.Equal(t, []Event{{keycode.KC_LSFT, false}}, events)
	assert.Equal(t, 0, p.ActiveCount())
}
