package keymap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func TestDtProcessor_SingleTapEmitsNothingUntilTimeout(t *testing.T) {
	p := NewDtProcessor(DtConfig{TappingTermMS: 5, DoubleTapWindowMS: 20})
	tap := KeyAction(keycode.KC_A)
	double := KeyAction(keycode.KC_ESC)

	assert.Nil(t, p.OnPress(keycode.KC_CAPS, tap, double))
	assert.Nil(t, p.OnRelease(keycode.KC_CAPS))
	assert.True(t, p.IsTracked(keycode.KC_CAPS), "tapped-once key stays tracked until the double-tap window elapses")

	time.Sleep(30 * time.Millisecond)
	events := p.CheckTimeouts()
	assert.Equal(t, []Event{{keycode.KC_A, true}, {keycode.KC_A, false}}, events)
	assert.False(t, p.IsTracked(keycode.KC_CAPS))
}

func TestDtProcessor_DoubleTapWithinWindowResolvesToDouble(t *testing.T) {
	p := NewDtProcessor(DefaultDtConfig())
	tap := KeyAction(keycode.KC_A)
	double := KeyAction(keycode.KC_ESC)

	assert.Nil(t, p.OnPress(keycode.KC_CAPS, tap, double))
	assert.Nil(t, p.OnRelease(keycode.KC_CAPS))

	// Spec §4.4: the double-tap action emits on the second *press*, not
	// deferred to release (scenario S5).
	press := p.OnPress(keycode.KC_CAPS, tap, double)
	assert.Equal(t, []Event{{keycode.KC_ESC, true}}, press)
	assert.True(t, p.IsTracked(keycode.KC_CAPS), "double action held until release")

	release := p.OnRelease(keycode.KC_CAPS)
	assert.Equal(t, []Event{{keycode.KC_ESC, false}}, release)
	assert.False(t, p.IsTracked(keycode.KC_CAPS))
}

func TestDtProcessor_HeldPastTappingTermEmitsTapInPlace(t *testing.T) {
	p := NewDtProcessor(DtConfig{TappingTermMS: 1, DoubleTapWindowMS: 250})
	tap := KeyAction(keycode.KC_A)
	double := KeyAction(keycode.KC_ESC)

	assert.Nil(t, p.OnPress(keycode.KC_CAPS, tap, double))
	time.Sleep(5 * time.Millisecond)

	events := p.CheckTimeouts()
	assert.Equal(t, []Event{{keycode.KC_A, true}}, events)

	release := p.OnRelease(keycode.KC_CAPS)
	assert.Equal(t, []Event{{keycode.KC_A, false}}, release)
	assert.False(t, p.IsTracked(keycode.KC_CAPS))
}

func TestDtProcessor_OtherKeyPressForcesUndecidedToResolve(t *testing.T) {
	p := NewDtProcessor(DefaultDtConfig())
	tap := KeyAction(keycode.KC_A)
	double := KeyAction(keycode.KC_ESC)

	assert.Nil(t, p.OnPress(keycode.KC_CAPS, tap, double))

	// A different key interrupting the still-Undecided DT key forces
	// it to resolve as a hold-in-place tap (permissive hold).
	events := p.OnOtherKeyPress(keycode.KC_B)
	assert.Equal(t, []Event{{keycode.KC_A, true}}, events)
	assert.True(t, p.IsTracked(keycode.KC_CAPS))

	release := p.OnRelease(keycode.KC_CAPS)
	assert.Equal(t, []Event{{keycode.KC_A, false}}, release)
}

func TestDtProcessor_SecondPressHeldPastTappingTermHoldsDoubleInPlace(t *testing.T) {
	p := NewDtProcessor(DtConfig{TappingTermMS: 1, DoubleTapWindowMS: 250})
	tap := KeyAction(keycode.KC_A)
	double := KeyAction(keycode.KC_ESC)

	assert.Nil(t, p.OnPress(keycode.KC_CAPS, tap, double))
	assert.Nil(t, p.OnRelease(keycode.KC_CAPS))

	press := p.OnPress(keycode.KC_CAPS, tap, double)
	assert.Equal(t, []Event{{keycode.KC_ESC, true}}, press)

	// The double action is already pressed; being held past the
	// tapping term just reclassifies the state so release still
	// reverses the same action, it does not re-emit a press.
	time.Sleep(5 * time.Millisecond)
	events := p.CheckTimeouts()
	assert.Empty(t, events)
	assert.True(t, p.IsTracked(keycode.KC_CAPS), "held second press stays tracked until release")

	release := p.OnRelease(keycode.KC_CAPS)
	assert.Equal(t, []Event{{keycode.KC_ESC, false}}, release)
	assert.False(t, p.IsTracked(keycode.KC_CAPS))
}

func TestDtProcessor_OtherKeyPressIgnoresItself(t *testing.T) {
	p := NewDtProcessor(DefaultDtConfig())
	tap := KeyAction(keycode.KC_A)
	double := KeyAction(keycode.KC_ESC)

	assert.Nil(t, p.OnPress(keycode.KC_CAPS, tap, double))

	// A DT key never resolves itself via OnOtherKeyPress; its own
	// second press/release is handled by OnPress/OnRelease.
	assert.Nil(t, p.OnOtherKeyPress(keycode.KC_CAPS))
}
