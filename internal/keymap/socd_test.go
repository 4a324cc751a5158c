package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func newWASDGroup() *SocdProcessor {
	return NewSocdProcessor([]*Action{
		SOCDAction(KeyAction(keycode.KC_W), KeyAction(keycode.KC_S)),
		SOCDAction(KeyAction(keycode.KC_A), KeyAction(keycode.KC_D)),
	})
}

func TestSocdProcessor_LastInputPriority(t *testing.T) {
	p := newWASDGroup()

	assert.Equal(t, []Event{{keycode.KC_W, true}}, p.HandlePress(keycode.KC_W))
	assert.Equal(t, []Event{{keycode.KC_W, false}, {keycode.KC_S, true}}, p.HandlePress(keycode.KC_S))

	// Releasing the now-inactive W produces no transition.
	assert.Nil(t, p.HandleRelease(keycode.KC_W))

	// Releasing the active S falls back to nothing held.
	assert.Equal(t, []Event{{keycode.KC_S, false}}, p.HandleRelease(keycode.KC_S))
}

func TestSocdProcessor_ReleaseFallsBackToEarlierHeldKey(t *testing.T) {
	p := newWASDGroup()

	p.HandlePress(keycode.KC_W)
	p.HandlePress(keycode.KC_S)

	// S is active; releasing it should fall back to W, which is still held.
	events := p.HandleRelease(keycode.KC_S)
	assert.Equal(t, []Event{{keycode.KC_S, false}, {keycode.KC_W, true}}, events)
}

func TestSocdProcessor_UnmanagedKeyIgnored(t *testing.T) {
	p := newWASDGroup()
	assert.False(t, p.IsManaged(keycode.KC_Q))
	assert.Nil(t, p.HandlePress(keycode.KC_Q))
	assert.Nil(t, p.HandleRelease(keycode.KC_Q))
}

func TestSocdProcessor_GroupsSharingAKeycodeMerge(t *testing.T) {
	p := NewSocdProcessor([]*Action{
		SOCDAction(KeyAction(keycode.KC_W), KeyAction(keycode.KC_S)),
		SOCDAction(KeyAction(keycode.KC_S), KeyAction(keycode.KC_X)),
	})

	assert.True(t, p.IsManaged(keycode.KC_W))
	assert.True(t, p.IsManaged(keycode.KC_X))
	assert.Equal(t, 1, len(p.groups))
}
