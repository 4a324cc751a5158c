package keymap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func TestRollingStats_UpdateTapClampsToInvariantRange(t *testing.T) {
	s := NewRollingStats(200)

	// A single very short tap shouldn't immediately crash the
	// threshold through the floor.
	s.UpdateTap(10, 30)
	assert.GreaterOrEqual(t, s.AdaptiveThreshold, float32(50))

	// Many long taps should pull the threshold up, but never past 500.
	for i := 0; i < 10000; i++ {
		s.UpdateTap(1000, 30)
	}
	assert.LessOrEqual(t, s.AdaptiveThreshold, float32(500))
	assert.Equal(t, uint32(10001), s.TapSampleCount)
}

func TestRollingStats_FirstSampleSeedsAverageDirectly(t *testing.T) {
	s := NewRollingStats(200)
	s.UpdateTap(120, 30)
	assert.Equal(t, float32(120), s.AvgTapDuration)
	assert.Equal(t, uint32(1), s.TapSampleCount)
}

func TestMtProcessor_QuickTapResolvesToTap(t *testing.T) {
	cfg := DefaultMtConfig()
	cfg.AdaptiveTiming = false
	p := NewMtProcessor(cfg)

	_, resolved := p.OnPress(keycode.KC_A, keycode.KC_A, keycode.KC_LCTL)
	assert.False(t, resolved, "a fresh MT press should stay undecided")

	res, ok := p.OnRelease(keycode.KC_A)
	assert.True(t, ok)
	assert.Equal(t, keycode.KC_A, res.key)
	assert.Equal(t, []Event{{keycode.KC_A, true}, {keycode.KC_A, false}}, res.Events())
}

func TestMtProcessor_LongHoldResolvesToHold(t *testing.T) {
	cfg := DefaultMtConfig()
	cfg.TappingTermMS = 1
	// HoldDoNothingEmitsTap only applies when a hold's intent score says
	// not to bother; disable it here to exercise the plain hold path.
	cfg.HoldDoNothingEmitsTap = false
	p := NewMtProcessor(cfg)

	p.OnPress(keycode.KC_A, keycode.KC_A, keycode.KC_LCTL)
	time.Sleep(5 * time.Millisecond)

	res, ok := p.OnRelease(keycode.KC_A)
	assert.True(t, ok)
	assert.Equal(t, keycode.KC_LCTL, res.key)
	assert.Equal(t, []Event{{keycode.KC_LCTL, true}, {keycode.KC_LCTL, false}}, res.Events())
}

func TestMtProcessor_PermissiveHoldResolvesOnOtherKeyPress(t *testing.T) {
	cfg := DefaultMtConfig()
	cfg.PermissiveHold = true
	cfg.SameHandRollDetection = false
	cfg.OppositeHandChordDetection = false
	cfg.MultiModDetection = false
	p := NewMtProcessor(cfg)

	p.OnPress(keycode.KC_A, keycode.KC_A, keycode.KC_LCTL)

	resolutions := p.OnOtherKeyPress(keycode.KC_ENT)
	assert.Len(t, resolutions, 1)
	assert.Equal(t, keycode.KC_LCTL, resolutions[0].key)

	// Once resolved to held, release emits the hold key's release.
	res, ok := p.OnRelease(keycode.KC_A)
	assert.True(t, ok)
	assert.Equal(t, keycode.KC_LCTL, res.key)
	assert.Equal(t, []Event{{keycode.KC_LCTL, false}}, res.Events())
}

func TestMtProcessor_UnknownKeyReleaseIsNoop(t *testing.T) {
	p := NewMtProcessor(DefaultMtConfig())
	_, ok := p.OnRelease(keycode.KC_Z)
	assert.False(t, ok)
}
