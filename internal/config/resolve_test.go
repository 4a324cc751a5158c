package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
)

func loadConfig(t *testing.T, src string) *Config {
	t.Helper()
	cfg := Default()
	assert.NoError(t, yaml.Unmarshal([]byte(src), cfg))
	return cfg
}

func TestResolve_BaseRemapsConvertToActions(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_CAPS: KC_ESC
`)
	r, err := Resolve(cfg)
	assert.NoError(t, err)
	assert.Equal(t, keycode.KC_ESC, r.BaseRemaps[keycode.KC_CAPS].Key)
}

func TestResolve_TopLevelTappingTermOverridesMtDefault(t *testing.T) {
	cfg := loadConfig(t, `
tapping_term_ms: 150
`)
	r, err := Resolve(cfg)
	assert.NoError(t, err)
	assert.Equal(t, uint32(150), r.Mt.TappingTermMS)
}

func TestResolve_KeyboardOverrideMergesOntoBase(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_CAPS: KC_ESC
keyboard_overrides:
  "046d:c52b:0111:0003":
    remaps:
      KC_CAPS: KC_LCTL
`)
	r, err := Resolve(cfg)
	assert.NoError(t, err)

	ov, ok := r.Overrides["046d:c52b:0111:0003"]
	assert.True(t, ok)
	assert.Equal(t, keycode.KC_LCTL, ov.BaseRemaps[keycode.KC_CAPS].Key)
	// Base config is untouched by the override.
	assert.Equal(t, keycode.KC_ESC, r.BaseRemaps[keycode.KC_CAPS].Key)
}

func TestResolve_UnknownKeycodeInRemapsErrors(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_NOT_REAL: KC_ESC
`)
	_, err := Resolve(cfg)
	assert.Error(t, err)
}

func TestNewProcessor_UsesKeyboardOverrideWhenPresent(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_CAPS: KC_ESC
keyboard_overrides:
  "dev-a":
    remaps:
      KC_CAPS: KC_LCTL
`)
	r, err := Resolve(cfg)
	assert.NoError(t, err)

	defaultProc := r.NewProcessor("unrelated-device")
	events := defaultProc.ProcessKey(keycode.KC_CAPS, true)
	assert.Equal(t, []keymap.Event{{keycode.KC_ESC, true}}, events)

	overrideProc := r.NewProcessor("dev-a")
	events = overrideProc.ProcessKey(keycode.KC_CAPS, true)
	assert.Equal(t, []keymap.Event{{keycode.KC_LCTL, true}}, events)
}
