package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
)

func decodeAction(t *testing.T, src string) *keymap.Action {
	t.Helper()
	var a actionYAML
	assert.NoError(t, yaml.Unmarshal([]byte(src), &a))
	action, err := a.Resolve()
	assert.NoError(t, err)
	return action
}

func TestActionYAML_BareScalarIsKeyAction(t *testing.T) {
	action := decodeAction(t, `KC_ESC`)
	assert.Equal(t, keymap.ActionKey, action.Kind)
	assert.Equal(t, keycode.KC_ESC, action.Key)
}

func TestActionYAML_TransparentScalar(t *testing.T) {
	action := decodeAction(t, `transparent`)
	assert.True(t, action.IsTransparent())
}

func TestActionYAML_MTMapping(t *testing.T) {
	action := decodeAction(t, "type: mt\ntap: KC_A\nhold: KC_LCTL\n")
	assert.Equal(t, keymap.ActionMT, action.Kind)
	assert.Equal(t, keycode.KC_A, action.Tap.Key)
	assert.Equal(t, keycode.KC_LCTL, action.Hold.Key)
}

func TestActionYAML_HRShorthandIsMTAction(t *testing.T) {
	action := decodeAction(t, "type: hr\nkey: KC_A\nmodifier: KC_LGUI\n")
	assert.Equal(t, keymap.ActionMT, action.Kind)
	assert.Equal(t, keycode.KC_A, action.Tap.Key)
	assert.Equal(t, keycode.KC_LGUI, action.Hold.Key)
}

func TestActionYAML_SOCDMapping(t *testing.T) {
	action := decodeAction(t, "type: socd\nself: KC_W\nopposing: [KC_S]\n")
	assert.Equal(t, keymap.ActionSOCD, action.Kind)
	assert.Equal(t, keycode.KC_W, action.Self.Key)
	assert.Len(t, action.Opposing, 1)
	assert.Equal(t, keycode.KC_S, action.Opposing[0].Key)
}

func TestActionYAML_UnknownKeycodeErrors(t *testing.T) {
	var a actionYAML
	assert.NoError(t, yaml.Unmarshal([]byte(`KC_NOT_REAL`), &a))
	_, err := a.Resolve()
	assert.Error(t, err)
}

func TestActionYAML_UnknownTypeErrors(t *testing.T) {
	var a actionYAML
	assert.NoError(t, yaml.Unmarshal([]byte("type: bogus\n"), &a))
	_, err := a.Resolve()
	assert.Error(t, err)
}
