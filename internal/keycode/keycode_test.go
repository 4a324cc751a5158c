package keycode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromName_KnownKeycode(t *testing.T) {
	kc, ok := FromName("KC_A")
	assert.True(t, ok)
	assert.Equal(t, KC_A, kc)
}

func TestFromName_UnknownNameFails(t *testing.T) {
	_, ok := FromName("KC_DOES_NOT_EXIST")
	assert.False(t, ok)
}

func TestName_RoundTripsWithFromName(t *testing.T) {
	for _, kc := range []Keycode{KC_A, KC_LCTL, KC_ESC, KC_SPC} {
		name := kc.Name()
		got, ok := FromName(name)
		assert.True(t, ok, "Name() produced %q which FromName could not resolve", name)
		assert.Equal(t, kc, got)
	}
}

func TestFromInputCode_ZeroCostCast(t *testing.T) {
	kc, ok := FromInputCode(30) // KEY_A
	assert.True(t, ok)
	assert.Equal(t, KC_A, kc)
	assert.Equal(t, uint16(30), ToInputCode(kc))
}

func TestFromInputCode_UnknownCodeFails(t *testing.T) {
	_, ok := FromInputCode(0xffff)
	assert.False(t, ok)
}

func TestIsModifier(t *testing.T) {
	assert.True(t, KC_LCTL.IsModifier())
	assert.True(t, KC_RSFT.IsModifier())
	assert.False(t, KC_A.IsModifier())
}

func TestCategory_LettersAndModifiers(t *testing.T) {
	assert.Equal(t, CategoryLetter, KC_A.Category())
	assert.Equal(t, CategoryModifier, KC_LCTL.Category())
}

func TestName_UnknownCodeFallsBackToNumeric(t *testing.T) {
	unknown := Keycode(0xfff0)
	assert.Equal(t, CategoryGeneral, unknown.Category())
	assert.Contains(t, unknown.Name(), "0x")
}
