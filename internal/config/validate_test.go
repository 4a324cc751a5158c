package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	result, err := Validate(Default())
	assert.NoError(t, err)
	assert.True(t, result.OK())
}

func TestValidate_AsymmetricSOCDPairIsAnError(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_W:
    type: socd
    self: KC_W
    opposing: [KC_S]
`)
	result, err := Validate(cfg)
	assert.NoError(t, err)
	assert.False(t, result.OK())
	assert.NotEmpty(t, result.Errors)
}

func TestValidate_SymmetricSOCDPairIsValid(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_W:
    type: socd
    self: KC_W
    opposing: [KC_S]
  KC_S:
    type: socd
    self: KC_S
    opposing: [KC_W]
`)
	result, err := Validate(cfg)
	assert.NoError(t, err)
	assert.True(t, result.OK())
}

func TestValidate_TappingTermOutOfRangeIsAnError(t *testing.T) {
	cfg := loadConfig(t, `
tapping_term_ms: 5000
`)
	result, err := Validate(cfg)
	assert.NoError(t, err)
	assert.False(t, result.OK())
}

func TestValidate_UndefinedLayerReferenceIsAnError(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_CAPS:
    type: mo
    layer: nav
`)
	result, err := Validate(cfg)
	assert.NoError(t, err)
	assert.False(t, result.OK())
}

func TestValidate_DefinedLayerReferenceIsValid(t *testing.T) {
	cfg := loadConfig(t, `
remaps:
  KC_CAPS:
    type: mo
    layer: nav
layers:
  nav:
    remaps: {}
`)
	result, err := Validate(cfg)
	assert.NoError(t, err)
	assert.True(t, result.OK())
}
