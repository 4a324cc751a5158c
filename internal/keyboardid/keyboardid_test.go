package keyboardid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatsAsFourHexFields(t *testing.T) {
	id := New(0x3, 0x046d, 0xc52b, 0x0111)
	assert.Equal(t, ID("046d:c52b:0111:0003"), id)
}

func TestNew_SameInputsProduceIdenticalIDs(t *testing.T) {
	a := New(0x3, 0x1234, 0x5678, 0x0001)
	b := New(0x3, 0x1234, 0x5678, 0x0001)
	assert.Equal(t, a, b)
}

func TestNew_DifferentVendorProducesDifferentID(t *testing.T) {
	a := New(0x3, 0x1234, 0x5678, 0x0001)
	b := New(0x3, 0x4321, 0x5678, 0x0001)
	assert.NotEqual(t, a, b)
}
