package ipc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadRequest_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Type: ReqEnableKeyboard, HardwareID: "usb-0001", GameMode: true}

	assert.NoError(t, WriteRequest(&buf, req))

	got, err := ReadRequest(&buf)
	assert.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestWriteReadResponse_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := Response{
		Type: RespKeyboardList,
		Keyboards: []KeyboardInfo{
			{HardwareID: "usb-0001", Name: "Keyboard A", DevicePath: "/dev/input/event3", Enabled: true, Connected: true},
		},
	}

	assert.NoError(t, WriteResponse(&buf, resp))

	got, err := ReadResponse(&buf)
	assert.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestFraming_MultipleMessagesAreIndependentlyDelimited(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, WriteRequest(&buf, Request{Type: ReqPing}))
	assert.NoError(t, WriteRequest(&buf, Request{Type: ReqReload}))

	first, err := ReadRequest(&buf)
	assert.NoError(t, err)
	assert.Equal(t, ReqPing, first.Type)

	second, err := ReadRequest(&buf)
	assert.NoError(t, err)
	assert.Equal(t, ReqReload, second.Type)
}

func TestReadRequest_TruncatedLengthPrefixErrors(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 0x00})
	_, err := ReadRequest(buf)
	assert.Error(t, err)
}
