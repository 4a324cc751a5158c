//go:build linux

// Package uinput creates and drives the synthetic keyboard that
// replaces a grabbed physical device's output stream (spec §4.9
// "virtual device"). It is grounded on the same ioctl-packing style
// as linux/input/uapi.go, applied to /dev/uinput's UI_* request
// family, and on the original daemon's uinput.rs for device-creation
// semantics.
package uinput

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/linux/ioctl"
)

const (
	uinputMaxNameSize = 80

	evSyn = 0x00
	evKey = 0x01

	synReport = 0

	busUSB = 0x03
)

var (
	uiSetEvBit   = ioctl.IOW('U', 100, int(0))
	uiSetKeyBit  = ioctl.IOW('U', 101, int(0))
	uiDevSetup   = ioctl.IOW('U', 3, uinputSetup{})
	uiDevCreate  = ioctl.IO('U', 1)
	uiDevDestroy = ioctl.IO('U', 2)
)

type uinputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputSetup struct {
	ID        uinputID
	Name      [uinputMaxNameSize]byte
	FFEffects uint32
}

// rawEvent mirrors the kernel's struct input_event layout on 64-bit
// Linux, matching internal/evdev's rawEvent.
type rawEvent struct {
	Sec, Usec  int64
	Type, Code uint16
	Value      int32
}

// Keyboard is a synthetic /dev/uinput keyboard. Unlike the original's
// single global virtual device, one Keyboard is created per worker so
// each physical keyboard gets its own uniquely named synthetic
// replacement (spec §4.9 "one synthetic device per managed
// keyboard").
type Keyboard struct {
	file *os.File
}

// New opens /dev/uinput, registers the given set of keycodes (the
// physical device's own supported-key bitmap, per spec §4.9, so the
// synthetic device never advertises capabilities the hardware
// lacked), and creates the device under name.
func New(name string, supportedKeys []keycode.Keycode) (*Keyboard, error) {
	file, err := os.OpenFile("/dev/uinput", os.O_WRONLY|os.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("uinput.New: open /dev/uinput: %w (is the user in the 'input' group?)", err)
	}

	fd := file.Fd()

	if err := ioctl.Any(fd, uiSetEvBit, ptr(evKey)); err != nil {
		file.Close()
		return nil, fmt.Errorf("uinput.New: UI_SET_EVBIT: %w", err)
	}

	for _, kc := range supportedKeys {
		code := int(keycode.ToInputCode(kc))
		if err := ioctl.Any(fd, uiSetKeyBit, ptr(code)); err != nil {
			file.Close()
			return nil, fmt.Errorf("uinput.New: UI_SET_KEYBIT(%d): %w", code, err)
		}
	}

	var setup uinputSetup
	setup.ID = uinputID{Bustype: busUSB, Vendor: 0x4b4d, Product: 0x5558, Version: 1}
	copy(setup.Name[:], name)

	if err := ioctl.Any(fd, uiDevSetup, &setup); err != nil {
		file.Close()
		return nil, fmt.Errorf("uinput.New: UI_DEV_SETUP: %w", err)
	}

	if err := ioctl.Any(fd, uiDevCreate, ptr(0)); err != nil {
		file.Close()
		return nil, fmt.Errorf("uinput.New: UI_DEV_CREATE: %w", err)
	}

	// udev needs a moment to create the device node before the first
	// event is reliably delivered to listeners.
	time.Sleep(200 * time.Millisecond)

	return &Keyboard{file: file}, nil
}

func ptr(v int) *int {
	return &v
}

func (k *Keyboard) write(evType, code uint16, value int32) error {
	ev := rawEvent{Type: evType, Code: code, Value: value}
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ev.Sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ev.Usec))
	binary.LittleEndian.PutUint16(buf[16:18], ev.Type)
	binary.LittleEndian.PutUint16(buf[18:20], ev.Code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(ev.Value))
	_, err := k.file.Write(buf)
	return err
}

func (k *Keyboard) sync() error {
	return k.write(evSyn, synReport, 0)
}

// PressKey emits a key-down event followed by a sync.
func (k *Keyboard) PressKey(kc keycode.Keycode) error {
	if err := k.write(evKey, keycode.ToInputCode(kc), 1); err != nil {
		return fmt.Errorf("uinput.PressKey: %w", err)
	}
	return k.sync()
}

// ReleaseKey emits a key-up event followed by a sync.
func (k *Keyboard) ReleaseKey(kc keycode.Keycode) error {
	if err := k.write(evKey, keycode.ToInputCode(kc), 0); err != nil {
		return fmt.Errorf("uinput.ReleaseKey: %w", err)
	}
	return k.sync()
}

// TapKey presses then releases kc.
func (k *Keyboard) TapKey(kc keycode.Keycode) error {
	if err := k.PressKey(kc); err != nil {
		return err
	}
	return k.ReleaseKey(kc)
}

// ReleaseKeys emits a release for every keycode in keys followed by a
// single sync, ignoring codes the device never advertised as
// supported. Used for the startup/shutdown safety release (spec
// §4.9: "emit release for every modifier, every letter, and a set of
// common navigation keys ... followed by a SYN report") to repair
// stuck-key state left over from an ungraceful previous shutdown or
// hotplug replug, independent of whatever the worker's own held-key
// bookkeeping thinks is pressed.
func (k *Keyboard) ReleaseKeys(keys []keycode.Keycode) error {
	for _, kc := range keys {
		if err := k.write(evKey, keycode.ToInputCode(kc), 0); err != nil {
			return fmt.Errorf("uinput.ReleaseKeys: %w", err)
		}
	}
	return k.sync()
}

// Close destroys the synthetic device and closes the uinput handle.
func (k *Keyboard) Close() error {
	fd := k.file.Fd()
	_ = ioctl.Any(fd, uiDevDestroy, ptr(0))
	if err := k.file.Close(); err != nil {
		return fmt.Errorf("uinput.Close: %w", err)
	}
	return nil
}
