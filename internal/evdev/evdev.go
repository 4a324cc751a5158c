//go:build linux

// Package evdev layers keyboard-daemon domain behavior — grabbing,
// blocking event reads, autorepeat control, and symbolic keycode
// translation — on top of the low-level device wrapper in
// linux/input.
package evdev

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/linux/input"
	"github.com/fibsussy/keymux/linux/ioctl"
	"golang.org/x/sys/unix"
)

// Event is a single decoded kernel input event (spec §2 "input_event").
type Event struct {
	Time  time.Time
	Type  input.EventType
	Code  input.Code
	Value int32
}

// IsKeyEvent reports whether e is an EV_KEY event.
func (e Event) IsKeyEvent() bool {
	return e.Type == input.EV_KEY
}

// Pressed reports the press state of a key event (value 1 = press,
// 2 = autorepeat, 0 = release). Autorepeat is treated as still-held,
// never surfaced to the keymap layer as a distinct press.
func (e Event) Pressed() bool {
	return e.Value != 0
}

// IsAutorepeat reports whether e is a kernel-generated autorepeat,
// which the keymap layer ignores entirely (spec §4.9: autorepeat is
// suppressed, the virtual device owns repeat behavior instead).
func (e Event) IsAutorepeat() bool {
	return e.Type == input.EV_KEY && e.Value == 2
}

// Keyboard wraps an evdev Device opened specifically for keyboard
// middleware use: grabbed exclusively, autorepeat disabled so the
// kernel never emits value==2 events, nonblocking for the worker's
// poll loop.
type Keyboard struct {
	dev *input.Device
}

// Open opens the evdev node at path for exclusive keyboard use.
func Open(path string) (*Keyboard, error) {
	dev, err := input.NewDevice(path)
	if err != nil {
		return nil, fmt.Errorf("evdev.Open: %w", err)
	}
	return &Keyboard{dev: dev}, nil
}

// Name returns the device's advertised name.
func (k *Keyboard) Name() (string, error) {
	return k.dev.Name()
}

// HardwareID returns the bus/vendor/product/version identifier
// string (spec §4.1 "hardware id").
func (k *Keyboard) HardwareID() (string, error) {
	return k.dev.ID()
}

// RawID returns the raw EVIOCGID fields from which a keyboardid.ID
// can be built (spec §3 "KeyboardId"). The orchestrator's discovery
// reads the same ioctl through its own rawDeviceID helper instead.
func (k *Keyboard) RawID() (input.ID, error) {
	var id input.ID
	if err := ioctl.Any(k.dev.Fd(), input.EVIOCGID, &id); err != nil {
		return input.ID{}, fmt.Errorf("evdev.RawID: %w", err)
	}
	return id, nil
}

// SupportedKeys returns every keycode this device reports support
// for, translated to the engine's symbolic Keycode where known.
func (k *Keyboard) SupportedKeys() ([]keycode.Keycode, error) {
	codes, err := k.dev.Codes(input.EV_KEY)
	if err != nil {
		return nil, fmt.Errorf("evdev.SupportedKeys: %w", err)
	}

	keys := make([]keycode.Keycode, 0, len(codes))
	for _, c := range codes {
		if kc, ok := keycode.FromInputCode(uint16(c)); ok {
			keys = append(keys, kc)
		}
	}
	return keys, nil
}

// Grab locks event delivery to this process exclusively (EVIOCGRAB),
// so the physical keyboard stops reaching every other consumer —
// required before a synthetic device can replace its output (spec
// §4.9 "exclusive grab").
func (k *Keyboard) Grab() error {
	arg := 1
	if err := ioctl.Any(k.dev.Fd(), input.EVIOCGRAB(), &arg); err != nil {
		return fmt.Errorf("evdev.Grab: %w", err)
	}
	return nil
}

// Ungrab releases a prior exclusive grab.
func (k *Keyboard) Ungrab() error {
	arg := 0
	if err := ioctl.Any(k.dev.Fd(), input.EVIOCGRAB(), &arg); err != nil {
		return fmt.Errorf("evdev.Ungrab: %w", err)
	}
	return nil
}

// DisableAutorepeat zeroes the kernel's delay/period so the physical
// device never emits value==2 repeat events; the virtual device is
// solely responsible for any repeat behavior downstream.
func (k *Keyboard) DisableAutorepeat() error {
	rep := [2]uint{0, 0}
	if err := ioctl.Any(k.dev.Fd(), input.EVIOCSREP, &rep); err != nil {
		return fmt.Errorf("evdev.DisableAutorepeat: %w", err)
	}
	return nil
}

// SetNonblocking switches the underlying fd's blocking mode, used by
// the worker loop to poll without stalling on an idle keyboard.
func (k *Keyboard) SetNonblocking(nonblocking bool) error {
	if err := unix.SetNonblock(int(k.dev.Fd()), nonblocking); err != nil {
		return fmt.Errorf("evdev.SetNonblocking: %w", err)
	}
	return nil
}

// rawEvent mirrors the kernel's struct input_event layout on 64-bit
// Linux: two 8-byte timeval fields followed by type/code/value.
type rawEvent struct {
	Sec, Usec  int64
	Type, Code uint16
	Value      int32
}

// rawEventSize is sizeof(struct input_event) on 64-bit Linux: two
// 8-byte timeval fields, two uint16s, one int32.
const rawEventSize = 8 + 8 + 2 + 2 + 4

// ReadEvent reads and decodes the next raw event. It calls unix.Read
// directly on the device fd rather than going through an *os.File:
// wrapping a pollable character device in os.File registers it with
// the Go runtime netpoller, which parks the calling goroutine on an
// empty read instead of returning EAGAIN, defeating the worker's
// nonblocking poll loop (spec §4.9, §5 "Worker: never blocks on user
// channels"). When the device is nonblocking and nothing is pending,
// the returned error wraps unix.EAGAIN and can be matched with
// errors.Is.
func (k *Keyboard) ReadEvent() (Event, error) {
	var buf [rawEventSize]byte

	n, err := unix.Read(int(k.dev.Fd()), buf[:])
	if err != nil {
		return Event{}, err
	}
	if n == 0 {
		return Event{}, io.EOF
	}
	if n != rawEventSize {
		return Event{}, fmt.Errorf("evdev.ReadEvent: short read: %d bytes", n)
	}

	var raw rawEvent
	if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, &raw); err != nil {
		return Event{}, fmt.Errorf("evdev.ReadEvent: decode: %w", err)
	}

	return Event{
		Time:  time.Unix(raw.Sec, raw.Usec*1000),
		Type:  input.EventType(raw.Type),
		Code:  input.Code(raw.Code),
		Value: raw.Value,
	}, nil
}

// Close releases the device, restoring autorepeat is intentionally
// left to the caller (Close does not attempt to restore prior
// settings it never recorded).
func (k *Keyboard) Close() error {
	return k.dev.Close()
}
