// Package worker drives one physical keyboard end to end: grab the
// evdev device, mirror its capabilities onto a synthetic uinput
// replacement, run every event through the keymap processor, and
// persist adaptive stats on a timer. It is grounded on the original
// daemon's keyboard_thread.rs loop structure, translated from a raw
// OS thread + mpsc channels into a goroutine driven by a
// context.Context and Go channels (spec §4.9 "Device worker").
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"

	"github.com/fibsussy/keymux/internal/evdev"
	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
	"github.com/fibsussy/keymux/internal/stats"
	"github.com/fibsussy/keymux/internal/uinput"
)

// statsSaveInterval is how often a worker flushes its adaptive stats
// to disk in the background, independent of any explicit
// SaveAdaptiveStats IPC request.
const statsSaveInterval = 30 * time.Second

// safetyReleaseKeys is every modifier, every letter, and the common
// navigation keys released on worker startup and as a
// belt-and-braces measure on shutdown (spec §4.9 "Safety release"),
// repairing stuck-key state left by an ungraceful previous shutdown
// or hotplug replug.
var safetyReleaseKeys = func() []keycode.Keycode {
	var keys []keycode.Keycode
	keys = append(keys, keycode.AllWithCategory(keycode.CategoryModifier)...)
	keys = append(keys, keycode.AllWithCategory(keycode.CategoryLetter)...)
	keys = append(keys, keycode.AllWithCategory(keycode.CategoryNavigation)...)
	return keys
}()

// Worker owns one physical keyboard's full lifecycle: grabbed device,
// synthetic replacement, and its own keymap processor instance (spec
// invariant: "Device workers ... responsible for releasing every
// output they pressed before exit").
type Worker struct {
	Name       string
	DevicePath string

	kbd   *evdev.Keyboard
	vkbd  *uinput.Keyboard
	proc  *keymap.Processor
	stats *stats.Store

	statsPath      string
	safetyKeys     []keycode.Keycode
	log            *log.Logger
	pressedOutputs map[keycode.Keycode]bool
	debugSink      func(keyName string, pressed bool)

	setGameModeCh chan bool
	reloadCh      chan *keymap.Processor
}

// SetDebugSink registers fn to be called with every output keycode
// this worker emits (spec supplemented "debug" subcommand, src/debug.rs's
// live event tap). Passing nil disables it.
func (w *Worker) SetDebugSink(fn func(keyName string, pressed bool)) {
	w.debugSink = fn
}

// New opens path exclusively, creates its synthetic replacement
// mirroring the physical device's own supported-key bitmap, and
// wires a fresh keymap processor from proc.
func New(path, name string, proc *keymap.Processor, statStore *stats.Store, statsPath string) (*Worker, error) {
	kbd, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("worker.New: %w", err)
	}

	if err := kbd.DisableAutorepeat(); err != nil {
		kbd.Close()
		return nil, fmt.Errorf("worker.New: %w", err)
	}

	if err := kbd.Grab(); err != nil {
		kbd.Close()
		return nil, fmt.Errorf("worker.New: grab %s: %w", path, err)
	}

	keys, err := kbd.SupportedKeys()
	if err != nil {
		kbd.Ungrab()
		kbd.Close()
		return nil, fmt.Errorf("worker.New: %w", err)
	}

	vkbd, err := uinput.New(fmt.Sprintf("Keymux Virtual Keyboard (%s)", name), keys)
	if err != nil {
		kbd.Ungrab()
		kbd.Close()
		return nil, fmt.Errorf("worker.New: %w", err)
	}

	proc.SetAdaptiveRecorder(statStore)

	safetyKeys := intersectKeycodes(safetyReleaseKeys, keys)
	if err := vkbd.ReleaseKeys(safetyKeys); err != nil {
		kbd.Ungrab()
		kbd.Close()
		vkbd.Close()
		return nil, fmt.Errorf("worker.New: startup safety release: %w", err)
	}

	w := &Worker{
		Name:           name,
		DevicePath:     path,
		kbd:            kbd,
		vkbd:           vkbd,
		proc:           proc,
		stats:          statStore,
		statsPath:      statsPath,
		safetyKeys:     safetyKeys,
		log:            log.With("component", "worker", "keyboard", name),
		pressedOutputs: make(map[keycode.Keycode]bool),
		setGameModeCh:  make(chan bool, 1),
		reloadCh:       make(chan *keymap.Processor, 1),
	}
	return w, nil
}

// intersectKeycodes returns the subset of want that also appears in
// have, preserving want's order. The synthetic device only advertises
// have (the physical device's own bitmap, spec §4.9), so writing an
// event for a code outside it would be rejected by the kernel.
func intersectKeycodes(want, have []keycode.Keycode) []keycode.Keycode {
	haveSet := make(map[keycode.Keycode]bool, len(have))
	for _, k := range have {
		haveSet[k] = true
	}
	var out []keycode.Keycode
	for _, k := range want {
		if haveSet[k] {
			out = append(out, k)
		}
	}
	return out
}

// SetGameMode requests the worker switch game-mode state. Safe to
// call from another goroutine; the change is applied on the worker's
// own loop iteration.
func (w *Worker) SetGameMode(active bool) {
	select {
	case w.setGameModeCh <- active:
	default:
	}
}

// Reload swaps the worker's processor for one built from a freshly
// validated config, instead of in-place mutation (spec §4.10: a
// reload restarts workers rather than reconfiguring them in place —
// here, swapping the processor achieves the same "new snapshot, no
// partial state" guarantee without a full device re-grab).
func (w *Worker) Reload(proc *keymap.Processor) {
	proc.SetAdaptiveRecorder(w.stats)
	select {
	case w.reloadCh <- proc:
	default:
	}
}

// Run is the worker's main loop. It returns when ctx is canceled or
// the device is unplugged; in both cases every output key this worker
// pressed and has not yet released, plus the safety-release keys, is
// released before returning (spec invariant 2).
func (w *Worker) Run(ctx context.Context) error {
	defer w.releaseAll()
	defer w.kbd.Ungrab()
	defer w.kbd.Close()
	defer w.vkbd.Close()

	if err := w.kbd.SetNonblocking(true); err != nil {
		return fmt.Errorf("worker.Run: %w", err)
	}

	saveTicker := time.NewTicker(statsSaveInterval)
	defer saveTicker.Stop()

	w.log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping", "reason", ctx.Err())
			return nil

		case active := <-w.setGameModeCh:
			w.proc.SetGameMode(active)

		case proc := <-w.reloadCh:
			w.proc = proc
			w.log.Info("processor reloaded")

		case <-saveTicker.C:
			if err := w.stats.Save(w.statsPath); err != nil {
				w.log.Error("failed to save adaptive stats", "err", err)
			}

		default:
			if err := w.pump(); err != nil {
				return err
			}
		}
	}
}

// pump drains whatever events are currently available without
// blocking the select loop, matching the original's yield-on-empty
// behavior (thread::yield_now on EWOULDBLOCK) translated to a brief
// sleep since Go has no direct scheduler-yield analogue as cheap as
// the original's.
func (w *Worker) pump() error {
	ev, err := w.kbd.ReadEvent()
	if err != nil {
		if isWouldBlock(err) {
			if err := w.emitSequence(w.proc.CheckTimeouts()); err != nil {
				return fmt.Errorf("worker.pump: %w", err)
			}
			time.Sleep(time.Millisecond)
			return nil
		}
		return fmt.Errorf("worker.pump: device error: %w", err)
	}

	if !ev.IsKeyEvent() || ev.IsAutorepeat() {
		return nil
	}

	kc, ok := keycode.FromInputCode(uint16(ev.Code))
	if !ok {
		// Unsupported key: pass through unchanged (spec §4.1
		// "unsupported keys pass through as-is").
		return w.emit(keycode.Keycode(ev.Code), ev.Pressed())
	}

	if err := w.emitSequence(w.proc.ProcessKey(kc, ev.Pressed())); err != nil {
		return fmt.Errorf("worker.pump: %w", err)
	}

	if err := w.emitSequence(w.proc.CheckTimeouts()); err != nil {
		return fmt.Errorf("worker.pump: %w", err)
	}

	return nil
}

// interEventSpacing and tapSpacing are the inter-event delays spec
// §4.9 requires between chained output events produced by a single
// input event: a plain 2ms gap between distinct events, widened to
// 5ms between the press and release halves of one synthesized tap
// (e.g. an MT/DT resolver emitting press(t) then release(t) from a
// single dispatch).
const (
	interEventSpacing = 2 * time.Millisecond
	tapSpacing        = 5 * time.Millisecond
)

func (w *Worker) emitSequence(events []keymap.Event) error {
	for i, e := range events {
		if i > 0 {
			prev := events[i-1]
			if prev.Key == e.Key && prev.Pressed && !e.Pressed {
				time.Sleep(tapSpacing)
			} else {
				time.Sleep(interEventSpacing)
			}
		}
		if err := w.emit(e.Key, e.Pressed); err != nil {
			return err
		}
	}
	return nil
}

// emit writes one output event and tracks it so releaseAll can
// release every still-held output key at exit.
func (w *Worker) emit(k keycode.Keycode, pressed bool) error {
	if w.debugSink != nil {
		w.debugSink(k.Name(), pressed)
	}
	if pressed {
		w.pressedOutputs[k] = true
		return w.vkbd.PressKey(k)
	}
	delete(w.pressedOutputs, k)
	return w.vkbd.ReleaseKey(k)
}

// releaseAll releases every output key this worker still has pressed
// at exit, matching invariant 2: "every emitted press ... matched by
// exactly one emitted release before the device worker returns".
func (w *Worker) releaseAll() {
	for k := range w.pressedOutputs {
		w.vkbd.ReleaseKey(k)
	}
	if err := w.vkbd.ReleaseKeys(w.safetyKeys); err != nil {
		w.log.Error("failed belt-and-braces release on shutdown", "err", err)
	}
	if err := w.stats.Save(w.statsPath); err != nil {
		w.log.Error("failed to save adaptive stats on exit", "err", err)
	}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
