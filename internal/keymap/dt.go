package keymap

import (
	"time"

	"github.com/fibsussy/keymux/internal/keycode"
)

// tdState mirrors the original tap-dance state machine (spec §4.4).
// Undecided: first press held, waiting to see if it is a plain tap, a
// hold, or the first half of a double-tap.
// HoldingFirst: the tap action has been pressed as a hold-in-place
// because the key is still down past tapping_term_ms (or another key
// interrupted it); release reverses it.
// Tapped: the key was released once within the window and we're
// waiting to see whether a second press arrives before
// double_tap_window_ms elapses.
// TappingSecond: second press landed inside the window and the
// double-tap action was pressed at once; release reverses it, or the
// key is promoted to HoldingSecond if the second press itself is held
// past tapping_term_ms.
// HoldingSecond: the double-tap action is being held in place because
// the second press stayed down past tapping_term_ms; release reverses
// it, symmetric to HoldingFirst.
type tdState int

const (
	tdUndecided tdState = iota
	tdHoldingFirst
	tdTapped
	tdTappingSecond
	tdHoldingSecond
)

type tdKey struct {
	physical    keycode.Keycode
	tap         *Action
	double      *Action
	state       tdState
	pressedAt   time.Time
	tapCount    int
	lastEmitted *Action
}

// DtConfig tunes the tap-dance resolver (spec §4.4). GracePeriodMS has
// no on-disk config exposure in the original daemon (hard-coded to
// 500) and is preserved as a Go-side default rather than silently
// changed, per spec §9's explicit instruction not to "fix" this.
type DtConfig struct {
	TappingTermMS     uint32
	DoubleTapWindowMS uint32
	GracePeriodMS     uint32
	PermissiveHold    bool
}

// DefaultDtConfig mirrors the original daemon's defaults.
func DefaultDtConfig() DtConfig {
	return DtConfig{TappingTermMS: 200, DoubleTapWindowMS: 250, GracePeriodMS: 500, PermissiveHold: true}
}

// ActionEmitter lets a DtProcessor delegate "emit this resolved inner
// action now" to a full recursive dispatcher instead of only handling
// the plain Key case itself (spec §4.4: "when DT 'emits' them it
// re-enters the emit dispatch recursively"). Processor wires itself in
// as the emitter; a DtProcessor used standalone (as in its own unit
// tests) falls back to the plain-Key-only leaf helpers below.
type ActionEmitter interface {
	EmitPress(physical keycode.Keycode, a *Action) []Event
	EmitRelease(physical keycode.Keycode, a *Action) []Event
}

// DtProcessor resolves tap-dance keys. Resolution is lazy: a bare tap
// produces no output until a second press or a timeout forces the
// ambiguity to resolve, exactly as the original daemon's
// resolve_action does — Undecided -> Tapped never itself emits.
type DtProcessor struct {
	config  DtConfig
	keys    map[keycode.Keycode]*tdKey
	emitter ActionEmitter
}

// NewDtProcessor builds an empty tap-dance processor.
func NewDtProcessor(cfg DtConfig) *DtProcessor {
	return &DtProcessor{config: cfg, keys: make(map[keycode.Keycode]*tdKey)}
}

// SetEmitter wires a recursive dispatcher for resolved inner actions.
// Passing nil restores the plain-Key-only leaf behavior.
func (p *DtProcessor) SetEmitter(e ActionEmitter) {
	p.emitter = e
}

func (p *DtProcessor) emitPress(physical keycode.Keycode, a *Action) []Event {
	if p.emitter != nil {
		return p.emitter.EmitPress(physical, a)
	}
	return emitAction(a)
}

func (p *DtProcessor) emitRelease(physical keycode.Keycode, a *Action) []Event {
	if p.emitter != nil {
		return p.emitter.EmitRelease(physical, a)
	}
	return unemitAction(a)
}

// OnPress handles a press of DT key k (tap, double). It returns any
// events to emit immediately (non-nil only when this press itself
// resolves a pending ambiguity, e.g. a second press arriving while
// still Undecided promotes straight to HoldingFirst and emits the
// tap action in place).
func (p *DtProcessor) OnPress(k keycode.Keycode, tap, double *Action) []Event {
	existing, tracked := p.keys[k]
	now := time.Now()

	if !tracked {
		p.keys[k] = &tdKey{physical: k, tap: tap, double: double, state: tdUndecided, pressedAt: now, tapCount: 1}
		return nil
	}

	switch existing.state {
	case tdUndecided:
		existing.state = tdHoldingFirst
		existing.pressedAt = now
		existing.lastEmitted = existing.tap
		return p.emitPress(k, existing.tap)

	case tdTapped:
		// Spec §4.4: "Press while Tapped: if elapsed <= double_tap_window_ms
		// -> emit double-tap action, enter TappingSecond" — the double
		// action presses now, on the second press, and is reversed on
		// release (symmetric to HoldingFirst/tap), not bundled as a single
		// press+release pair deferred to release time.
		existing.state = tdTappingSecond
		existing.pressedAt = now
		existing.tapCount++
		existing.lastEmitted = existing.double
		return p.emitPress(k, existing.double)

	case tdHoldingFirst, tdTappingSecond:
		return nil
	}
	return nil
}

// OnOtherKeyPress lets every currently-Undecided DT key resolve early
// when triggerKey is pressed, mirroring MT's permissive-hold pattern
// (spec §4.4: "if another key is pressed meanwhile ... emit tap
// action, enter HoldingFirst"). triggerKey itself is excluded since a
// DT key's own second press is handled by OnPress, not here.
func (p *DtProcessor) OnOtherKeyPress(triggerKey keycode.Keycode) []Event {
	if !p.config.PermissiveHold {
		return nil
	}
	var events []Event
	for k, existing := range p.keys {
		if k == triggerKey || existing.state != tdUndecided {
			continue
		}
		existing.state = tdHoldingFirst
		existing.lastEmitted = existing.tap
		events = append(events, p.emitPress(k, existing.tap)...)
	}
	return events
}

// OnRelease handles release of DT key k.
func (p *DtProcessor) OnRelease(k keycode.Keycode) []Event {
	existing, tracked := p.keys[k]
	if !tracked {
		return nil
	}

	switch existing.state {
	case tdUndecided:
		existing.state = tdTapped
		return nil

	case tdHoldingFirst:
		events := p.emitRelease(k, existing.lastEmitted)
		delete(p.keys, k)
		return events

	case tdTappingSecond:
		// The double action already pressed when the second press
		// landed (see OnPress); release just reverses it.
		events := p.emitRelease(k, existing.lastEmitted)
		delete(p.keys, k)
		return events

	case tdHoldingSecond:
		events := p.emitRelease(k, existing.lastEmitted)
		delete(p.keys, k)
		return events

	case tdTapped:
		return nil
	}
	return nil
}

// CheckTimeouts advances keys whose window has elapsed and returns any
// events produced. Must be polled regularly by the device worker loop
// (spec §4.9's "grace period" poll cadence).
func (p *DtProcessor) CheckTimeouts() []Event {
	var events []Event
	now := time.Now()

	for k, tk := range p.keys {
		switch tk.state {
		case tdUndecided:
			if uint32(now.Sub(tk.pressedAt).Milliseconds()) >= p.config.TappingTermMS {
				tk.state = tdHoldingFirst
				tk.lastEmitted = tk.tap
				events = append(events, p.emitPress(k, tk.tap)...)
			}

		case tdTapped:
			if uint32(now.Sub(tk.pressedAt).Milliseconds()) >= p.config.DoubleTapWindowMS {
				events = append(events, p.emitPress(k, tk.tap)...)
				events = append(events, p.emitRelease(k, tk.tap)...)
				delete(p.keys, k)
			}

		case tdTappingSecond:
			// The double action already pressed when the second press
			// landed (OnPress); held past the tapping term just
			// reclassifies it so release reverses the same action,
			// without re-emitting a press.
			if uint32(now.Sub(tk.pressedAt).Milliseconds()) >= p.config.TappingTermMS {
				tk.state = tdHoldingSecond
			}
		}
	}
	return events
}

// IsTracked reports whether k has an in-flight tap-dance resolution.
func (p *DtProcessor) IsTracked(k keycode.Keycode) bool {
	_, ok := p.keys[k]
	return ok
}

// emitAction produces the press-side events for a resolved inner
// action. Only the Key case is directly emittable here; richer inner
// actions (nested MT/layer actions) are expanded by the composing
// processor via its own recursive dispatch, so this stays a thin
// leaf-level helper for the common plain-key case.
func emitAction(a *Action) []Event {
	if a == nil {
		return nil
	}
	if a.Kind == ActionKey {
		return []Event{{a.Key, true}}
	}
	return nil
}

// unemitAction produces the matching release-side events.
func unemitAction(a *Action) []Event {
	if a == nil {
		return nil
	}
	if a.Kind == ActionKey {
		return []Event{{a.Key, false}}
	}
	return nil
}
