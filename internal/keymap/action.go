// Package keymap implements the per-device transformation pipeline:
// layer stack, SOCD/MT/DT/OSM resolvers, and the processor that
// composes them into a single press/release dispatch.
package keymap

import "github.com/fibsussy/keymux/internal/keycode"

// Layer is a named set of remaps. The zero Layer is never valid;
// BaseLayer is the distinguished base.
type Layer string

// BaseLayer is always present at the bottom of the layer stack.
const BaseLayer Layer = "base"

// ActionKind tags the variant held by an Action.
type ActionKind int

const (
	ActionKey ActionKind = iota
	ActionMT
	ActionDT
	ActionOSM
	ActionSOCD
	ActionTO
	ActionTG
	ActionMO
	ActionCMD
	ActionTransparent
)

// Action is the tagged union described in spec §3 "KeyAction". Only
// the fields relevant to Kind are populated; children are stored as
// pointers so the type can recurse (MT/DT/SOCD carry inner Actions),
// per the nested-tagged-actions design note in spec §9.
type Action struct {
	Kind ActionKind

	// ActionKey
	Key keycode.Keycode

	// ActionMT / ActionDT: Tap is the single-press action, Hold/Double
	// is the alternate resolution.
	Tap    *Action
	Hold   *Action
	Double *Action

	// ActionOSM
	Modifier *Action

	// ActionSOCD
	Self     *Action
	Opposing []*Action

	// ActionTO / ActionTG / ActionMO
	Layer Layer

	// ActionCMD
	Command string
}

// IsTransparent reports whether a is the Transparent action, treating
// a nil Action (no remap at all) as transparent too so layer
// fall-through (spec §4.6) can use one predicate for both.
func (a *Action) IsTransparent() bool {
	return a == nil || a.Kind == ActionTransparent
}

// KeyAction constructs a plain single-output action.
func KeyAction(k keycode.Keycode) *Action { return &Action{Kind: ActionKey, Key: k} }

// MTAction constructs a dual-role tap/hold action.
func MTAction(tap, hold *Action) *Action { return &Action{Kind: ActionMT, Tap: tap, Hold: hold} }

// DTAction constructs a tap-dance tap/double action.
func DTAction(tap, double *Action) *Action { return &Action{Kind: ActionDT, Tap: tap, Double: double} }

// OSMAction constructs a one-shot modifier action.
func OSMAction(mod *Action) *Action { return &Action{Kind: ActionOSM, Modifier: mod} }

// SOCDAction constructs a SOCD group member action.
func SOCDAction(self *Action, opposing ...*Action) *Action {
	return &Action{Kind: ActionSOCD, Self: self, Opposing: opposing}
}

// ToAction activates layer l (spec: TO).
func ToAction(l Layer) *Action { return &Action{Kind: ActionTO, Layer: l} }

// TgAction toggles layer l (spec: TG).
func TgAction(l Layer) *Action { return &Action{Kind: ActionTG, Layer: l} }

// MoAction activates layer l momentarily while held (spec: MO).
func MoAction(l Layer) *Action { return &Action{Kind: ActionMO, Layer: l} }

// CmdAction runs an external shell command and emits nothing.
func CmdAction(cmd string) *Action { return &Action{Kind: ActionCMD, Command: cmd} }

// TransparentAction falls through to the layer below.
func TransparentAction() *Action { return &Action{Kind: ActionTransparent} }

// Event is one (keycode, pressed) output produced by a resolver.
type Event struct {
	Key     keycode.Keycode
	Pressed bool
}
