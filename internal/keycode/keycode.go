// Package keycode defines the closed set of logical key identities the
// engine operates on and their bijection to the kernel's evdev key
// codes (see linux/input-event-codes.h).
package keycode

import (
	"errors"
	"fmt"
)

// ErrUnknownKeycode is returned when a config or IPC payload names a
// keycode not present in the symbol table.
var ErrUnknownKeycode = errors.New("unknown keycode")

// Keycode is a logical key identity. Its numeric value is identical to
// the Linux kernel's KEY_* input event code, so converting to and from
// the wire representation is a zero-cost cast.
type Keycode uint16

// Category classifies a Keycode for dispatch decisions that don't
// depend on the specific key (OSM consuming one-shots, diagnostics).
type Category int

const (
	CategoryModifier Category = iota
	CategoryLetter
	CategoryNumber
	CategoryFunction
	CategorySpecial
	CategoryNavigation
	CategoryNumpad
	CategoryMedia
	CategoryInternational
	CategoryLock
	CategoryGeneral
)

func (c Category) String() string {
	switch c {
	case CategoryModifier:
		return "Modifier"
	case CategoryLetter:
		return "Letter"
	case CategoryNumber:
		return "Number"
	case CategoryFunction:
		return "Function"
	case CategorySpecial:
		return "Special"
	case CategoryNavigation:
		return "Navigation"
	case CategoryNumpad:
		return "Numpad"
	case CategoryMedia:
		return "Media"
	case CategoryInternational:
		return "International"
	case CategoryLock:
		return "Lock"
	default:
		return "General"
	}
}

// Keycode values. Numeric assignments match KEY_* in the kernel's
// input-event-codes.h; see linux/input/eventCodes.go for the raw
// constants this table is derived from.
const (
	KC_NO Keycode = 0

	// Letters
	KC_A Keycode = 30
	KC_B Keycode = 48
	KC_C Keycode = 46
	KC_D Keycode = 32
	KC_E Keycode = 18
	KC_F Keycode = 33
	KC_G Keycode = 34
	KC_H Keycode = 35
	KC_I Keycode = 23
	KC_J Keycode = 36
	KC_K Keycode = 37
	KC_L Keycode = 38
	KC_M Keycode = 50
	KC_N Keycode = 49
	KC_O Keycode = 24
	KC_P Keycode = 25
	KC_Q Keycode = 16
	KC_R Keycode = 19
	KC_S Keycode = 31
	KC_T Keycode = 20
	KC_U Keycode = 22
	KC_V Keycode = 47
	KC_W Keycode = 17
	KC_X Keycode = 45
	KC_Y Keycode = 21
	KC_Z Keycode = 44

	// Numbers
	KC_1 Keycode = 2
	KC_2 Keycode = 3
	KC_3 Keycode = 4
	KC_4 Keycode = 5
	KC_5 Keycode = 6
	KC_6 Keycode = 7
	KC_7 Keycode = 8
	KC_8 Keycode = 9
	KC_9 Keycode = 10
	KC_0 Keycode = 11

	// Modifiers
	KC_LCTL Keycode = 29
	KC_LSFT Keycode = 42
	KC_LALT Keycode = 56
	KC_LGUI Keycode = 125
	KC_RCTL Keycode = 97
	KC_RSFT Keycode = 54
	KC_RALT Keycode = 100
	KC_RGUI Keycode = 126

	// Special keys
	KC_ESC  Keycode = 1
	KC_CAPS Keycode = 58
	KC_TAB  Keycode = 15
	KC_SPC  Keycode = 57
	KC_ENT  Keycode = 28
	KC_BSPC Keycode = 14
	KC_DEL  Keycode = 111
	KC_GRV  Keycode = 41
	KC_MINS Keycode = 12
	KC_EQL  Keycode = 13
	KC_LBRC Keycode = 26
	KC_RBRC Keycode = 27
	KC_BSLS Keycode = 43
	KC_SCLN Keycode = 39
	KC_QUOT Keycode = 40
	KC_COMM Keycode = 51
	KC_DOT  Keycode = 52
	KC_SLSH Keycode = 53

	// Print screen / system
	KC_PSCR Keycode = 99
	KC_BRK  Keycode = 101

	// Arrows
	KC_LEFT Keycode = 105
	KC_DOWN Keycode = 108
	KC_UP   Keycode = 103
	KC_RGHT Keycode = 106

	// Function keys
	KC_F1  Keycode = 59
	KC_F2  Keycode = 60
	KC_F3  Keycode = 61
	KC_F4  Keycode = 62
	KC_F5  Keycode = 63
	KC_F6  Keycode = 64
	KC_F7  Keycode = 65
	KC_F8  Keycode = 66
	KC_F9  Keycode = 67
	KC_F10 Keycode = 68
	KC_F11 Keycode = 69
	KC_F12 Keycode = 70
	KC_F13 Keycode = 183
	KC_F14 Keycode = 184
	KC_F15 Keycode = 185
	KC_F16 Keycode = 186
	KC_F17 Keycode = 187
	KC_F18 Keycode = 188
	KC_F19 Keycode = 189
	KC_F20 Keycode = 190
	KC_F21 Keycode = 191
	KC_F22 Keycode = 192
	KC_F23 Keycode = 193
	KC_F24 Keycode = 194

	// Lock keys
	KC_SLCK Keycode = 214
	KC_NLCK Keycode = 215
	KC_PAUS Keycode = 216

	// Navigation
	KC_INS  Keycode = 110
	KC_HOME Keycode = 102
	KC_PGUP Keycode = 104
	KC_END  Keycode = 107
	KC_PGDN Keycode = 109

	// Numpad
	KC_NUBS Keycode = 86
	KC_PSLS Keycode = 200
	KC_PAST Keycode = 201
	KC_PMNS Keycode = 82
	KC_PPLS Keycode = 87
	KC_PENT Keycode = 202
	KC_P1   Keycode = 203
	KC_P2   Keycode = 204
	KC_P3   Keycode = 205
	KC_P4   Keycode = 206
	KC_P5   Keycode = 207
	KC_P6   Keycode = 208
	KC_P7   Keycode = 209
	KC_P8   Keycode = 210
	KC_P9   Keycode = 211
	KC_P0   Keycode = 212
	KC_PDOT Keycode = 213

	// Media
	KC_MUTE Keycode = 217
	KC_VOLD Keycode = 218
	KC_VOLU Keycode = 219

	// Application
	KC_APP  Keycode = 220
	KC_HELP Keycode = 221
	KC_SCRL Keycode = 222
	KC_ASST Keycode = 226

	// Power
	KC_PWR  Keycode = 223
	KC_SLEP Keycode = 224
	KC_WAKE Keycode = 225

	// International (Japanese)
	KC_INT1 Keycode = 121
	KC_INT2 Keycode = 122
	KC_INT3 Keycode = 123
	KC_INT4 Keycode = 124
	KC_INT5 Keycode = 128

	// Language
	KC_LANG1 Keycode = 131
	KC_LANG2 Keycode = 132
	KC_LANG3 Keycode = 133
	KC_LANG4 Keycode = 134
	KC_LANG5 Keycode = 135
	KC_LANG6 Keycode = 136
	KC_LANG7 Keycode = 137
	KC_LANG8 Keycode = 138
	KC_LANG9 Keycode = 139

	// Korean
	KC_HAEN Keycode = 140
	KC_HANJ Keycode = 141
)

// QMK-style aliases for common alternative names.
const (
	KC_LCMD    = KC_LGUI
	KC_RCMD    = KC_RGUI
	KC_LWIN    = KC_LGUI
	KC_RWIN    = KC_RGUI
	KC_BSPACE  = KC_BSPC
	KC_ENTER   = KC_ENT
	KC_ESCAPE  = KC_ESC
	KC_SPACE   = KC_SPC
)

type entry struct {
	name     string
	category Category
}

// row is one source-of-truth line: the keycode, its stable name, and
// its category. table is built from rows at init time, mirroring the
// teacher's MaxCodes lookup-table idiom in linux/input/lib.go rather
// than a giant switch statement.
type row struct {
	code Keycode
	name string
	cat  Category
}

var rows = []row{
	{KC_NO, "KC_NO", CategoryGeneral},

	{KC_A, "KC_A", CategoryLetter}, {KC_B, "KC_B", CategoryLetter}, {KC_C, "KC_C", CategoryLetter},
	{KC_D, "KC_D", CategoryLetter}, {KC_E, "KC_E", CategoryLetter}, {KC_F, "KC_F", CategoryLetter},
	{KC_G, "KC_G", CategoryLetter}, {KC_H, "KC_H", CategoryLetter}, {KC_I, "KC_I", CategoryLetter},
	{KC_J, "KC_J", CategoryLetter}, {KC_K, "KC_K", CategoryLetter}, {KC_L, "KC_L", CategoryLetter},
	{KC_M, "KC_M", CategoryLetter}, {KC_N, "KC_N", CategoryLetter}, {KC_O, "KC_O", CategoryLetter},
	{KC_P, "KC_P", CategoryLetter}, {KC_Q, "KC_Q", CategoryLetter}, {KC_R, "KC_R", CategoryLetter},
	{KC_S, "KC_S", CategoryLetter}, {KC_T, "KC_T", CategoryLetter}, {KC_U, "KC_U", CategoryLetter},
	{KC_V, "KC_V", CategoryLetter}, {KC_W, "KC_W", CategoryLetter}, {KC_X, "KC_X", CategoryLetter},
	{KC_Y, "KC_Y", CategoryLetter}, {KC_Z, "KC_Z", CategoryLetter},

	{KC_1, "KC_1", CategoryNumber}, {KC_2, "KC_2", CategoryNumber}, {KC_3, "KC_3", CategoryNumber},
	{KC_4, "KC_4", CategoryNumber}, {KC_5, "KC_5", CategoryNumber}, {KC_6, "KC_6", CategoryNumber},
	{KC_7, "KC_7", CategoryNumber}, {KC_8, "KC_8", CategoryNumber}, {KC_9, "KC_9", CategoryNumber},
	{KC_0, "KC_0", CategoryNumber},

	{KC_LCTL, "KC_LCTL", CategoryModifier}, {KC_LSFT, "KC_LSFT", CategoryModifier},
	{KC_LALT, "KC_LALT", CategoryModifier}, {KC_LGUI, "KC_LGUI", CategoryModifier},
	{KC_RCTL, "KC_RCTL", CategoryModifier}, {KC_RSFT, "KC_RSFT", CategoryModifier},
	{KC_RALT, "KC_RALT", CategoryModifier}, {KC_RGUI, "KC_RGUI", CategoryModifier},

	{KC_ESC, "KC_ESC", CategorySpecial}, {KC_CAPS, "KC_CAPS", CategoryLock},
	{KC_TAB, "KC_TAB", CategorySpecial}, {KC_SPC, "KC_SPC", CategorySpecial},
	{KC_ENT, "KC_ENT", CategorySpecial}, {KC_BSPC, "KC_BSPC", CategorySpecial},
	{KC_DEL, "KC_DEL", CategorySpecial}, {KC_GRV, "KC_GRV", CategorySpecial},
	{KC_MINS, "KC_MINS", CategorySpecial}, {KC_EQL, "KC_EQL", CategorySpecial},
	{KC_LBRC, "KC_LBRC", CategorySpecial}, {KC_RBRC, "KC_RBRC", CategorySpecial},
	{KC_BSLS, "KC_BSLS", CategorySpecial}, {KC_SCLN, "KC_SCLN", CategorySpecial},
	{KC_QUOT, "KC_QUOT", CategorySpecial}, {KC_COMM, "KC_COMM", CategorySpecial},
	{KC_DOT, "KC_DOT", CategorySpecial}, {KC_SLSH, "KC_SLSH", CategorySpecial},

	{KC_PSCR, "KC_PSCR", CategorySpecial}, {KC_BRK, "KC_BRK", CategorySpecial},

	{KC_LEFT, "KC_LEFT", CategoryNavigation}, {KC_DOWN, "KC_DOWN", CategoryNavigation},
	{KC_UP, "KC_UP", CategoryNavigation}, {KC_RGHT, "KC_RGHT", CategoryNavigation},

	{KC_F1, "KC_F1", CategoryFunction}, {KC_F2, "KC_F2", CategoryFunction},
	{KC_F3, "KC_F3", CategoryFunction}, {KC_F4, "KC_F4", CategoryFunction},
	{KC_F5, "KC_F5", CategoryFunction}, {KC_F6, "KC_F6", CategoryFunction},
	{KC_F7, "KC_F7", CategoryFunction}, {KC_F8, "KC_F8", CategoryFunction},
	{KC_F9, "KC_F9", CategoryFunction}, {KC_F10, "KC_F10", CategoryFunction},
	{KC_F11, "KC_F11", CategoryFunction}, {KC_F12, "KC_F12", CategoryFunction},
	{KC_F13, "KC_F13", CategoryFunction}, {KC_F14, "KC_F14", CategoryFunction},
	{KC_F15, "KC_F15", CategoryFunction}, {KC_F16, "KC_F16", CategoryFunction},
	{KC_F17, "KC_F17", CategoryFunction}, {KC_F18, "KC_F18", CategoryFunction},
	{KC_F19, "KC_F19", CategoryFunction}, {KC_F20, "KC_F20", CategoryFunction},
	{KC_F21, "KC_F21", CategoryFunction}, {KC_F22, "KC_F22", CategoryFunction},
	{KC_F23, "KC_F23", CategoryFunction}, {KC_F24, "KC_F24", CategoryFunction},

	{KC_SLCK, "KC_SLCK", CategoryLock}, {KC_NLCK, "KC_NLCK", CategoryLock},
	{KC_PAUS, "KC_PAUS", CategorySpecial},

	{KC_INS, "KC_INS", CategoryNavigation}, {KC_HOME, "KC_HOME", CategoryNavigation},
	{KC_PGUP, "KC_PGUP", CategoryNavigation}, {KC_END, "KC_END", CategoryNavigation},
	{KC_PGDN, "KC_PGDN", CategoryNavigation},

	{KC_NUBS, "KC_NUBS", CategoryNumpad}, {KC_PSLS, "KC_PSLS", CategoryNumpad},
	{KC_PAST, "KC_PAST", CategoryNumpad}, {KC_PMNS, "KC_PMNS", CategoryNumpad},
	{KC_PPLS, "KC_PPLS", CategoryNumpad}, {KC_PENT, "KC_PENT", CategoryNumpad},
	{KC_P1, "KC_P1", CategoryNumpad}, {KC_P2, "KC_P2", CategoryNumpad},
	{KC_P3, "KC_P3", CategoryNumpad}, {KC_P4, "KC_P4", CategoryNumpad},
	{KC_P5, "KC_P5", CategoryNumpad}, {KC_P6, "KC_P6", CategoryNumpad},
	{KC_P7, "KC_P7", CategoryNumpad}, {KC_P8, "KC_P8", CategoryNumpad},
	{KC_P9, "KC_P9", CategoryNumpad}, {KC_P0, "KC_P0", CategoryNumpad},
	{KC_PDOT, "KC_PDOT", CategoryNumpad},

	{KC_MUTE, "KC_MUTE", CategoryMedia}, {KC_VOLD, "KC_VOLD", CategoryMedia},
	{KC_VOLU, "KC_VOLU", CategoryMedia},

	{KC_APP, "KC_APP", CategorySpecial}, {KC_HELP, "KC_HELP", CategorySpecial},
	{KC_SCRL, "KC_SCRL", CategoryLock}, {KC_ASST, "KC_ASST", CategorySpecial},

	{KC_PWR, "KC_PWR", CategorySpecial}, {KC_SLEP, "KC_SLEP", CategorySpecial},
	{KC_WAKE, "KC_WAKE", CategorySpecial},

	{KC_INT1, "KC_INT1", CategoryInternational}, {KC_INT2, "KC_INT2", CategoryInternational},
	{KC_INT3, "KC_INT3", CategoryInternational}, {KC_INT4, "KC_INT4", CategoryInternational},
	{KC_INT5, "KC_INT5", CategoryInternational},

	{KC_LANG1, "KC_LANG1", CategoryInternational}, {KC_LANG2, "KC_LANG2", CategoryInternational},
	{KC_LANG3, "KC_LANG3", CategoryInternational}, {KC_LANG4, "KC_LANG4", CategoryInternational},
	{KC_LANG5, "KC_LANG5", CategoryInternational}, {KC_LANG6, "KC_LANG6", CategoryInternational},
	{KC_LANG7, "KC_LANG7", CategoryInternational}, {KC_LANG8, "KC_LANG8", CategoryInternational},
	{KC_LANG9, "KC_LANG9", CategoryInternational},

	{KC_HAEN, "KC_HAEN", CategoryInternational}, {KC_HANJ, "KC_HANJ", CategoryInternational},
}

var table = func() map[Keycode]entry {
	m := make(map[Keycode]entry, len(rows))
	for _, r := range rows {
		m[r.code] = entry{r.name, r.cat}
	}
	return m
}()

var byName = func() map[string]Keycode {
	m := make(map[string]Keycode, len(rows))
	for _, r := range rows {
		m[r.name] = r.code
	}
	return m
}()

// FromInputCode converts a raw kernel KEY_* code into a Keycode. It
// returns false for codes outside the supported table; callers at the
// device-worker boundary forward those events unchanged instead of
// dropping them.
func FromInputCode(code uint16) (Keycode, bool) {
	kc := Keycode(code)
	_, ok := table[kc]
	return kc, ok
}

// ToInputCode returns the raw kernel KEY_* code for kc.
func ToInputCode(kc Keycode) uint16 {
	return uint16(kc)
}

// FromName looks up a Keycode by its stable name (e.g. "KC_A").
func FromName(name string) (Keycode, bool) {
	kc, ok := byName[name]
	return kc, ok
}

// Category classifies kc. Unknown codes report CategoryGeneral.
func (kc Keycode) Category() Category {
	if e, ok := table[kc]; ok {
		return e.category
	}
	return CategoryGeneral
}

// IsModifier reports whether kc is Ctrl/Shift/Alt/GUI.
func (kc Keycode) IsModifier() bool {
	return kc.Category() == CategoryModifier
}

// AllWithCategory returns every keycode in the table classified as
// cat, in table order. Used by the device worker's startup safety
// release (spec §4.9: "emit release for every modifier, every
// letter, and a set of common navigation keys").
func AllWithCategory(cat Category) []Keycode {
	var out []Keycode
	for _, r := range rows {
		if r.cat == cat {
			out = append(out, r.code)
		}
	}
	return out
}

// Name returns the stable variant name, or a numeric fallback for
// codes outside the table.
func (kc Keycode) Name() string {
	if e, ok := table[kc]; ok {
		return e.name
	}
	return fmt.Sprintf("KC_0x%x", uint16(kc))
}

// String implements fmt.Stringer.
func (kc Keycode) String() string {
	return kc.Name()
}

// MarshalText implements encoding.TextMarshaler so Keycode serializes
// as its stable name in YAML config and JSON stats files.
func (kc Keycode) MarshalText() ([]byte, error) {
	return []byte(kc.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (kc *Keycode) UnmarshalText(text []byte) error {
	name := string(text)
	found, ok := FromName(name)
	if !ok {
		return fmt.Errorf("keycode: unknown name %q", name)
	}
	*kc = found
	return nil
}
