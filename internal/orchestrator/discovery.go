package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/fibsussy/keymux/internal/keyboardid"
	"github.com/fibsussy/keymux/linux/input"
	"github.com/fibsussy/keymux/linux/ioctl"
)

// rawDeviceID fetches EVIOCGID directly, since linux/input.Device
// doesn't expose its parsed ID struct (only the formatted Device.ID()
// string, meant for human display).
func rawDeviceID(d *input.Device) (input.ID, error) {
	var id input.ID
	if err := ioctl.Any(d.Fd(), input.EVIOCGID, &id); err != nil {
		return input.ID{}, err
	}
	return id, nil
}

// virtualKeyboardMarker is the name substring every keymux-created
// synthetic device carries, so discovery never grabs its own output
// (grounded on the original's find_all_keyboards skip-check for
// "Keyboard Middleware Virtual Keyboard").
const virtualKeyboardMarker = "Keymux Virtual Keyboard"

// discoveredDevice is one /dev/input/eventN node identified as
// belonging to a physical keyboard.
type discoveredDevice struct {
	Path  string
	Name  string
	ID    keyboardid.ID
	Index int // numeric suffix of the eventN path (not the kernel's inputN index), for ordering multi-interface keyboards
}

// logicalKeyboard groups every discovered event path sharing one
// hardware identity (spec §3 "LogicalKeyboard"), lowest eventN number
// first; the sysfs inputN index is not read.
type logicalKeyboard struct {
	ID    keyboardid.ID
	Name  string
	Paths []string
}

// discoverKeyboards scans /dev/input, opening every eventN node and
// keeping the ones that look like keyboards: reports KEY_A, KEY_Z and
// KEY_SPACE and has no mouse signature, translated from
// keyboard_id.rs's find_all_keyboards filter.
func discoverKeyboards() (map[keyboardid.ID]logicalKeyboard, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}

	var devices []discoveredDevice
	for _, path := range paths {
		d, err := input.NewDevice(path)
		if err != nil {
			continue
		}

		name, err := d.Name()
		if err != nil {
			d.Close()
			continue
		}
		if strings.Contains(name, virtualKeyboardMarker) {
			d.Close()
			continue
		}

		codes, err := d.Codes(input.EV_KEY)
		if err != nil {
			d.Close()
			continue
		}
		if !looksLikeKeyboard(codes) || looksLikeMouse(d, codes) {
			d.Close()
			continue
		}

		id, err := rawDeviceID(d)
		if err != nil {
			d.Close()
			continue
		}

		devices = append(devices, discoveredDevice{
			Path:  path,
			Name:  name,
			ID:    keyboardid.New(id.Bustype, id.Vendor, id.Product, id.Version),
			Index: inputIndex(path),
		})
		d.Close()
	}

	groups := make(map[keyboardid.ID][]discoveredDevice)
	for _, d := range devices {
		groups[d.ID] = append(groups[d.ID], d)
	}

	out := make(map[keyboardid.ID]logicalKeyboard, len(groups))
	for id, members := range groups {
		sortByIndex(members)
		paths := make([]string, len(members))
		for i, m := range members {
			paths[i] = m.Path
		}
		out[id] = logicalKeyboard{ID: id, Name: members[0].Name, Paths: paths}
	}
	return out, nil
}

func sortByIndex(members []discoveredDevice) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && members[j].Index < members[j-1].Index; j-- {
			members[j], members[j-1] = members[j-1], members[j]
		}
	}
}

func looksLikeKeyboard(codes []input.Code) bool {
	has := func(c input.Code) bool {
		for _, x := range codes {
			if x == c {
				return true
			}
		}
		return false
	}
	return has(input.Code(input.KEY_A)) && has(input.Code(input.KEY_Z)) && has(input.Code(input.KEY_SPACE))
}

func looksLikeMouse(d *input.Device, keyCodes []input.Code) bool {
	for _, c := range keyCodes {
		if c == input.Code(input.BTN_TOOL_MOUSE) || c == input.Code(input.BTN_TOOL_FINGER) || c == input.Code(input.BTN_TOOL_PEN) {
			return true
		}
	}
	relCodes, err := d.Codes(input.EV_REL)
	if err != nil {
		return false
	}
	for _, c := range relCodes {
		if c == input.Code(input.REL_X) || c == input.Code(input.REL_Y) {
			return true
		}
	}
	return false
}

func inputIndex(path string) int {
	name := filepath.Base(path)
	n := strings.TrimPrefix(name, "event")
	idx := 0
	for _, r := range n {
		if r < '0' || r > '9' {
			return idx
		}
		idx = idx*10 + int(r-'0')
	}
	return idx
}
