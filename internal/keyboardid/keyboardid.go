// Package keyboardid implements the stable identity the orchestrator
// groups kernel event-file paths under (spec §3 "KeyboardId", §4.10
// "Group by KeyboardId; sort paths by the kernel's inputN index").
package keyboardid

import "fmt"

// ID is the hex-encoded bus/vendor/product/version identity shared by
// every /dev/input/eventN node backed by the same physical device.
type ID string

// New formats the four EVIOCGID fields into the spec's stable
// identity string: vendor:product:version:bustype, each a 16-bit hex
// value.
func New(bustype, vendor, product, version uint16) ID {
	return ID(fmt.Sprintf("%04x:%04x:%04x:%04x", vendor, product, version, bustype))
}
