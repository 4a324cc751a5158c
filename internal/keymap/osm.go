package keymap

import (
	"time"

	"github.com/fibsussy/keymux/internal/keycode"
)

// osmState mirrors the QMK-inspired one-shot-modifier lifecycle (spec
// §4.5): pressed and undecided, tapped and active awaiting the next
// non-modifier key, queued for release once that key's own events
// finish, or held acting as a plain modifier.
type osmState int

const (
	osmPressed osmState = iota
	osmActive
	osmHeld
	osmQueuedRelease
)

type osmKey struct {
	physical    keycode.Keycode
	modifier    keycode.Keycode
	activatedAt time.Time
	state       osmState
}

func (k *osmKey) elapsedMS() int64 {
	return time.Since(k.activatedAt).Milliseconds()
}

// OsmConfig tunes the one-shot-modifier resolver (spec §4.5).
type OsmConfig struct {
	OneshotTimeoutMS uint64
	TappingTermMS    uint32
}

// DefaultOsmConfig mirrors QMK's defaults.
func DefaultOsmConfig() OsmConfig {
	return OsmConfig{OneshotTimeoutMS: 5000, TappingTermMS: 200}
}

// OsmProcessor resolves one-shot modifier keys: a tap arms the
// modifier for exactly the next non-modifier keypress; a hold behaves
// as a plain modifier; an idle one-shot self-releases after
// OneshotTimeoutMS.
type OsmProcessor struct {
	config OsmConfig

	tracked map[keycode.Keycode]*osmKey
	active  map[keycode.Keycode]*osmKey // keyed by modifier keycode
}

// NewOsmProcessor builds an empty OSM processor.
func NewOsmProcessor(cfg OsmConfig) *OsmProcessor {
	return &OsmProcessor{config: cfg, tracked: make(map[keycode.Keycode]*osmKey), active: make(map[keycode.Keycode]*osmKey)}
}

// OnPress starts tracking a press of OSM key physical with modifier
// mod. Emits nothing yet — tap/hold is resolved on release.
func (p *OsmProcessor) OnPress(physical, mod keycode.Keycode) {
	p.tracked[physical] = &osmKey{physical: physical, modifier: mod, activatedAt: time.Now(), state: osmPressed}
}

// OnRelease resolves a tracked OSM key: a quick release (under
// TappingTermMS) arms the one-shot and emits the modifier press; a
// long release was acting as a held modifier and emits its release.
func (p *OsmProcessor) OnRelease(physical keycode.Keycode) []Event {
	k, ok := p.tracked[physical]
	if !ok {
		return nil
	}
	delete(p.tracked, physical)

	durationMS := k.elapsedMS()
	if durationMS < int64(p.config.TappingTermMS) {
		k.state = osmActive
		k.activatedAt = time.Now()
		p.active[k.modifier] = k
		return []Event{{k.modifier, true}}
	}
	return []Event{{k.modifier, false}}
}

// OnOtherKeyPress arms every currently-active one-shot for release
// once the triggering key's own events finish (spec §4.5: "consumed by
// the next non-modifier key, not by another one-shot"). Modifier-key
// presses never consume a one-shot.
func (p *OsmProcessor) OnOtherKeyPress(k keycode.Keycode) {
	if k.IsModifier() {
		return
	}
	for _, ok := range p.active {
		if ok.state == osmActive {
			ok.state = osmQueuedRelease
		}
	}
}

// OnOtherKeyRelease releases every one-shot armed by OnOtherKeyPress.
func (p *OsmProcessor) OnOtherKeyRelease(keycode.Keycode) []Event {
	var events []Event
	for mod, k := range p.active {
		if k.state == osmQueuedRelease {
			delete(p.active, mod)
			events = append(events, Event{mod, false})
		}
	}
	return events
}

// CheckTimeouts releases any one-shot that has sat active longer than
// OneshotTimeoutMS with no consuming keypress.
func (p *OsmProcessor) CheckTimeouts() []Event {
	var events []Event
	timeout := int64(p.config.OneshotTimeoutMS)
	for mod, k := range p.active {
		if k.elapsedMS() > timeout {
			delete(p.active, mod)
			events = append(events, Event{mod, false})
		}
	}
	return events
}

// ActiveCount reports the number of armed one-shots, used by the
// `debug` CLI surface.
func (p *OsmProcessor) ActiveCount() int {
	return len(p.active)
}

// IsTracked reports whether physical has an in-flight OSM resolution.
func (p *OsmProcessor) IsTracked(physical keycode.Keycode) bool {
	_, ok := p.tracked[physical]
	return ok
}
