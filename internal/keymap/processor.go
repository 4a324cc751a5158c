package keymap

import (
	"os/exec"

	"github.com/fibsussy/keymux/internal/keycode"
)

type heldKind int

const (
	heldRegularKey heldKind = iota
	heldLayer
	heldMtManaged
	heldSocdManaged
	heldDtManaged
	heldOsmManaged
)

type heldEntry struct {
	kind  heldKind
	key   keycode.Keycode
	layer Layer
}

// AdaptiveRecorder observes raw key presses/releases for the stats
// store (spec §4.8). A Processor with no recorder attached simply
// skips recording.
type AdaptiveRecorder interface {
	RecordKeyPress(k keycode.Keycode)
	RecordKeyRelease(k keycode.Keycode, gameModeActive bool)
}

// Processor composes the layer stack and the MT/DT/OSM/SOCD resolvers
// into a single press/release dispatch (spec §4 "Keymap processor").
// It is the Go analogue of the original daemon's KeymapProcessor +
// KeyAction::handle dispatch.
type Processor struct {
	held   map[keycode.Keycode][]heldEntry
	layers *LayerStack
	mt     *MtProcessor
	dt     *DtProcessor
	osm    *OsmProcessor
	socd   *SocdProcessor

	adaptive AdaptiveRecorder
}

// NewProcessor builds a processor over the given layer stack and
// resolver configs. socdActions is every SOCD action reachable from
// the base remaps, every layer's remaps, and the game-mode remaps.
func NewProcessor(layers *LayerStack, mtCfg MtConfig, dtCfg DtConfig, osmCfg OsmConfig, socdActions []*Action) *Processor {
	p := &Processor{
		held:   make(map[keycode.Keycode][]heldEntry),
		layers: layers,
		mt:     NewMtProcessor(mtCfg),
		dt:     NewDtProcessor(dtCfg),
		osm:    NewOsmProcessor(osmCfg),
		socd:   NewSocdProcessor(socdActions),
	}
	p.dt.SetEmitter(p)
	return p
}

// SetAdaptiveRecorder attaches a stats sink; pass nil to detach.
func (p *Processor) SetAdaptiveRecorder(r AdaptiveRecorder) {
	p.adaptive = r
}

// SetGameMode propagates the game-mode toggle to every component that
// changes behavior under it: the layer overlay and MT's adaptive
// learning pause (spec invariant 7).
func (p *Processor) SetGameMode(active bool) {
	p.layers.SetGameMode(active)
	p.mt.SetGameMode(active)
}

// Mt, Dt, Osm, Socd and Layers expose the underlying resolvers; no
// package outside keymap calls them.
func (p *Processor) Mt() *MtProcessor     { return p.mt }
func (p *Processor) Dt() *DtProcessor     { return p.dt }
func (p *Processor) Osm() *OsmProcessor   { return p.osm }
func (p *Processor) Socd() *SocdProcessor { return p.socd }
func (p *Processor) Layers() *LayerStack  { return p.layers }

// HeldKeys returns the physical keycodes currently tracked as held.
// The `debug` command does not use it; it shows emitted output events.
func (p *Processor) HeldKeys() []keycode.Keycode {
	out := make([]keycode.Keycode, 0, len(p.held))
	for k := range p.held {
		out = append(out, k)
	}
	return out
}

// CheckTimeouts polls DT and OSM for expired ambiguity windows,
// returning any resulting events. Must be called regularly from the
// device worker's event loop even when no input is pending, matching
// the original's non-blocking poll-driven design (spec §4.9).
func (p *Processor) CheckTimeouts() []Event {
	var events []Event
	events = append(events, p.dt.CheckTimeouts()...)
	events = append(events, p.osm.CheckTimeouts()...)
	return events
}

// ProcessKey is the single entry point for a physical key transition.
func (p *Processor) ProcessKey(k keycode.Keycode, pressed bool) []Event {
	if pressed {
		return p.processPress(k)
	}
	return p.processRelease(k)
}

func (p *Processor) processPress(k keycode.Keycode) []Event {
	if p.adaptive != nil {
		p.adaptive.RecordKeyPress(k)
	}

	dtTimeoutEvents := p.dt.CheckTimeouts()
	dtPermissiveEvents := p.dt.OnOtherKeyPress(k)

	action := p.layers.LookupAction(k)

	// A press of any key other than an OSM trigger itself arms every
	// currently-active one-shot for release (spec §4.5: "Each
	// subsequent press of a non-modifier key marks all active
	// one-shots for release"); OsmProcessor.OnOtherKeyPress applies
	// the non-modifier filter itself. action is nil for a known but
	// unmapped keycode (layer fall-through with no base remap).
	if action == nil || action.Kind != ActionOSM {
		p.osm.OnOtherKeyPress(k)
	}

	var result []Event
	var entry *heldEntry

	switch {
	case action.IsTransparent():
		result, entry = p.emitPlainKey(k)

	case action.Kind == ActionDT:
		result = p.dt.OnPress(k, action.Tap, action.Double)
		entry = &heldEntry{kind: heldDtManaged, key: k}

	case action.Kind == ActionMT:
		tapKey, _ := extractKeycode(action.Tap)
		holdKey, _ := extractKeycode(action.Hold)
		result = p.mt.HandlePress(k, tapKey, holdKey)
		entry = &heldEntry{kind: heldMtManaged, key: k}

	case action.Kind == ActionOSM:
		modKey, ok := extractKeycode(action.Modifier)
		if ok {
			p.osm.OnPress(k, modKey)
		}
		entry = &heldEntry{kind: heldOsmManaged, key: k}

	case action.Kind == ActionSOCD:
		selfKey, ok := extractKeycode(action.Self)
		if ok {
			result = p.socd.HandlePress(selfKey)
		}
		entry = &heldEntry{kind: heldSocdManaged, key: k}

	case action.Kind == ActionTO:
		p.layers.ActivateLayer(action.Layer)
		entry = &heldEntry{kind: heldLayer, key: k, layer: action.Layer}

	case action.Kind == ActionTG:
		p.layers.ToggleLayer(action.Layer)
		entry = &heldEntry{kind: heldLayer, key: k, layer: action.Layer}

	case action.Kind == ActionMO:
		p.layers.ActivateLayer(action.Layer)
		entry = &heldEntry{kind: heldLayer, key: k, layer: action.Layer}

	case action.Kind == ActionCMD:
		runCommand(action.Command)

	case action.Kind == ActionKey:
		result, entry = p.emitKey(k, action.Key)
	}

	if entry != nil {
		p.held[k] = append(p.held[k], *entry)
	}

	return combineWithTimeouts(append(dtTimeoutEvents, dtPermissiveEvents...), result)
}

func (p *Processor) processRelease(k keycode.Keycode) []Event {
	dtTimeoutEvents := p.dt.CheckTimeouts()

	entries, tracked := p.held[k]
	if !tracked {
		return dtTimeoutEvents
	}
	delete(p.held, k)

	var events []Event
	osmManaged := false
	for _, entry := range entries {
		switch entry.kind {
		case heldRegularKey:
			events = append(events, Event{entry.key, false})
		case heldLayer:
			p.layers.DeactivateLayer(entry.layer)
		case heldMtManaged:
			if r, ok := p.mt.HandleRelease(k); ok {
				events = append(events, r.Events()...)
			}
		case heldSocdManaged:
			events = append(events, p.socd.HandleRelease(k)...)
		case heldDtManaged:
			events = append(events, p.dt.OnRelease(k)...)
		case heldOsmManaged:
			events = append(events, p.osm.OnRelease(k)...)
			osmManaged = true
		}
	}

	// The release half of whatever press armed one-shots above (any
	// key except an OSM trigger's own release) finalizes them.
	if !osmManaged {
		events = append(events, p.osm.OnOtherKeyRelease(k)...)
	}

	if p.adaptive != nil {
		p.adaptive.RecordKeyRelease(k, p.layers.IsGameModeActive())
	}

	return combineWithTimeouts(dtTimeoutEvents, events)
}

// emitKey is the plain Key() action path: other pending MT keys
// observe this press first (permissive-hold style), then the key
// itself emits.
func (p *Processor) emitKey(physical, output keycode.Keycode) ([]Event, *heldEntry) {
	events := eventsFromResolutions(p.mt.OnOtherKeyPressForResolutions(output))
	events = append(events, Event{output, true})
	return events, &heldEntry{kind: heldRegularKey, key: output}
}

// emitPlainKey is used when a physical key has no remap at all: it
// emits itself unchanged (spec §4.6 base-layer fallback).
func (p *Processor) emitPlainKey(k keycode.Keycode) ([]Event, *heldEntry) {
	return p.emitKey(k, k)
}

// EmitPress implements ActionEmitter: it lets DtProcessor's resolved
// inner action re-enter the processor's own dispatch instead of only
// handling the plain Key case (spec §4.4, §9 "Nested tagged actions").
// physical is the tap-dance key's own physical keycode, reused as the
// tracking key for whatever sub-resolver the inner action needs.
func (p *Processor) EmitPress(physical keycode.Keycode, a *Action) []Event {
	switch {
	case a == nil:
		return nil
	case a.Kind == ActionKey:
		return []Event{{a.Key, true}}
	case a.Kind == ActionMT:
		tapKey, _ := extractKeycode(a.Tap)
		holdKey, _ := extractKeycode(a.Hold)
		return p.mt.HandlePress(physical, tapKey, holdKey)
	case a.Kind == ActionOSM:
		modKey, ok := extractKeycode(a.Modifier)
		if ok {
			p.osm.OnPress(physical, modKey)
		}
		return nil
	case a.Kind == ActionSOCD:
		selfKey, ok := extractKeycode(a.Self)
		if ok {
			return p.socd.HandlePress(selfKey)
		}
		return nil
	}
	return nil
}

// EmitRelease is EmitPress's release-side counterpart.
func (p *Processor) EmitRelease(physical keycode.Keycode, a *Action) []Event {
	switch {
	case a == nil:
		return nil
	case a.Kind == ActionKey:
		return []Event{{a.Key, false}}
	case a.Kind == ActionMT:
		if r, ok := p.mt.HandleRelease(physical); ok {
			return r.Events()
		}
		return nil
	case a.Kind == ActionOSM:
		return p.osm.OnRelease(physical)
	case a.Kind == ActionSOCD:
		selfKey, ok := extractKeycode(a.Self)
		if ok {
			return p.socd.HandleRelease(selfKey)
		}
		return nil
	}
	return nil
}

func extractKeycode(a *Action) (keycode.Keycode, bool) {
	if a == nil || a.Kind != ActionKey {
		return 0, false
	}
	return a.Key, true
}

// runCommand fires an external command and does not wait for or
// report its outcome, mirroring CMD()'s fire-and-forget semantics
// (spec §4 "external command action").
func runCommand(command string) {
	if command == "" {
		return
	}
	cmd := exec.Command("/bin/sh", "-c", command)
	_ = cmd.Start()
}

func combineWithTimeouts(timeoutEvents, result []Event) []Event {
	if len(timeoutEvents) == 0 {
		return result
	}
	return append(timeoutEvents, result...)
}
