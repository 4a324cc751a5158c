package keymap

import "github.com/fibsussy/keymux/internal/keycode"

// socdGroup tracks the held stack for one SOCD group (spec §3/§4.2).
// active is always held_stack's last element.
type socdGroup struct {
	members  []keycode.Keycode
	heldStack []keycode.Keycode
	active   keycode.Keycode
	hasActive bool
}

func (g *socdGroup) has(k keycode.Keycode) bool {
	for _, m := range g.members {
		if m == k {
			return true
		}
	}
	return false
}

func (g *socdGroup) push(k keycode.Keycode) {
	for _, h := range g.heldStack {
		if h == k {
			return
		}
	}
	g.heldStack = append(g.heldStack, k)
}

func (g *socdGroup) remove(k keycode.Keycode) {
	for i, h := range g.heldStack {
		if h == k {
			g.heldStack = append(g.heldStack[:i], g.heldStack[i+1:]...)
			return
		}
	}
}

func (g *socdGroup) top() (keycode.Keycode, bool) {
	if len(g.heldStack) == 0 {
		return 0, false
	}
	return g.heldStack[len(g.heldStack)-1], true
}

// SocdProcessor resolves overlapping presses within configured SOCD
// groups to a last-input-priority single active key per group (spec
// §4.2). Every keycode belongs to at most one group.
type SocdProcessor struct {
	groups    []*socdGroup
	byKeycode map[keycode.Keycode]*socdGroup
}

// NewSocdProcessor builds groups from the configured SOCD actions.
// Each call site (base remaps, every layer's remaps, game-mode remaps)
// contributes its SOCD(self, opposing) pairs; groups sharing any
// keycode are merged.
func NewSocdProcessor(socdActions []*Action) *SocdProcessor {
	p := &SocdProcessor{byKeycode: make(map[keycode.Keycode]*socdGroup)}
	for _, a := range socdActions {
		if a == nil || a.Kind != ActionSOCD || a.Self == nil || a.Self.Kind != ActionKey {
			continue
		}
		members := []keycode.Keycode{a.Self.Key}
		for _, opp := range a.Opposing {
			if opp != nil && opp.Kind == ActionKey {
				members = append(members, opp.Key)
			}
		}
		p.addGroup(members)
	}
	return p
}

func (p *SocdProcessor) addGroup(members []keycode.Keycode) {
	var existing *socdGroup
	for _, m := range members {
		if g, ok := p.byKeycode[m]; ok {
			existing = g
			break
		}
	}
	if existing == nil {
		existing = &socdGroup{}
		p.groups = append(p.groups, existing)
	}
	for _, m := range members {
		if !existing.has(m) {
			existing.members = append(existing.members, m)
		}
		p.byKeycode[m] = existing
	}
}

// HandlePress updates the group owning k (if any) and returns the
// output transition events per the table in spec §4.2.
func (p *SocdProcessor) HandlePress(k keycode.Keycode) []Event {
	g, ok := p.byKeycode[k]
	if !ok {
		return nil
	}
	oldActive, hadActive := g.top()
	g.push(k)
	newActive, hasActive := g.top()
	g.active, g.hasActive = newActive, hasActive
	return socdTransition(oldActive, hadActive, newActive, hasActive)
}

// HandleRelease removes k from its group's held stack and returns the
// resulting transition events.
func (p *SocdProcessor) HandleRelease(k keycode.Keycode) []Event {
	g, ok := p.byKeycode[k]
	if !ok {
		return nil
	}
	oldActive, hadActive := g.top()
	g.remove(k)
	newActive, hasActive := g.top()
	g.active, g.hasActive = newActive, hasActive
	return socdTransition(oldActive, hadActive, newActive, hasActive)
}

func socdTransition(oldK keycode.Keycode, hadOld bool, newK keycode.Keycode, hasNew bool) []Event {
	switch {
	case !hadOld && !hasNew:
		return nil
	case !hadOld && hasNew:
		return []Event{{newK, true}}
	case hadOld && !hasNew:
		return []Event{{oldK, false}}
	case oldK == newK:
		return nil
	default:
		return []Event{{oldK, false}, {newK, true}}
	}
}

// IsManaged reports whether k belongs to any configured SOCD group.
func (p *SocdProcessor) IsManaged(k keycode.Keycode) bool {
	_, ok := p.byKeycode[k]
	return ok
}
