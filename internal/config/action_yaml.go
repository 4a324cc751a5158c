package config

import (
	"fmt"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
	"gopkg.in/yaml.v3"
)

// actionYAML decodes one KeyAction (spec §3) from either a bare
// scalar ("KC_ESC", a plain output key) or a mapping with a "type"
// discriminator ({type: mt, tap: KC_A, hold: KC_LGUI}). It resolves
// to a *keymap.Action via Resolve.
type actionYAML struct {
	node yaml.Node
}

func (a *actionYAML) UnmarshalYAML(node *yaml.Node) error {
	a.node = *node
	return nil
}

func (a actionYAML) MarshalYAML() (any, error) {
	if a.node.Kind == 0 {
		return nil, nil
	}
	return &a.node, nil
}

// Resolve converts the decoded node into a runtime Action.
func (a actionYAML) Resolve() (*keymap.Action, error) {
	if a.node.Kind == 0 {
		return nil, nil
	}

	if a.node.Kind == yaml.ScalarNode {
		name := a.node.Value
		if name == "transparent" || name == "" {
			return keymap.TransparentAction(), nil
		}
		kc, ok := keycode.FromName(name)
		if !ok {
			return nil, fmt.Errorf("unknown keycode %q", name)
		}
		return keymap.KeyAction(kc), nil
	}

	if a.node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("action must be a scalar keycode or a mapping, got kind %v", a.node.Kind)
	}

	fields := map[string]*yaml.Node{}
	for i := 0; i+1 < len(a.node.Content); i += 2 {
		fields[a.node.Content[i].Value] = a.node.Content[i+1]
	}

	typ, ok := fields["type"]
	if !ok {
		return nil, fmt.Errorf("action mapping missing \"type\" field")
	}

	decodeSub := func(field string) (*keymap.Action, error) {
		n, ok := fields[field]
		if !ok {
			return nil, fmt.Errorf("action type %q missing field %q", typ.Value, field)
		}
		var sub actionYAML
		if err := n.Decode(&sub); err != nil {
			return nil, err
		}
		return sub.Resolve()
	}

	decodeLayer := func() (keymap.Layer, error) {
		n, ok := fields["layer"]
		if !ok {
			return "", fmt.Errorf("action type %q missing field \"layer\"", typ.Value)
		}
		return keymap.Layer(n.Value), nil
	}

	switch typ.Value {
	case "key":
		return decodeSub("key")
	case "mt":
		tap, err := decodeSub("tap")
		if err != nil {
			return nil, err
		}
		hold, err := decodeSub("hold")
		if err != nil {
			return nil, err
		}
		return keymap.MTAction(tap, hold), nil
	case "hr":
		// HR(key, modifier) is the original's homerow-mod shorthand
		// for a same-key MT(tap=key, hold=modifier) (original_source
		// tests/config_tests.rs: Action::HR(KC_A, KC_LGUI)).
		tap, err := decodeSub("key")
		if err != nil {
			return nil, err
		}
		hold, err := decodeSub("modifier")
		if err != nil {
			return nil, err
		}
		return keymap.MTAction(tap, hold), nil
	case "dt":
		tap, err := decodeSub("tap")
		if err != nil {
			return nil, err
		}
		double, err := decodeSub("double")
		if err != nil {
			return nil, err
		}
		return keymap.DTAction(tap, double), nil
	case "osm":
		mod, err := decodeSub("modifier")
		if err != nil {
			return nil, err
		}
		return keymap.OSMAction(mod), nil
	case "socd":
		self, err := decodeSub("self")
		if err != nil {
			return nil, err
		}
		oppNode, ok := fields["opposing"]
		if !ok {
			return nil, fmt.Errorf("action type \"socd\" missing field \"opposing\"")
		}
		var opposing []*keymap.Action
		for _, n := range oppNode.Content {
			var sub actionYAML
			if err := n.Decode(&sub); err != nil {
				return nil, err
			}
			opp, err := sub.Resolve()
			if err != nil {
				return nil, err
			}
			opposing = append(opposing, opp)
		}
		return keymap.SOCDAction(self, opposing...), nil
	case "to":
		l, err := decodeLayer()
		if err != nil {
			return nil, err
		}
		return keymap.ToAction(l), nil
	case "tg":
		l, err := decodeLayer()
		if err != nil {
			return nil, err
		}
		return keymap.TgAction(l), nil
	case "mo":
		l, err := decodeLayer()
		if err != nil {
			return nil, err
		}
		return keymap.MoAction(l), nil
	case "cmd":
		n, ok := fields["command"]
		if !ok {
			return nil, fmt.Errorf("action type \"cmd\" missing field \"command\"")
		}
		return keymap.CmdAction(n.Value), nil
	case "transparent":
		return keymap.TransparentAction(), nil
	default:
		return nil, fmt.Errorf("unknown action type %q", typ.Value)
	}
}

// resolveRemaps converts a decoded map[string]actionYAML keyed by
// keycode name into the runtime map[keycode.Keycode]*keymap.Action.
func resolveRemaps(in map[string]actionYAML) (map[keycode.Keycode]*keymap.Action, error) {
	out := make(map[keycode.Keycode]*keymap.Action, len(in))
	for name, a := range in {
		kc, ok := keycode.FromName(name)
		if !ok {
			return nil, fmt.Errorf("remap key %q: %w", name, keycode.ErrUnknownKeycode)
		}
		action, err := a.Resolve()
		if err != nil {
			return nil, fmt.Errorf("remap %q: %w", name, err)
		}
		out[kc] = action
	}
	return out, nil
}
