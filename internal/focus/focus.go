// Package focus is the pluggable window-focus source spec §1 keeps
// explicitly external to the engine: a Source reports focus-change
// events, and a PredicateMode decides whether a given event should
// enable game mode. The only concrete Source here mirrors the
// original daemon's niri.rs compositor integration; other
// compositors are a new Source implementation away.
package focus

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Event is a focus change; AppID is empty when no window is focused
// or the compositor didn't report one.
type Event struct {
	AppID string
}

// Source produces focus-change events until ctx is canceled.
type Source interface {
	Run(ctx context.Context, out chan<- Event)
}

// PredicateMode controls how an Event maps to a game-mode decision
// (spec supplemented feature: `keymux gamemode window ...`, mirroring
// src/niri.rs's should_enable_gamemode plus the original's invert/
// toggle-invert/always-on/always-off CLI modes named in SPEC_FULL).
type PredicateMode string

const (
	PredicateNormal       PredicateMode = "normal"
	PredicateInvert       PredicateMode = "invert"
	PredicateToggleInvert PredicateMode = "toggle-invert"
	PredicateAlwaysOn     PredicateMode = "always-on"
	PredicateAlwaysOff    PredicateMode = "always-off"
)

// Predicate decides whether game mode should be active for the given
// event, under the given app-id allowlist (the set of app IDs that
// trigger game mode in Normal/Invert modes) and mode.
type Predicate struct {
	Mode     PredicateMode
	AppIDs   map[string]bool
	inverted bool // toggled state for PredicateToggleInvert
}

// Evaluate returns whether game mode should be active after ev.
func (p *Predicate) Evaluate(ev Event) bool {
	matches := p.AppIDs[ev.AppID]

	switch p.Mode {
	case PredicateAlwaysOn:
		return true
	case PredicateAlwaysOff:
		return false
	case PredicateInvert:
		return !matches
	case PredicateToggleInvert:
		if matches {
			p.inverted = !p.inverted
		}
		return matches != p.inverted
	default: // PredicateNormal
		return matches
	}
}

// NiriSource polls niri's event stream for window-focus-changed
// lines, translated from the original's thread + mpsc::Sender loop
// (src/niri.rs) into a goroutine writing to a Go channel, with the
// same 5-second respawn backoff on stream failure.
type NiriSource struct{}

// Run implements Source.
func (NiriSource) Run(ctx context.Context, out chan<- Event) {
	logger := log.With("component", "focus", "source", "niri")

	for {
		if ctx.Err() != nil {
			return
		}

		if err := niriStreamOnce(ctx, out, logger); err != nil {
			logger.Error("niri event stream ended", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func niriStreamOnce(ctx context.Context, out chan<- Event, logger *log.Logger) error {
	cmd := exec.CommandContext(ctx, "niri", "msg", "event-stream")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	defer cmd.Wait()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Window focus changed:") {
			continue
		}
		appID := focusedWindowAppID(ctx)
		logger.Info("focus changed", "app_id", appID)
		select {
		case out <- Event{AppID: appID}:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}

// focusedWindowAppID shells out to `niri msg focused-window`, parsing
// the `App ID: "..."` line exactly as the original's
// get_focused_window_app_id does.
func focusedWindowAppID(ctx context.Context) string {
	output, err := exec.CommandContext(ctx, "niri", "msg", "focused-window").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "App ID:"); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`)
		}
	}
	return ""
}
