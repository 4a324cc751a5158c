// Package stats persists the per-user adaptive-timing store: a
// system-wide rolling tap-duration stat for every keycode, sampled on
// every fast release, independent of which keys are configured as
// MT/DT/OSM (spec §4.8).
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fibsussy/keymux/internal/keycode"
	"github.com/fibsussy/keymux/internal/keymap"
)

// fastTapThresholdMS is the fixed cutoff below which a key release is
// folded into its rolling stats, independent of any per-key MT
// tapping_term_ms configuration.
const fastTapThresholdMS = 130.0

// Store is a system-wide, per-keycode adaptive timing tracker. It
// implements keymap.AdaptiveRecorder.
type Store struct {
	mu          sync.Mutex
	allKeyStats map[keycode.Keycode]*keymap.RollingStats
	pressTimes  map[keycode.Keycode]time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		allKeyStats: make(map[keycode.Keycode]*keymap.RollingStats),
		pressTimes:  make(map[keycode.Keycode]time.Time),
	}
}

// RecordKeyPress timestamps a press for later duration measurement.
func (s *Store) RecordKeyPress(k keycode.Keycode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressTimes[k] = time.Now()
}

// RecordKeyRelease folds the press/release duration into k's rolling
// stats when it was a fast tap outside of game mode.
func (s *Store) RecordKeyRelease(k keycode.Keycode, gameModeActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pressedAt, ok := s.pressTimes[k]
	if !ok {
		return
	}
	delete(s.pressTimes, k)

	durationMS := float32(time.Since(pressedAt).Milliseconds())
	if durationMS >= fastTapThresholdMS || gameModeActive {
		return
	}

	entry, ok := s.allKeyStats[k]
	if !ok {
		v := keymap.NewRollingStats(fastTapThresholdMS)
		entry = &v
		s.allKeyStats[k] = entry
	}
	entry.UpdateTap(durationMS, 30)
}

// Snapshot returns a copy of the current per-key stats, used by the
// `adaptive-stats` CLI surface.
func (s *Store) Snapshot() map[keycode.Keycode]keymap.RollingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[keycode.Keycode]keymap.RollingStats, len(s.allKeyStats))
	for k, v := range s.allKeyStats {
		out[k] = *v
	}
	return out
}

// Clear wipes all in-memory stats. It does not touch the file on
// disk, and Save writes nothing for an empty store, so the
// `clear-stats` handler deletes the file itself.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allKeyStats = make(map[keycode.Keycode]*keymap.RollingStats)
}

// Save persists the store to path using merge-on-save: existing
// entries not held in memory (e.g. from a concurrently running
// worker for a different keyboard) are preserved.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.allKeyStats) == 0 {
		return nil
	}

	merged := map[string]keymap.RollingStats{}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &merged)
	}
	for k, v := range s.allKeyStats {
		merged[strings.TrimPrefix(k.Name(), "KC_")] = *v
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load best-effort populates the store from path. A missing file is
// success, matching the original's "no prior stats yet" behavior.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var strMap map[string]keymap.RollingStats
	if err := json.Unmarshal(data, &strMap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.allKeyStats = make(map[keycode.Keycode]*keymap.RollingStats, len(strMap))
	for keyStr, v := range strMap {
		kc, ok := keycode.FromName("KC_" + keyStr)
		if !ok {
			continue
		}
		entry := v
		s.allKeyStats[kc] = &entry
	}
	return nil
}

// UserStatsPath resolves the per-user path for all_key_stats.json:
// ~/.config/keymux under the uid's home directory from the passwd
// database. XDG_CONFIG_HOME is not consulted.
func UserStatsPath(uid int) (string, error) {
	home, err := userHomeDir(uid)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "keymux", "all_key_stats.json"), nil
}

func userHomeDir(uid int) (string, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", fmt.Errorf("resolve home dir for uid %d: %w", uid, err)
	}
	if u.HomeDir == "" {
		return "", fmt.Errorf("no home directory for uid %d", uid)
	}
	return u.HomeDir, nil
}
