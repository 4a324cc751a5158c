// Package session tracks which user sessions are active, replacing
// the original daemon's `loginctl` subprocess shell-out
// (session_manager.rs's list_user_sessions/get_session_uid/
// is_session_active) with the idiomatic Go binding for
// org.freedesktop.login1 over the system D-Bus, grounded on
// writerslogic-witnessd's manifest (the pack repo that pulls in
// github.com/godbus/dbus/v5 for the same session/login
// introspection).
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"
)

// refreshInterval matches spec §4.10's "periodic session refresh".
const refreshInterval = 5 * time.Second

// State mirrors the original's SessionState enum.
type State int

const (
	StateIdle State = iota
	StateActive
)

// Info mirrors the original's UserSession.
type Info struct {
	UID      uint32
	Username string
	State    State
}

// Manager tracks active sessions, refreshed from logind over D-Bus.
// Unlike the original's request/release keyboard-ownership bookkeeping
// (left to the orchestrator, which already owns the
// keyboard-to-worker map), Manager's sole job is answering "is this
// UID active right now".
type Manager struct {
	conn     *dbus.Conn
	sessions map[uint32]Info
}

// New connects to the system bus.
func New() (*Manager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("session.New: connect to system bus: %w", err)
	}
	return &Manager{conn: conn, sessions: map[uint32]Info{}}, nil
}

// Close releases the bus connection.
func (m *Manager) Close() error {
	return m.conn.Close()
}

// Refresh re-lists sessions from logind and rebuilds the active-UID
// set, mirroring refresh_sessions's "update existing, drop sessions
// no longer active" semantics.
func (m *Manager) Refresh() error {
	obj := m.conn.Object("org.freedesktop.login1", dbus.ObjectPath("/org/freedesktop/login1"))

	var sessions [][]any
	if err := obj.Call("org.freedesktop.login1.Manager.ListSessions", 0).Store(&sessions); err != nil {
		return fmt.Errorf("session.Refresh: ListSessions: %w", err)
	}

	next := make(map[uint32]Info, len(sessions))
	for _, s := range sessions {
		if len(s) < 5 {
			continue
		}
		uid, ok := s[1].(uint32)
		if !ok {
			continue
		}
		username, _ := s[2].(string)
		sessionPath, ok := s[4].(dbus.ObjectPath)
		if !ok {
			continue
		}

		state := StateIdle
		if active, err := m.sessionActive(sessionPath); err == nil && active {
			state = StateActive
		}

		// First-come-first-serve across a user's multiple sessions:
		// any active session promotes the whole UID to active.
		if existing, ok := next[uid]; !ok || (state == StateActive && existing.State != StateActive) {
			next[uid] = Info{UID: uid, Username: username, State: state}
		}
	}

	m.sessions = next
	return nil
}

func (m *Manager) sessionActive(path dbus.ObjectPath) (bool, error) {
	obj := m.conn.Object("org.freedesktop.login1", path)
	v, err := obj.GetProperty("org.freedesktop.login1.Session.State")
	if err != nil {
		return false, err
	}
	state, _ := v.Value().(string)
	// "active", "online", "lingering" are all treated as active,
	// matching the original's is_session_active match arm.
	return state == "active" || state == "online" || state == "lingering", nil
}

// IsActive reports whether uid currently owns an active session.
func (m *Manager) IsActive(uid uint32) bool {
	s, ok := m.sessions[uid]
	return ok && s.State == StateActive
}

// ActiveUIDs returns every UID with at least one active session.
func (m *Manager) ActiveUIDs() []uint32 {
	var out []uint32
	for uid, s := range m.sessions {
		if s.State == StateActive {
			out = append(out, uid)
		}
	}
	return out
}

// Run periodically refreshes sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	logger := log.With("component", "session")
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	if err := m.Refresh(); err != nil {
		logger.Error("initial session refresh failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Refresh(); err != nil {
				logger.Error("session refresh failed", "err", err)
			}
		}
	}
}
