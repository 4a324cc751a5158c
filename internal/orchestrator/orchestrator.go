// Package orchestrator owns every running device worker: it
// discovers keyboards, assigns ownership to the first active user
// session that enables them, reacts to hotplug/IPC/focus events and a
// periodic session refresh, and is the sole mutator of its own
// owner/config/state (spec §4.10 "Orchestrator"). Config files are
// not watched: a changed config.yaml takes effect on a reload request
// (`keymux reload`). Grounded on
// the original's session_manager.rs (ownership) and
// keyboard_thread.rs (spawn/shutdown), restructured around a single
// select loop instead of the original's OS threads plus mpsc
// channels.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/fibsussy/keymux/internal/config"
	"github.com/fibsussy/keymux/internal/focus"
	"github.com/fibsussy/keymux/internal/hotplug"
	"github.com/fibsussy/keymux/internal/ipc"
	"github.com/fibsussy/keymux/internal/keyboardid"
	"github.com/fibsussy/keymux/internal/session"
	"github.com/fibsussy/keymux/internal/stats"
	"github.com/fibsussy/keymux/internal/worker"
)

// sessionRefreshInterval matches spec §4.10's periodic session
// refresh cadence.
const sessionRefreshInterval = 5 * time.Second

// managedKeyboard is one worker the orchestrator currently owns.
type managedKeyboard struct {
	logical logicalKeyboard
	owner   uint32
	worker  *worker.Worker
	cancel  context.CancelFunc
}

// perUserConfig bundles the resolved config and stats store the
// orchestrator loaded for one active UID.
type perUserConfig struct {
	resolved  *config.Resolved
	statsPath string
	stats     *stats.Store
	path      string
}

// Orchestrator is the daemon's top-level coordinator.
type Orchestrator struct {
	log *log.Logger

	sessions *session.Manager

	mu       sync.Mutex
	managed  map[keyboardid.ID]*managedKeyboard
	userCfgs map[uint32]*perUserConfig
	gameMode bool

	hotplugCh chan hotplug.Event
	focusCh   chan focus.Event
	ipcCh     chan ipcRequest
	configCh  map[uint32]chan struct{}

	predicate focus.Predicate
	debug     *debugHub
}

type ipcRequest struct {
	req  ipc.Request
	resp chan ipc.Response
}

// New constructs an Orchestrator with no workers running yet.
func New(sessions *session.Manager) *Orchestrator {
	return &Orchestrator{
		log:       log.With("component", "orchestrator"),
		sessions:  sessions,
		managed:   map[keyboardid.ID]*managedKeyboard{},
		userCfgs:  map[uint32]*perUserConfig{},
		hotplugCh: make(chan hotplug.Event, 4),
		focusCh:   make(chan focus.Event, 4),
		ipcCh:     make(chan ipcRequest, 4),
		configCh:  map[uint32]chan struct{}{},
		predicate: focus.Predicate{Mode: focus.PredicateNormal, AppIDs: map[string]bool{"gamescope": true}},
		debug:     newDebugHub(),
	}
}

// SubmitIPC hands req to the orchestrator's loop and blocks for a
// response; safe to call from the IPC server's accept goroutine.
func (o *Orchestrator) SubmitIPC(req ipc.Request) ipc.Response {
	respCh := make(chan ipc.Response, 1)
	o.ipcCh <- ipcRequest{req: req, resp: respCh}
	return <-respCh
}

// Run is the orchestrator's single event loop: the sole mutator of
// owner/config/state (spec §4.10). It blocks until ctx is canceled,
// shutting down every worker before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hotplug.Watch(gctx, o.hotplugCh) })
	g.Go(func() error { focus.NiriSource{}.Run(gctx, o.focusCh); return nil })
	g.Go(func() error { o.sessions.Run(gctx); return nil })

	refreshTicker := time.NewTicker(sessionRefreshInterval)
	defer refreshTicker.Stop()

	if err := o.resync(); err != nil {
		o.log.Error("initial resync failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			o.shutdownAll()
			return g.Wait()

		case <-o.hotplugCh:
			o.log.Debug("hotplug settled, resyncing")
			if err := o.resync(); err != nil {
				o.log.Error("resync failed", "err", err)
			}

		case ev := <-o.focusCh:
			active := o.predicate.Evaluate(ev)
			o.setGameMode(active)

		case <-refreshTicker.C:
			if err := o.sessions.Refresh(); err != nil {
				o.log.Error("session refresh failed", "err", err)
			}
			if err := o.resync(); err != nil {
				o.log.Error("resync failed", "err", err)
			}

		case req := <-o.ipcCh:
			req.resp <- o.handleIPC(req.req)
		}
	}
}

// setGameMode propagates a game-mode change to every running worker.
func (o *Orchestrator) setGameMode(active bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if active == o.gameMode {
		return
	}
	o.gameMode = active
	for _, m := range o.managed {
		m.worker.SetGameMode(active)
	}
	o.log.Info("game mode changed", "active", active)
}

// loadUserConfig loads (or returns the cached) config + stats store
// for uid.
func (o *Orchestrator) loadUserConfig(uid uint32) (*perUserConfig, error) {
	if c, ok := o.userCfgs[uid]; ok {
		return c, nil
	}

	statsPath, err := stats.UserStatsPath(int(uid))
	if err != nil {
		return nil, err
	}
	// config.yaml sits beside all_key_stats.json in the user's
	// ~/.config/keymux directory.
	path := filepath.Join(filepath.Dir(statsPath), "config.yaml")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config for uid %d: %w", uid, err)
	}
	resolved, err := config.Resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve config for uid %d: %w", uid, err)
	}

	store := stats.NewStore()
	if err := store.Load(statsPath); err != nil {
		o.log.Warn("failed to load adaptive stats", "uid", uid, "err", err)
	}

	c := &perUserConfig{resolved: resolved, statsPath: statsPath, stats: store, path: path}
	o.userCfgs[uid] = c
	o.applyWindowPredicate(resolved.WindowPredicate)
	return c, nil
}

// applyWindowPredicate adopts a user's persisted `gamemode window`
// choice as the orchestrator's focus predicate. Multi-user predicate
// conflicts are resolved last-write-wins, matching the orchestrator's
// single shared NiriSource.
func (o *Orchestrator) applyWindowPredicate(wp config.WindowPredicate) {
	if wp.Mode == "" {
		return
	}
	appIDs := make(map[string]bool, len(wp.AppIDs))
	for _, id := range wp.AppIDs {
		appIDs[id] = true
	}
	o.predicate = focus.Predicate{Mode: focus.PredicateMode(wp.Mode), AppIDs: appIDs}
}

// resync re-discovers keyboards and reconciles the managed set
// against active users' enabled-keyboards lists: spawn workers for
// newly eligible keyboards, stop workers whose keyboard vanished or
// whose owning session went inactive (spec §4.10 ownership rules,
// first-come-first-serve per session_manager.rs).
func (o *Orchestrator) resync() error {
	discovered, err := discoverKeyboards()
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}

	activeUIDs := o.sessions.ActiveUIDs()

	o.mu.Lock()
	defer o.mu.Unlock()

	for id, m := range o.managed {
		_, stillPresent := discovered[id]
		ownerActive := contains(activeUIDs, m.owner)
		if !stillPresent || !ownerActive {
			o.log.Info("stopping keyboard worker", "keyboard", m.logical.Name, "reason_gone", !stillPresent, "reason_inactive", !ownerActive)
			m.cancel()
			delete(o.managed, id)
		}
	}

	for id, logical := range discovered {
		if _, already := o.managed[id]; already {
			continue
		}

		owner, ok := o.findEnablingOwner(id, activeUIDs)
		if !ok {
			continue
		}

		if err := o.spawnWorker(id, logical, owner); err != nil {
			o.log.Error("failed to spawn worker", "keyboard", logical.Name, "err", err)
		}
	}
	return nil
}

// findEnablingOwner returns the first active UID whose config both
// leaves this keyboard enabled (empty enabled_keyboards list means
// all keyboards are enabled) and doesn't already own a different
// keyboard claim of the same ID (ownership is per KeyboardId so this
// is naturally exclusive).
func (o *Orchestrator) findEnablingOwner(id keyboardid.ID, activeUIDs []uint32) (uint32, bool) {
	for _, uid := range activeUIDs {
		cfg, err := o.loadUserConfig(uid)
		if err != nil {
			o.log.Warn("skipping uid: config load failed", "uid", uid, "err", err)
			continue
		}
		if len(cfg.resolved.EnabledKeyboards) == 0 || cfg.resolved.EnabledKeyboards[string(id)] {
			return uid, true
		}
	}
	return 0, false
}

func (o *Orchestrator) spawnWorker(id keyboardid.ID, logical logicalKeyboard, owner uint32) error {
	cfg, err := o.loadUserConfig(owner)
	if err != nil {
		return err
	}

	proc := cfg.resolved.NewProcessor(string(id))
	// A multi-interface keyboard (e.g. boot + HID) only needs one
	// worker on its primary event path: the path with the lowest
	// eventN number (see discoverKeyboards).
	path := logical.Paths[0]

	w, err := worker.New(path, logical.Name, proc, cfg.stats, cfg.statsPath)
	if err != nil {
		return err
	}
	w.SetGameMode(o.gameMode)
	name := logical.Name
	w.SetDebugSink(func(keyName string, pressed bool) {
		o.debug.Publish(name, keyName, pressed)
	})

	ctx, cancel := context.WithCancel(context.Background())
	o.managed[id] = &managedKeyboard{logical: logical, owner: owner, worker: w, cancel: cancel}

	go func() {
		if err := w.Run(ctx); err != nil {
			o.log.Error("worker exited with error", "keyboard", logical.Name, "err", err)
		}
	}()

	o.log.Info("spawned keyboard worker", "keyboard", logical.Name, "id", string(id), "owner", owner)
	return nil
}

func (o *Orchestrator) shutdownAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, m := range o.managed {
		m.cancel()
		delete(o.managed, id)
	}
}

func contains(xs []uint32, x uint32) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
