package orchestrator

import (
	"fmt"
	"os"

	"github.com/fibsussy/keymux/internal/config"
	"github.com/fibsussy/keymux/internal/ipc"
	"github.com/fibsussy/keymux/internal/keyboardid"
)

// handleIPC executes req against current orchestrator state. Called
// only from within Run's select loop, so it may read/write o.managed
// and o.userCfgs without any lock beyond what resync/spawnWorker take
// for their own invariants.
func (o *Orchestrator) handleIPC(req ipc.Request) ipc.Response {
	switch req.Type {
	case ipc.ReqPing:
		return ipc.Response{Type: ipc.RespPong}

	case ipc.ReqListKeyboards:
		return o.listKeyboards()

	case ipc.ReqEnableKeyboard, ipc.ReqDisableKeyboard, ipc.ReqToggleKeyboards:
		return o.toggleKeyboard(req)

	case ipc.ReqSetGameMode:
		o.setGameMode(req.GameMode)
		return ipc.Response{Type: ipc.RespOK}

	case ipc.ReqReload:
		if err := o.reloadAll(); err != nil {
			return errResponse(err)
		}
		return ipc.Response{Type: ipc.RespOK}

	case ipc.ReqSaveAdaptiveStats:
		o.mu.Lock()
		defer o.mu.Unlock()
		for _, c := range o.userCfgs {
			if err := c.stats.Save(c.statsPath); err != nil {
				return errResponse(err)
			}
		}
		return ipc.Response{Type: ipc.RespOK}

	case ipc.ReqClearStats:
		o.mu.Lock()
		defer o.mu.Unlock()
		for _, c := range o.userCfgs {
			c.stats.Clear()
			if err := os.Remove(c.statsPath); err != nil && !os.IsNotExist(err) {
				return errResponse(err)
			}
		}
		return ipc.Response{Type: ipc.RespOK}

	case ipc.ReqShutdown:
		o.shutdownAll()
		return ipc.Response{Type: ipc.RespOK}

	default:
		return errResponse(fmt.Errorf("unknown request type %q", req.Type))
	}
}

func errResponse(err error) ipc.Response {
	return ipc.Response{Type: ipc.RespError, Error: err.Error()}
}

func (o *Orchestrator) listKeyboards() ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]ipc.KeyboardInfo, 0, len(o.managed))
	for id, m := range o.managed {
		cfg, ok := o.userCfgs[m.owner]
		enabled := true
		if ok && len(cfg.resolved.EnabledKeyboards) > 0 {
			enabled = cfg.resolved.EnabledKeyboards[string(id)]
		}
		out = append(out, ipc.KeyboardInfo{
			HardwareID: string(id),
			Name:       m.logical.Name,
			DevicePath: m.logical.Paths[0],
			Enabled:    enabled,
			Connected:  true,
		})
	}
	return ipc.Response{Type: ipc.RespKeyboardList, Keyboards: out}
}

// toggleKeyboard flips or sets a keyboard's enabled bit in its
// owner's in-memory Resolved snapshot and immediately resyncs so the
// change takes effect without a full config reload.
func (o *Orchestrator) toggleKeyboard(req ipc.Request) ipc.Response {
	o.mu.Lock()
	m, ok := o.managed[keyboardid.ID(req.HardwareID)]
	if !ok {
		o.mu.Unlock()
		return errResponse(fmt.Errorf("unknown keyboard %q", req.HardwareID))
	}
	cfg, ok := o.userCfgs[m.owner]
	o.mu.Unlock()
	if !ok {
		return errResponse(fmt.Errorf("no config loaded for owner of %q", req.HardwareID))
	}

	switch req.Type {
	case ipc.ReqEnableKeyboard:
		cfg.resolved.EnabledKeyboards[req.HardwareID] = true
	case ipc.ReqDisableKeyboard:
		cfg.resolved.EnabledKeyboards[req.HardwareID] = false
	case ipc.ReqToggleKeyboards:
		cfg.resolved.EnabledKeyboards[req.HardwareID] = !cfg.resolved.EnabledKeyboards[req.HardwareID]
	}

	if err := o.resync(); err != nil {
		return errResponse(err)
	}
	return ipc.Response{Type: ipc.RespOK}
}

// reloadAll first re-reads and validates every loaded user's config
// file; if any fails to load or validate, the reload is aborted and
// every worker keeps running. Otherwise it drops the cached configs,
// cancels every worker one after another and resyncs, rather than
// reconfiguring workers in place (spec §4.10).
func (o *Orchestrator) reloadAll() error {
	o.mu.Lock()
	for uid, c := range o.userCfgs {
		cfg, err := config.Load(c.path)
		var res config.ValidationResult
		if err == nil {
			res, err = config.Validate(cfg)
		}
		if err == nil && !res.OK() {
			err = fmt.Errorf("%d validation error(s)", len(res.Errors))
		}
		if err != nil {
			o.mu.Unlock()
			return fmt.Errorf("reload aborted, config for uid %d: %w", uid, err)
		}
	}
	o.userCfgs = map[uint32]*perUserConfig{}
	for id, m := range o.managed {
		m.cancel()
		delete(o.managed, id)
	}
	o.mu.Unlock()

	o.log.Info("reloading configuration")
	return o.resync()
}
