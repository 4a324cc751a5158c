package orchestrator

import (
	"sync"

	"github.com/fibsussy/keymux/internal/ipc"
)

// debugHub fans out every worker's processed key events to attached
// `keymux debug` clients (src/debug.rs's live event tap). It has its
// own lock, separate from Orchestrator.mu, since workers publish from
// their own goroutines concurrently with the orchestrator's loop.
type debugHub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan ipc.Response
}

func newDebugHub() *debugHub {
	return &debugHub{subs: map[int]chan ipc.Response{}}
}

// Attach registers a new subscriber and returns its channel plus a
// detach function the caller must invoke when done.
func (h *debugHub) Attach() (<-chan ipc.Response, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan ipc.Response, 16)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			close(c)
			delete(h.subs, id)
		}
	}
}

// Publish broadcasts one decoded key event to every attached
// subscriber, dropping it for any subscriber whose buffer is full
// rather than blocking a worker's hot path.
func (h *debugHub) Publish(keyboard, keycodeName string, pressed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	resp := ipc.Response{
		Type:          ipc.RespDebugEvent,
		DebugKeyboard: keyboard,
		DebugKeycode:  keycodeName,
		DebugPressed:  pressed,
	}
	for _, ch := range h.subs {
		select {
		case ch <- resp:
		default:
		}
	}
}

// AttachDebug exposes the hub to external callers (the IPC server's
// accept loop keeps streaming responses from the returned channel
// until the client disconnects).
func (o *Orchestrator) AttachDebug() (<-chan ipc.Response, func()) {
	return o.debug.Attach()
}
