// Package ipc implements the daemon/client control-plane protocol
// over a Unix domain socket (spec §6 "IPC"). Framing follows the
// original daemon's ipc.rs exactly (4-byte little-endian length
// prefix, then the payload) but the payload itself is JSON rather
// than bincode: bincode has no mature idiomatic Go equivalent in the
// retrieval pack, and encoding/json already gives Go's tagged-union
// style (a discriminated "type" field) without a third-party
// serializer, so the wire format is intentionally re-specified here
// while the request/response vocabulary is unchanged from the
// original.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/fibsussy/keymux/xdg"
)

// RequestType discriminates Request.
type RequestType string

const (
	ReqPing              RequestType = "ping"
	ReqListKeyboards     RequestType = "list_keyboards"
	ReqToggleKeyboards   RequestType = "toggle_keyboards"
	ReqEnableKeyboard    RequestType = "enable_keyboard"
	ReqDisableKeyboard   RequestType = "disable_keyboard"
	ReqSetGameMode       RequestType = "set_game_mode"
	ReqReload            RequestType = "reload"
	ReqSaveAdaptiveStats RequestType = "save_adaptive_stats"
	ReqClearStats        RequestType = "clear_stats"
	ReqDebugAttach       RequestType = "debug_attach"
	ReqShutdown          RequestType = "shutdown"
)

// Request is a client-to-daemon control message. Only the fields
// relevant to Type are populated.
type Request struct {
	Type       RequestType `json:"type"`
	HardwareID string      `json:"hardware_id,omitempty"`
	GameMode   bool        `json:"game_mode,omitempty"`
}

// ResponseType discriminates Response.
type ResponseType string

const (
	RespPong         ResponseType = "pong"
	RespKeyboardList ResponseType = "keyboard_list"
	RespOK           ResponseType = "ok"
	RespError        ResponseType = "error"
	RespDebugEvent   ResponseType = "debug_event"
)

// KeyboardInfo mirrors the original's IpcResponse::KeyboardList entry
// shape (src/ipc.rs).
type KeyboardInfo struct {
	HardwareID string `json:"hardware_id"`
	Name       string `json:"name"`
	DevicePath string `json:"device_path"`
	Enabled    bool   `json:"enabled"`
	Connected  bool   `json:"connected"`
}

// Response is a daemon-to-client reply. Only the fields relevant to
// Type are populated.
type Response struct {
	Type      ResponseType   `json:"type"`
	Keyboards []KeyboardInfo `json:"keyboards,omitempty"`
	Error     string         `json:"error,omitempty"`
	// DebugEvent fields, populated only when Type == RespDebugEvent
	// (spec supplemented "debug" subcommand, src/debug.rs's live
	// event tap).
	DebugKeyboard string `json:"debug_keyboard,omitempty"`
	DebugKeycode  string `json:"debug_keycode,omitempty"`
	DebugPressed  bool   `json:"debug_pressed,omitempty"`
}

// SocketPath returns the per-user Unix socket path, honoring
// XDG_RUNTIME_DIR the same way the original's get_socket_path does,
// via the teacher's xdg package rather than a manual env lookup.
func SocketPath() (string, error) {
	f, err := xdg.RuntimeFile("keymux/keymux.sock")
	if err != nil {
		return "", fmt.Errorf("ipc.SocketPath: %w", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	return path, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteRequest frames and writes req to w.
func WriteRequest(w io.Writer, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("ipc.WriteRequest: %w", err)
	}
	return writeFrame(w, data)
}

// ReadRequest reads and decodes one framed Request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	data, err := readFrame(r)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("ipc.ReadRequest: %w", err)
	}
	return req, nil
}

// WriteResponse frames and writes resp to w.
func WriteResponse(w io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("ipc.WriteResponse: %w", err)
	}
	return writeFrame(w, data)
}

// ReadResponse reads and decodes one framed Response from r.
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	data, err := readFrame(r)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, fmt.Errorf("ipc.ReadResponse: %w", err)
	}
	return resp, nil
}

// Dial connects to the daemon's control socket.
func Dial() (net.Conn, error) {
	path, err := SocketPath()
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc.Dial: connect to daemon (is it running?): %w", err)
	}
	return conn, nil
}

// Listen binds the daemon's control socket, removing any stale
// socket file left by an unclean prior shutdown, and restricting
// permissions to the owning user (spec §6's socket is per-user under
// the runtime dir, matching the original's 0o600 IpcServer::new).
func Listen() (net.Listener, error) {
	path, err := SocketPath()
	if err != nil {
		return nil, err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc.Listen: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, fmt.Errorf("ipc.Listen: chmod: %w", err)
	}
	return l, nil
}
