package main

import (
	"fmt"

	"github.com/fibsussy/keymux/internal/ipc"
)

// roundTrip dials the daemon, writes one request, and reads back the
// matching response -- the client side of spec §6's IPC protocol.
func roundTrip(req ipc.Request) (ipc.Response, error) {
	conn, err := ipc.Dial()
	if err != nil {
		return ipc.Response{}, err
	}
	defer conn.Close()

	if err := ipc.WriteRequest(conn, req); err != nil {
		return ipc.Response{}, fmt.Errorf("send request: %w", err)
	}
	resp, err := ipc.ReadResponse(conn)
	if err != nil {
		return ipc.Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.Type == ipc.RespError {
		return resp, fmt.Errorf("daemon: %s", resp.Error)
	}
	return resp, nil
}
