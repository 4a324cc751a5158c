package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/ipc"
	"github.com/fibsussy/keymux/internal/orchestrator"
	"github.com/fibsussy/keymux/internal/session"
)

// streamDebug keeps conn open, relaying every published debug event
// until the client disconnects or the daemon shuts down.
func streamDebug(ctx context.Context, conn net.Conn, o *orchestrator.Orchestrator, logger *log.Logger) {
	ch, detach := o.AttachDebug()
	defer detach()

	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-ch:
			if !ok {
				return
			}
			if err := ipc.WriteResponse(conn, resp); err != nil {
				logger.Debug("debug stream client gone", "err", err)
				return
			}
		}
	}
}

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the keymux daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
	return cmd
}

// runDaemon wires the orchestrator's event loop to the control
// socket and an OS signal for graceful shutdown, grounded on the
// original's main() spawning the session manager, niri source, and
// IPC server side by side.
func runDaemon(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.With("component", "daemon")

	sessions, err := session.New()
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	defer sessions.Close()

	o := orchestrator.New(sessions)

	listener, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	defer listener.Close()

	go acceptIPC(ctx, listener, o, logger)

	logger.Info("keymux daemon starting")
	if err := o.Run(ctx); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	logger.Info("keymux daemon stopped")
	return nil
}

// acceptIPC serves one request per connection, handing each to the
// orchestrator's own loop via SubmitIPC so the loop remains the sole
// mutator of its state (spec §4.10).
func acceptIPC(ctx context.Context, l net.Listener, o *orchestrator.Orchestrator, logger *log.Logger) {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("ipc accept failed", "err", err)
			continue
		}
		go func() {
			defer conn.Close()
			req, err := ipc.ReadRequest(conn)
			if err != nil {
				return
			}

			if req.Type == ipc.ReqDebugAttach {
				streamDebug(ctx, conn, o, logger)
				return
			}

			resp := o.SubmitIPC(req)
			if err := ipc.WriteResponse(conn, resp); err != nil {
				logger.Error("ipc write response failed", "err", err)
			}
		}()
	}
}
