//go:build !windows

package nucleo

import (
	"log/slog"
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePortControl returns a net.ListenConfig.Control callback that sets
// SO_REUSEPORT on the listening socket before bind, letting multiple
// processes (or a restarting process) share one port.
func reusePortControl(_ *slog.Logger) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		}); err != nil {
			return err
		}
		return sockErr
	}
}
