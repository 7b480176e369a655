//go:build windows

package nucleo

import (
	"log/slog"
	"syscall"
)

// reusePortControl has no Windows equivalent of SO_REUSEPORT; ReusePort
// is honored on Unix-likes only, and requesting it here just logs a
// warning.
func reusePortControl(log *slog.Logger) func(network, address string, c syscall.RawConn) error {
	if log != nil {
		log.Warn("reuse_port requested but unsupported on windows")
	}
	return nil
}
