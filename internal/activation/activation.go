package activation

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Listener returns the systemd-activated listener for this process, or
// nil when no socket activation is in effect. The webhook daemon binds
// its own listener in that case.
func Listener() (net.Listener, error) {
	pidStr := os.Getenv("LISTEN_PID")
	if pidStr == "" {
		return nil, nil
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid LISTEN_PID %q: %w", pidStr, err)
	}
	if pid != os.Getpid() {
		// Activation is meant for a different process.
		return nil, nil
	}

	numFDs, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || numFDs < 1 {
		return nil, nil
	}

	// systemd passes sockets starting at fd 3; the daemon serves a
	// single endpoint, so only the first one is used.
	const firstFD = 3
	file := os.NewFile(uintptr(firstFD), "systemd-socket")
	if file == nil {
		return nil, fmt.Errorf("failed to open fd %d", firstFD)
	}

	listener, err := net.FileListener(file)
	_ = file.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create listener from fd %d: %w", firstFD, err)
	}

	// Unset the activation variables so child processes (git) don't
	// inherit them.
	_ = os.Unsetenv("LISTEN_PID")
	_ = os.Unsetenv("LISTEN_FDS")
	_ = os.Unsetenv("LISTEN_FDNAMES")

	return listener, nil
}
