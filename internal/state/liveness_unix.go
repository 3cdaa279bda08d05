//go:build unix

package state

import "golang.org/x/sys/unix"

func processExists(pid int) bool {
	// kill with signal 0 checks if process exists without sending signal
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
