//go:build windows

package config

import "os"

// isProcessAlive reports whether a process with the given PID exists.
// os.FindProcess never fails on Windows for valid handles and Signal(0)
// is unsupported there, so this stays a best-effort check.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
