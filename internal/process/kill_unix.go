//go:build !windows

// Package process terminates browser process trees left behind by the launcher.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// renderer and GPU children down with the browser. Non-positive pids are
// ignored: -0 would target the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; the launcher's own Kill runs afterwards.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
