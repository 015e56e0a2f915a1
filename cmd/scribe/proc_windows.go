//go:build windows

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// detachedProcess is DETACHED_PROCESS from the Win32 process creation flags
const detachedProcess = 0x00000008

// configureDaemonProcess starts scribed without a console and outside the
// launcher's process group
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}

// stopDaemonProcess kills scribed; Windows cannot deliver SIGTERM to a
// detached process
func stopDaemonProcess(p *os.Process) error {
	return p.Kill()
}
