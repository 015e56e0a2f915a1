//go:build unix

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// configureDaemonProcess starts scribed in its own session so it survives
// the terminal that launched it
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// stopDaemonProcess asks scribed to shut down gracefully
func stopDaemonProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
