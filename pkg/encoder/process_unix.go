//go:build !windows

package encoder

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcAttr puts the encoder into its own process group
// so a terminal Ctrl+C reaches only us and we drain it with stdin.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) error { return p.Signal(syscall.SIGTERM) }
