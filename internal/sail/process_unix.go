//go:build !windows

package sail

import (
	"os"
	"os/exec"
	"syscall"
)

// processHandle tracks a child started in its own process group so the
// whole tree, docker client and anything it spawned, can be signalled at
// once.
type processHandle struct {
	cmd *exec.Cmd
}

func startProcess(dir, name string, args []string) (*processHandle, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &processHandle{cmd: cmd}, nil
}

func (h *processHandle) requestStop() {
	if pgid, err := syscall.Getpgid(h.cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGTERM)
		return
	}
	_ = h.cmd.Process.Signal(syscall.SIGTERM)
}

func (h *processHandle) forceKill() {
	if pgid, err := syscall.Getpgid(h.cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	_ = h.cmd.Process.Kill()
}
