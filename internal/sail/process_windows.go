//go:build windows

package sail

import (
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// processHandle tracks a child and the job object it is assigned to. The
// job is configured to kill every process in it when the handle closes, so
// the docker client cannot leave grandchildren behind.
type processHandle struct {
	cmd *exec.Cmd
	job windows.Handle
}

func startProcess(dir, name string, args []string) (*processHandle, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	h := &processHandle{cmd: cmd}
	if job, err := createJobObject(); err == nil {
		if err := assignProcessToJob(job, cmd.Process.Pid); err == nil {
			h.job = job
		} else {
			_ = windows.CloseHandle(job)
		}
	}
	return h, nil
}

func createJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(job, windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)), uint32(unsafe.Sizeof(info))); err != nil {
		_ = windows.CloseHandle(job)
		return 0, err
	}
	return job, nil
}

func assignProcessToJob(job windows.Handle, pid int) error {
	proc, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(proc)
	return windows.AssignProcessToJobObject(job, proc)
}

func (h *processHandle) requestStop() {
	// No SIGTERM on Windows; a console ctrl event is the graceful analog
	// for a process started in its own group.
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(h.cmd.Process.Pid)); err != nil {
		h.forceKill()
	}
}

func (h *processHandle) forceKill() {
	if h.job != 0 {
		_ = windows.CloseHandle(h.job)
		h.job = 0
		return
	}
	_ = h.cmd.Process.Kill()
}
