//go:build !windows

package llm

import (
	"os/exec"
	"syscall"
	"time"
)

// configureProcess runs the command in its own process group and kills the
// whole group on cancellation, so helper processes spawned by the CLI do not
// outlive the turn.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if err == syscall.ESRCH {
			return nil
		}
		return err
	}
	cmd.WaitDelay = 2 * time.Second
}
