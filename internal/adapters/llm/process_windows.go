//go:build windows

package llm

import (
	"os/exec"
	"time"
)

// configureProcess relies on the default Process.Kill on cancellation.
func configureProcess(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}
