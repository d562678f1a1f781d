// Package procgroup starts external commands in their own process group so a
// cancelled request can take down ffmpeg together with any helpers it forked.
package procgroup

import (
	"os/exec"

	"ffseg/internal/metrics"
)

// Bind puts cmd in a new process group and makes context cancellation kill the
// whole group instead of only the leader.
func Bind(cmd *exec.Cmd) {
	Set(cmd)
	cmd.Cancel = func() error {
		err := Kill(cmd)
		if err != nil {
			metrics.ProcessKills.WithLabelValues("error").Inc()
			return err
		}
		metrics.ProcessKills.WithLabelValues("sent").Inc()
		return nil
	}
}
