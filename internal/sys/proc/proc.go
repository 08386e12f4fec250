// Package proc resolves information about running processes on Linux systems.
package proc

import (
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// deletedSuffix is appended by the kernel to /proc/<pid>/exe when the binary was replaced.
const deletedSuffix = " (deleted)"

// GetBinaryPath returns the absolute path of the executable image of pid.
func GetBinaryPath(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("invalid pid %d", pid)
	}

	//nolint:gosec // G115: pid is validated positive and fits /proc pid range.
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("process %d: %w", pid, err)
	}

	exe, err := p.Exe()
	if err != nil || exe == "" {
		// Fall back to reading the link directly.
		exe, err = os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
		if err != nil {
			return "", fmt.Errorf("read executable link of pid %d: %w", pid, err)
		}
	}

	return strings.TrimSuffix(exe, deletedSuffix), nil
}

// GetProcessName returns the command name of pid, or "" when it cannot be read.
func GetProcessName(pid int) string {
	//nolint:gosec // G115: pid comes from validated configuration.
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}
