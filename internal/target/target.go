// Package target resolves the binary that probes are attached to.
package target

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/sys/proc"
)

// Spec selects the target: exactly one of BinaryPath or PID is set.
type Spec struct {
	BinaryPath string
	PID        int
}

// Target is a resolved instrumentation target.
type Target struct {
	// BinaryPath is the absolute path of the executable image.
	BinaryPath string
	// PID is the process the binary was resolved from, or 0 for a path target.
	PID int
	// ProcessName is the command name of PID, when known.
	ProcessName string
}

// String returns the binary path, annotated with the pid when there is one.
func (t Target) String() string {
	if t.PID > 0 {
		return fmt.Sprintf("%s (pid %d)", t.BinaryPath, t.PID)
	}
	return t.BinaryPath
}

// Resolver maps a pid to its executable path.
type Resolver func(pid int) (string, error)

// Resolve resolves spec using the /proc executable link for pids.
func Resolve(spec Spec, logger zerolog.Logger) (Target, error) {
	return ResolveWith(spec, proc.GetBinaryPath, logger)
}

// ResolveWith resolves spec with a custom pid resolver.
func ResolveWith(spec Spec, resolve Resolver, logger zerolog.Logger) (Target, error) {
	switch {
	case spec.BinaryPath != "":
		path, err := filepath.Abs(spec.BinaryPath)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %s: %v", exporterrors.ErrTargetUnresolved, spec.BinaryPath, err)
		}
		if _, err := os.Stat(path); err != nil {
			return Target{}, fmt.Errorf("%w: %s: %v", exporterrors.ErrTargetUnresolved, path, err)
		}
		return Target{BinaryPath: path}, nil

	case spec.PID > 0:
		path, err := resolve(spec.PID)
		if err != nil {
			return Target{}, fmt.Errorf("%w: pid %d: %v", exporterrors.ErrTargetUnresolved, spec.PID, err)
		}

		t := Target{
			BinaryPath:  path,
			PID:         spec.PID,
			ProcessName: proc.GetProcessName(spec.PID),
		}

		logger.Debug().
			Int("pid", t.PID).
			Str("process", t.ProcessName).
			Str("binary", t.BinaryPath).
			Msg("Resolved target binary from pid")

		return t, nil

	default:
		return Target{}, exporterrors.ErrTargetUnspecified
	}
}
