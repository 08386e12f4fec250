package errors

import (
	"errors"
)

// Startup failures. Any of these stops the process before it begins serving.
var (
	// ErrInstrumentationSourceMissing means the compiled BPF object was not found.
	ErrInstrumentationSourceMissing = errors.New("instrumentation program not found")

	// ErrTargetUnspecified means neither a binary path nor a pid was configured.
	ErrTargetUnspecified = errors.New("either a target binary or a target pid must be specified")

	// ErrTargetUnresolved means the target binary could not be located.
	ErrTargetUnresolved = errors.New("target binary could not be resolved")

	// ErrNoProbesAttached means every candidate failed to attach.
	ErrNoProbesAttached = errors.New("no probes attached")
)

// IsStartupFailure reports whether err belongs to the fatal startup taxonomy.
func IsStartupFailure(err error) bool {
	return errors.Is(err, ErrInstrumentationSourceMissing) ||
		errors.Is(err, ErrTargetUnspecified) ||
		errors.Is(err, ErrTargetUnresolved) ||
		errors.Is(err, ErrNoProbesAttached)
}
