package config

import (
	"errors"
	"fmt"
	"strings"

	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
)

// Validate checks cfg for a runnable combination of settings.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Target.Binary == "" && c.Target.PID == 0:
		errs = append(errs, exporterrors.ErrTargetUnspecified)
	case c.Target.Binary != "" && c.Target.PID != 0:
		errs = append(errs, fmt.Errorf("target: binary and pid are mutually exclusive"))
	case c.Target.PID < 0:
		errs = append(errs, fmt.Errorf("target: pid %d must be positive", c.Target.PID))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: port %d out of range 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server: shutdown_timeout must be positive"))
	}

	if c.Collection.Interval <= 0 {
		errs = append(errs, fmt.Errorf("collection: interval must be positive, got %s", c.Collection.Interval))
	}

	switch strings.ToLower(c.Logging.Format) {
	case LogFormatPretty, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q (want %s or %s)",
			c.Logging.Format, LogFormatPretty, LogFormatJSON))
	}

	return errors.Join(errs...)
}
