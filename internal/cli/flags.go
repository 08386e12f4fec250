package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/config"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
)

// commonFlags are shared by every command that needs a target.
type commonFlags struct {
	configFile   string
	binary       string
	pid          int
	bpfObject    string
	libraryPaths []string
	logLevel     string
	logFormat    string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	f.bind(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("binary", "pid")
}

func (f *commonFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.configFile, "config", "", "Config file (default "+constants.DefaultConfigPath+" when present)")
	flags.StringVar(&f.binary, "binary", "", "Path of the binary to instrument")
	flags.IntVar(&f.pid, "pid", 0, "PID of the process to instrument")
	flags.StringVar(&f.bpfObject, "bpf-object", "", "Instrumentation object (default: "+constants.BPFObjectFile+" next to the executable)")
	flags.StringSliceVar(&f.libraryPaths, "library-path", nil, "Shared library to search for stable symbols (repeatable, replaces the built-in list)")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&f.logFormat, "log-format", config.LogFormatPretty, "Log format (pretty, json)")
}

// load reads the configuration file and environment, then applies the flags the
// user set explicitly.
func (f *commonFlags) load(flags *pflag.FlagSet) (*config.Config, error) {
	path, required := f.configFile, true
	if path == "" {
		path, required = constants.DefaultConfigPath, false
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	if flags.Changed("binary") || flags.Changed("pid") {
		// A target on the command line replaces the configured one.
		cfg.Target = config.TargetConfig{Binary: f.binary, PID: f.pid}
	}
	if flags.Changed("bpf-object") {
		cfg.Instrumentation.BPFObject = f.bpfObject
	}
	if flags.Changed("library-path") {
		cfg.Instrumentation.LibraryPaths = f.libraryPaths
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}

	return cfg, nil
}
