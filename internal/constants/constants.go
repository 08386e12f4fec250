// Package constants defines shared configuration constants.
package constants

import "time"

var (
	ConfigFile = "config.yaml"

	// DefaultConfigPath is read when no --config flag is given and the file exists.
	DefaultConfigPath = "/etc/jitterbuffer-exporter/" + ConfigFile

	// BPFObjectFile is the compiled instrumentation program shipped next to the executable.
	BPFObjectFile = "jitterbuffer_monitor.bpf.o"

	// StatsMapName is the hash map the instrumentation program writes counters into.
	StatsMapName = "jitterbuffer_stats"

	// MetricsNamespace prefixes every exported series.
	MetricsNamespace = "jitterbuffer"
)

const (
	// DefaultListenAddress binds the exposition endpoint on every interface.
	DefaultListenAddress = "0.0.0.0"

	// DefaultListenPort is the default port for /metrics and /health.
	DefaultListenPort = 9310

	// DefaultCollectionInterval is how often the counter table is translated.
	DefaultCollectionInterval = 5 * time.Second

	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout guards the exposition server against slow clients.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultMaxObjectSize caps the BPF object read from disk (16MB).
	DefaultMaxObjectSize = 16 << 20
)
