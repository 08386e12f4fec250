// Package bpf loads the compiled jitter buffer instrumentation program.
package bpf

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/safe"
)

//go:generate clang -O2 -g -target bpf -D__TARGET_ARCH_x86 -I/usr/include/x86_64-linux-gnu -c c/jitterbuffer_monitor.bpf.c -o jitterbuffer_monitor.bpf.o

// Objects holds the loaded collection and the counter map it writes to.
type Objects struct {
	Collection *ebpf.Collection
	Stats      *ebpf.Map
	Path       string
}

// DefaultObjectPath returns the instrumentation object colocated with the executable.
func DefaultObjectPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), constants.BPFObjectFile), nil
}

// ResolveObjectPath returns path, or the default location when path is empty.
func ResolveObjectPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultObjectPath()
}

// CheckSource verifies the object exists, without loading it.
func CheckSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w at %s", exporterrors.ErrInstrumentationSourceMissing, path)
		}
		return fmt.Errorf("stat instrumentation program %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", exporterrors.ErrInstrumentationSourceMissing, path)
	}
	return nil
}

// LoadSpec reads and parses the object at path.
func LoadSpec(path string) (*ebpf.CollectionSpec, error) {
	data, err := safe.ReadFile(path, &safe.ReadOptions{
		MaxSize:       constants.DefaultMaxObjectSize,
		AllowSymlinks: true,
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", exporterrors.ErrInstrumentationSourceMissing, path)
		}
		return nil, fmt.Errorf("read instrumentation program: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpecFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse instrumentation program %s: %w", path, err)
	}

	if _, ok := spec.Maps[constants.StatsMapName]; !ok {
		return nil, fmt.Errorf("instrumentation program %s has no %q map", path, constants.StatsMapName)
	}

	return spec, nil
}

// Load parses the object at path and loads it into the kernel.
func Load(path string, logger zerolog.Logger) (*Objects, error) {
	spec, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("remove memlock: %w", err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		var verr *ebpf.VerifierError
		if errors.As(err, &verr) {
			logger.Debug().Msgf("Verifier log: %+v", verr)
		}
		return nil, fmt.Errorf("load instrumentation program: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("programs", len(coll.Programs)).
		Int("maps", len(coll.Maps)).
		Msg("Loaded instrumentation program")

	return &Objects{
		Collection: coll,
		Stats:      coll.Maps[constants.StatsMapName],
		Path:       path,
	}, nil
}

// Program returns the program named name, or nil.
func (o *Objects) Program(name string) *ebpf.Program {
	if o == nil || o.Collection == nil {
		return nil
	}
	return o.Collection.Programs[name]
}

// Close releases all programs and maps.
func (o *Objects) Close() error {
	if o == nil || o.Collection == nil {
		return nil
	}
	o.Collection.Close()
	return nil
}
