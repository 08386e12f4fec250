// Package probe attaches the instrumentation handlers to candidate functions.
package probe

import (
	"context"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/catalog"
	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/safe"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/target"
)

// Executable attaches probes to symbols of one file.
// *link.Executable satisfies it.
type Executable interface {
	Uprobe(symbol string, prog *ebpf.Program, opts *link.UprobeOptions) (link.Link, error)
	Uretprobe(symbol string, prog *ebpf.Program, opts *link.UprobeOptions) (link.Link, error)
}

// Opener opens a file for probe attachment.
type Opener func(path string) (Executable, error)

// OpenExecutable opens path with cilium/ebpf.
func OpenExecutable(path string) (Executable, error) {
	return link.OpenExecutable(path)
}

// Programs looks up loaded handler programs by name.
type Programs interface {
	Program(name string) *ebpf.Program
}

// Config contains the dependencies of an Attacher.
type Config struct {
	// Programs provides the handler programs. Required.
	Programs Programs

	// Catalog lists the candidates. Zero value means catalog.Default().
	Catalog catalog.Catalog

	// Open defaults to OpenExecutable.
	Open Opener

	// Symbols defaults to a new ELFResolver.
	Symbols SymbolResolver

	// Exists reports library presence; defaults to safe.Exists.
	Exists catalog.PathExists

	Logger zerolog.Logger
}

// Attacher walks the candidate plan and attaches every candidate it can.
type Attacher struct {
	programs Programs
	catalog  catalog.Catalog
	open     Opener
	symbols  SymbolResolver
	exists   catalog.PathExists
	logger   zerolog.Logger
}

// New creates an Attacher.
func New(cfg Config) (*Attacher, error) {
	if cfg.Programs == nil {
		return nil, fmt.Errorf("programs are required")
	}

	a := &Attacher{
		programs: cfg.Programs,
		catalog:  cfg.Catalog,
		open:     cfg.Open,
		symbols:  cfg.Symbols,
		exists:   cfg.Exists,
		logger:   cfg.Logger.With().Str("component", "probe").Logger(),
	}
	if a.catalog.Stable == nil && a.catalog.Legacy == nil {
		a.catalog = catalog.Default().WithLibraryPaths(cfg.Catalog.LibraryPaths)
	}
	if a.open == nil {
		a.open = OpenExecutable
	}
	if a.symbols == nil {
		a.symbols = NewELFResolver()
	}
	if a.exists == nil {
		a.exists = safe.Exists
	}

	return a, nil
}

// Plan returns the candidates for binary and the library paths left out.
func (a *Attacher) Plan(binary string) ([]catalog.Candidate, []catalog.Skipped) {
	return a.catalog.Plan(binary, a.exists)
}

// Attach tries every candidate of the plan for t. Failures of individual candidates
// are recorded in the set's results; an error is returned only when nothing attached
// or ctx was cancelled.
func (a *Attacher) Attach(ctx context.Context, t target.Target) (*AttachedSet, error) {
	candidates, skipped := a.Plan(t.BinaryPath)
	for _, s := range skipped {
		a.logger.Debug().Str("path", s.Path).Msg("Library not found, skipping")
	}

	set := &AttachedSet{}
	executables := make(map[string]openResult)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			set.Close() // nolint:errcheck
			return nil, err
		}

		exe, ok := executables[c.Target]
		if !ok {
			exe.exe, exe.err = a.open(c.Target)
			executables[c.Target] = exe
		}

		res, att := a.attachCandidate(c, exe, t.PID)
		set.results = append(set.results, res)

		if !res.Attached() {
			a.logger.Debug().
				Err(res.Err()).
				Str("target", c.Target).
				Str("symbol", c.Symbol).
				Str("set", string(c.Set)).
				Msg("Failed to attach candidate")
			continue
		}

		set.attached = append(set.attached, att)
		a.logger.Info().
			Str("target", c.Target).
			Str("symbol", c.Symbol).
			Str("set", string(c.Set)).
			Msg("Attached probe")
	}

	if set.Len() == 0 {
		a.logger.Error().
			Str("binary", t.BinaryPath).
			Int("candidates", len(candidates)).
			Msg("No probes attached; check that the target exports the functions (objdump -T or nm -D)")
		return nil, fmt.Errorf("%w: %d candidates tried for %s", exporterrors.ErrNoProbesAttached, len(candidates), t)
	}

	return set, nil
}

type openResult struct {
	exe Executable
	err error
}

// attachCandidate places the entry and return probes of c independently. Unless both
// attach, any link that did attach is closed again.
func (a *Attacher) attachCandidate(c catalog.Candidate, exe openResult, pid int) (Result, attachment) {
	res := Result{Candidate: c, Handler: catalog.SanitizeSymbol(c.Symbol)}

	fail := func(err error) (Result, attachment) {
		res.EntryErr, res.ReturnErr = err, err
		return res, attachment{}
	}

	if exe.err != nil {
		return fail(fmt.Errorf("open %s: %w", c.Target, exe.err))
	}

	sym, err := a.symbols.Lookup(c.Target, c.Symbol)
	if err != nil {
		return fail(err)
	}
	res.ELFSymbol = sym

	opts := &link.UprobeOptions{PID: pid}

	entryLink, err := a.attachOne(exe.exe, catalog.Probe{Candidate: c, Kind: catalog.KindEntry}, sym, opts)
	res.EntryErr = err
	retLink, err := a.attachOne(exe.exe, catalog.Probe{Candidate: c, Kind: catalog.KindReturn}, sym, opts)
	res.ReturnErr = err

	if !res.Attached() {
		for _, l := range []link.Link{entryLink, retLink} {
			if l != nil {
				l.Close() // nolint:errcheck
			}
		}
		return res, attachment{}
	}

	return res, attachment{candidate: c, entry: entryLink, ret: retLink}
}

func (a *Attacher) attachOne(exe Executable, p catalog.Probe, sym string, opts *link.UprobeOptions) (link.Link, error) {
	handler := p.Handler()
	prog := a.programs.Program(handler)
	if prog == nil {
		return nil, fmt.Errorf("handler program %q not found", handler)
	}

	var (
		l   link.Link
		err error
	)
	switch p.Kind {
	case catalog.KindEntry:
		l, err = exe.Uprobe(sym, prog, opts)
	case catalog.KindReturn:
		l, err = exe.Uretprobe(sym, prog, opts)
	default:
		return nil, fmt.Errorf("unknown probe kind %s", p.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("attach %s probe %s: %w", p.Kind, handler, err)
	}
	return l, nil
}
