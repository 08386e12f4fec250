// Package catalog declares the functions the exporter knows how to instrument.
//
// Symbols are split into a stable set, exported by the FFmpeg shared libraries with a
// stable ABI, and a legacy set of internal jitter buffer functions that only exist in
// some builds of FFmpeg or SRS. Library paths are tried first for stable symbols; the
// target binary is then tried for both sets.
package catalog

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Kind is the instrumentation point of a probe.
type Kind int

const (
	// KindEntry fires when the function is entered.
	KindEntry Kind = iota
	// KindReturn fires when the function returns.
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindReturn:
		return "return"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinds lists every instrumentation point attached for a candidate, in attach order.
var Kinds = []Kind{KindEntry, KindReturn}

// Set names the catalog a symbol belongs to.
type Set string

const (
	// SetStable holds FFmpeg library symbols whose names survive across releases.
	SetStable Set = "stable"
	// SetLegacy holds internal jitter buffer symbols that only some builds export.
	SetLegacy Set = "legacy"
)

// StableSymbols are FFmpeg library functions with a stable ABI.
var StableSymbols = []string{
	"avcodec_send_packet",
	"avcodec_receive_frame",
	"av_packet_alloc",
	"av_packet_ref",
	"av_packet_unref",
	"av_bsf_send_packet",
	"av_bsf_receive_packet",
}

// LegacySymbols are internal jitter buffer and RTP functions; fragile across builds.
var LegacySymbols = []string{
	"jitterbuffer_put",
	"jitterbuffer_get",
	"rtp_parse_packet",
	"ff_rtp_parse_packet",
	"SrsRtpJitterBuffer::put",
	"SrsRtpJitterBuffer::get",
}

// DefaultLibraryPaths are the FFmpeg shared libraries searched for stable symbols.
var DefaultLibraryPaths = []string{
	"/usr/lib/x86_64-linux-gnu/libavcodec.so.58",
	"/usr/lib/x86_64-linux-gnu/libavformat.so.58",
	"/usr/lib/x86_64-linux-gnu/libavutil.so.56",
}

// Candidate is one (target, symbol) pair to instrument.
type Candidate struct {
	// Target is a shared library path or the target binary path.
	Target string
	// Symbol is the function name as written in source, possibly C++ qualified.
	Symbol string
	// Set is the catalog the symbol came from.
	Set Set
}

// ID identifies the candidate as "target:symbol".
func (c Candidate) ID() string {
	return c.Target + ":" + c.Symbol
}

// Probe is one instrumentation point of a candidate.
type Probe struct {
	Candidate
	Kind Kind
}

// Handler returns the BPF program name that serves this probe.
func (p Probe) Handler() string {
	return HandlerName(p.Symbol, p.Kind)
}

var handlerReplacer = strings.NewReplacer("::", "_", ".", "_")

// SanitizeSymbol rewrites scope and member separators to "_" so the symbol can name a
// BPF program.
func SanitizeSymbol(symbol string) string {
	return handlerReplacer.Replace(symbol)
}

// HandlerName returns the program name for symbol at kind, e.g. "av_packet_ref_return".
func HandlerName(symbol string, kind Kind) string {
	return SanitizeSymbol(symbol) + "_" + kind.String()
}

// Catalog is an immutable set of symbols and library paths.
type Catalog struct {
	Stable       []string
	Legacy       []string
	LibraryPaths []string
}

// Default returns the built-in catalog.
func Default() Catalog {
	return Catalog{
		Stable:       StableSymbols,
		Legacy:       LegacySymbols,
		LibraryPaths: DefaultLibraryPaths,
	}
}

// WithLibraryPaths returns a copy of c searching paths instead of its defaults.
// An empty list keeps the current paths.
func (c Catalog) WithLibraryPaths(paths []string) Catalog {
	if len(paths) > 0 {
		c.LibraryPaths = paths
	}
	return c
}

// Handlers returns every BPF program name the catalog can reference.
func (c Catalog) Handlers() []string {
	var names []string
	for _, sym := range c.allSymbols() {
		for _, kind := range Kinds {
			names = append(names, HandlerName(sym, kind))
		}
	}
	return names
}

func (c Catalog) allSymbols() []string {
	return lo.Uniq(append(append([]string{}, c.Stable...), c.Legacy...))
}

// PathExists reports whether a library path is present on this host.
type PathExists func(path string) bool

// Skipped is a library path left out of the plan because it is absent.
type Skipped struct {
	Path string
}

// Plan expands the catalog against binary into the ordered candidate list: stable
// symbols in every existing library path, then stable and legacy symbols in binary.
// Library paths for which exists returns false are returned in skipped.
func (c Catalog) Plan(binary string, exists PathExists) (candidates []Candidate, skipped []Skipped) {
	for _, lib := range c.LibraryPaths {
		if !exists(lib) {
			skipped = append(skipped, Skipped{Path: lib})
			continue
		}
		for _, sym := range c.Stable {
			candidates = append(candidates, Candidate{Target: lib, Symbol: sym, Set: SetStable})
		}
	}

	for _, sym := range c.allSymbols() {
		set := SetStable
		if !lo.Contains(c.Stable, sym) {
			set = SetLegacy
		}
		candidates = append(candidates, Candidate{Target: binary, Symbol: sym, Set: set})
	}

	return candidates, skipped
}
