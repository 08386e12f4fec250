package probe

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ianlancetaylor/demangle"
)

// ErrSymbolNotFound is returned when a file defines no function with the requested name.
var ErrSymbolNotFound = errors.New("symbol not found")

// SymbolResolver maps a source-level function name to the name defined in an ELF file.
type SymbolResolver interface {
	Lookup(path, symbol string) (string, error)
}

// ELFResolver reads symbol tables from disk. Tables are parsed once per path.
type ELFResolver struct {
	mu     sync.Mutex
	tables map[string]*symbolTable
}

// NewELFResolver returns an empty resolver.
func NewELFResolver() *ELFResolver {
	return &ELFResolver{tables: make(map[string]*symbolTable)}
}

// Lookup returns the ELF name of symbol in path. C++ qualified names
// ("Class::method") are matched against demangled names and the mangled name is
// returned.
func (r *ELFResolver) Lookup(path, symbol string) (string, error) {
	table, err := r.table(path)
	if err != nil {
		return "", err
	}

	name, ok := table.lookup(symbol)
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, symbol, path)
	}
	return name, nil
}

func (r *ELFResolver) table(path string) (*symbolTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tables[path]; ok {
		return t, nil
	}

	t, err := readSymbolTable(path)
	if err != nil {
		return nil, err
	}
	r.tables[path] = t
	return t, nil
}

// symbolTable indexes defined function symbols by raw and demangled name.
type symbolTable struct {
	names     map[string]struct{}
	demangled map[string]string
}

func newSymbolTable(names []string) *symbolTable {
	t := &symbolTable{
		names:     make(map[string]struct{}, len(names)),
		demangled: make(map[string]string),
	}
	for _, name := range names {
		t.names[name] = struct{}{}
		if !strings.HasPrefix(name, "_Z") {
			continue
		}
		plain := demangle.Filter(name, demangle.NoParams)
		if plain == name {
			continue
		}
		// First definition wins for overloaded names.
		if _, ok := t.demangled[plain]; !ok {
			t.demangled[plain] = name
		}
	}
	return t
}

func (t *symbolTable) lookup(symbol string) (string, bool) {
	if _, ok := t.names[symbol]; ok {
		return symbol, true
	}
	if strings.Contains(symbol, "::") {
		if name, ok := t.demangled[symbol]; ok {
			return name, true
		}
	}
	return "", false
}

func readSymbolTable(path string) (*symbolTable, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close() // nolint:errcheck

	var names []string
	for _, read := range []func() ([]elf.Symbol, error){f.Symbols, f.DynamicSymbols} {
		syms, err := read()
		if err != nil {
			if errors.Is(err, elf.ErrNoSymbols) {
				continue
			}
			return nil, fmt.Errorf("read symbols of %s: %w", path, err)
		}
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Section == elf.SHN_UNDEF {
				continue
			}
			names = append(names, s.Name)
		}
	}

	return newSymbolTable(names), nil
}
