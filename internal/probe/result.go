package probe

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf/link"
	"github.com/samber/lo"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/catalog"
)

// Result is the outcome of attaching one candidate.
type Result struct {
	Candidate catalog.Candidate
	// Handler is the program name stem shared by the entry and return handlers.
	Handler string
	// ELFSymbol is the name the probes were placed on, empty if lookup failed.
	ELFSymbol string
	EntryErr  error
	ReturnErr error
}

// Attached reports whether both probes of the candidate are live.
func (r Result) Attached() bool {
	return r.EntryErr == nil && r.ReturnErr == nil
}

// Err joins the entry and return failures.
func (r Result) Err() error {
	return errors.Join(r.EntryErr, r.ReturnErr)
}

type attachment struct {
	candidate catalog.Candidate
	entry     link.Link
	ret       link.Link
}

// AttachedSet owns the links of every attached candidate.
type AttachedSet struct {
	attached []attachment
	results  []Result
}

// IDs returns the "target:symbol" identifiers of attached candidates in attach order.
func (s *AttachedSet) IDs() []string {
	if s == nil {
		return nil
	}
	return lo.Map(s.attached, func(a attachment, _ int) string {
		return a.candidate.ID()
	})
}

// Len returns the number of attached candidates.
func (s *AttachedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.attached)
}

// Results returns the outcome of every candidate tried, attached or not.
func (s *AttachedSet) Results() []Result {
	if s == nil {
		return nil
	}
	return s.results
}

// Close detaches every probe.
func (s *AttachedSet) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	for _, a := range s.attached {
		if err := a.ret.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close return link %s: %w", a.candidate.ID(), err))
		}
		if err := a.entry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close entry link %s: %w", a.candidate.ID(), err))
		}
	}
	s.attached = nil

	return errors.Join(errs...)
}
