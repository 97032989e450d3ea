// Package stats tracks per-name observation and fault counters for one
// logger file, with verbose fault logging capped per name.
package stats

import (
	"errors"
	"fmt"
	"sort"

	"example.com/wiblgate/internal/common"
)

type FaultKind int

const (
	ParseFault FaultKind = iota
	ShortMessage
	DecodeFault
	AttributeFault
	TypeFault
	ChecksumFault

	numFaultKinds
)

var faultKindNames = [numFaultKinds]string{
	"parse",
	"short message",
	"decode",
	"attribute",
	"type",
	"checksum",
}

func (k FaultKind) String() string {
	if k >= 0 && k < numFaultKinds {
		return faultKindNames[k]
	}
	return "unknown"
}

// DefaultFaultLimit is the per-name cap on individually logged faults.
const DefaultFaultLimit = 10

var ErrUnknownName = errors.New("name never observed or faulted")

type record struct {
	observed   int
	faults     [numFaultKinds]int
	suppressed bool
}

func (r *record) faultTotal() int {
	total := 0
	for _, n := range r.faults {
		total += n
	}
	return total
}

// Statistics is not safe for concurrent use; one instance serves exactly one
// file's processing run.
type Statistics struct {
	limit   int
	records map[string]*record
}

func New(faultLimit int) *Statistics {
	if faultLimit <= 0 {
		faultLimit = DefaultFaultLimit
	}
	return &Statistics{limit: faultLimit, records: make(map[string]*record)}
}

func (s *Statistics) get(name string) *record {
	r, ok := s.records[name]
	if !ok {
		r = &record{}
		s.records[name] = r
	}
	return r
}

// Observed counts one successfully decoded packet or sentence of the given
// name, creating its record on first reference.
func (s *Statistics) Observed(name string) {
	s.get(name).observed++
}

// Fault counts one fault of the given kind against name. Each fault is logged
// until the per-name limit is reached; after that faults are still counted
// but only a single suppression notice is emitted.
func (s *Statistics) Fault(name string, kind FaultKind, detail string) {
	r := s.get(name)
	r.faults[kind]++
	if r.faultTotal() > s.limit {
		if !r.suppressed {
			r.suppressed = true
			common.Logf("%s: more than %d faults, suppressing further reports", name, s.limit)
		}
		return
	}
	if detail != "" {
		common.Logf("%s: %s fault: %s", name, kind, detail)
	} else {
		common.Logf("%s: %s fault", name, kind)
	}
}

// Seen reports whether name has ever been observed or faulted.
func (s *Statistics) Seen(name string) bool {
	_, ok := s.records[name]
	return ok
}

// FaultCount returns the total fault count for name across all kinds.
func (s *Statistics) FaultCount(name string) (int, error) {
	r, ok := s.records[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownName)
	}
	return r.faultTotal(), nil
}

// ObservedCount returns the observation count for name.
func (s *Statistics) ObservedCount(name string) (int, error) {
	r, ok := s.records[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownName)
	}
	return r.observed, nil
}

// TotalCount returns the number of observations across all names.
func (s *Statistics) TotalCount() int {
	total := 0
	for _, r := range s.records {
		total += r.observed
	}
	return total
}

// NameCount is one row of a statistics snapshot.
type NameCount struct {
	Name     string         `json:"name"`
	Observed int            `json:"observed"`
	Faults   int            `json:"faults"`
	ByKind   map[string]int `json:"byKind,omitempty"`
}

// Snapshot returns the per-name counters sorted by name, for reporting.
func (s *Statistics) Snapshot() []NameCount {
	out := make([]NameCount, 0, len(s.records))
	for name, r := range s.records {
		row := NameCount{Name: name, Observed: r.observed, Faults: r.faultTotal()}
		for kind, n := range r.faults {
			if n > 0 {
				if row.ByKind == nil {
					row.ByKind = make(map[string]int)
				}
				row.ByKind[FaultKind(kind).String()] = n
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
