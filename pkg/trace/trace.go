// Package trace implements the structured audit record of an evaluation: an
// ordered list of (kind, name, value, source) entries describing every
// value an evaluation consulted or produced.
package trace

import (
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Kind discriminates what a Record documents.
type Kind string

const (
	KindParameter      Kind = "parameter"
	KindDefinition     Kind = "definition"
	KindInput          Kind = "input"
	KindOutput         Kind = "output"
	KindCrossLawCall   Kind = "cross-law-call"
	KindDelegationCall Kind = "delegation-call"
	KindError          Kind = "error"
)

// Record is one structured trace entry.
type Record struct {
	Kind  Kind
	Name  string
	Value value.Value

	// Source names the law (and, where applicable, article) this record
	// originates from, e.g. "zvw/2.1" or "regeling_standaardpremie/3".
	Source string

	// Err is set only for Kind == KindError.
	Err error
}

// Trace is the ordered audit record of one evaluation, including whatever
// nested cross-law/delegation calls it made.
type Trace struct {
	records []Record
}

// New returns an empty Trace.
func New() *Trace {
	return &Trace{}
}

// Append adds a value-bearing record.
func (t *Trace) Append(kind Kind, name string, v value.Value, source string) {
	t.records = append(t.records, Record{
		Kind:   kind,
		Name:   name,
		Value:  v,
		Source: source,
	})
}

// AppendError adds an error record, marking where evaluation halted.
func (t *Trace) AppendError(name string, err error, source string) {
	t.records = append(t.records, Record{
		Kind:   KindError,
		Name:   name,
		Source: source,
		Err:    err,
	})
}

// Extend appends every record of other to t, preserving temporal order.
// Used when a cross-law/delegation call's nested trace is folded into the
// caller's trace.
func (t *Trace) Extend(other *Trace) {
	if other == nil {
		return
	}
	t.records = append(t.records, other.records...)
}

// Records returns the ordered list of records. The caller must not mutate
// the returned slice.
func (t *Trace) Records() []Record {
	if t == nil {
		return nil
	}
	return t.records
}

// Len reports how many records the trace holds.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}
