// Package datasource implements the pluggable leaf-input provider registry:
// immutable record sets consulted, by descending priority, to resolve
// inputs that carry no cross-law or delegation source.
package datasource

import (
	"sort"
	"strings"

	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Record is one row a Source can return fields from, keyed by lowercase
// field name.
type Record map[string]value.Value

// Source is one immutable, pluggable leaf-input provider: a name, a
// priority, a declared key-field set, and a fixed list of records.
type Source struct {
	name      string
	priority  int
	keyFields []string // normalised lowercase, in declaration order

	// byKey indexes records when exactly one key field is declared: the
	// key field's lowercased value maps directly to the record.
	byKey map[string]Record

	// byTuple indexes records when more than one key field is declared:
	// the lexicographically-sorted, lowercased "field=value" tuple maps to
	// the record.
	byTuple map[string]Record
}

// NewSource builds a Source from its declared key fields and records.
// Keys in both keyFields and each record are normalised to lowercase.
func NewSource(name string, priority int, keyFields []string, records []Record) *Source {
	normFields := make([]string, len(keyFields))
	for i, f := range keyFields {
		normFields[i] = strings.ToLower(f)
	}

	s := &Source{
		name:      name,
		priority:  priority,
		keyFields: normFields,
		byKey:     make(map[string]Record),
		byTuple:   make(map[string]Record),
	}

	for _, rec := range records {
		norm := normalizeRecord(rec)
		if len(normFields) == 1 {
			if v, ok := norm[normFields[0]]; ok {
				s.byKey[normKey(value.Stringify(v))] = norm
			}
			continue
		}
		s.byTuple[tupleKey(normFields, norm)] = norm
	}

	return s
}

// Name returns the source's identifier.
func (s *Source) Name() string { return s.name }

// Priority returns the source's priority; higher values are consulted
// first.
func (s *Source) Priority() int { return s.priority }

// Empty reports whether the source was loaded with zero records. An empty
// source must report not-applicable rather than an empty match.
func (s *Source) Empty() bool { return len(s.byKey) == 0 && len(s.byTuple) == 0 }

// Matches reports whether criteria (already lowercase-keyed) supplies every
// declared key field.
func (s *Source) Matches(criteria map[string]string) bool {
	for _, f := range s.keyFields {
		if _, ok := criteria[f]; !ok {
			return false
		}
	}
	return true
}

// Lookup looks up field in the record matching criteria. ok is false if no
// record in this source matches the criteria tuple.
func (s *Source) Lookup(criteria map[string]string, field string) (value.Value, bool) {
	var rec Record
	var found bool
	if len(s.keyFields) == 1 {
		rec, found = s.byKey[normKey(criteria[s.keyFields[0]])]
	} else {
		key := make(map[string]value.Value, len(s.keyFields))
		for _, f := range s.keyFields {
			key[f] = value.String(criteria[f])
		}
		rec, found = s.byTuple[tupleKey(s.keyFields, key)]
	}
	if !found {
		return value.Value{}, false
	}
	v, ok := rec[strings.ToLower(field)]
	return v, ok
}

func normalizeRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[strings.ToLower(k)] = v
	}
	return out
}

func normKey(s string) string { return strings.ToLower(s) }

func tupleKey(fields []string, rec Record) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	parts := make([]string, len(sorted))
	for i, f := range sorted {
		parts[i] = f + "=" + normKey(value.Stringify(rec[f]))
	}
	return strings.Join(parts, "|")
}

// Registry holds every registered Source, consulted in descending priority
// order. Sorting happens once, on insert.
type Registry struct {
	sources []*Source
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a source and keeps the registry sorted by descending
// priority (ties keep insertion order, i.e. a stable sort).
func (r *Registry) Add(s *Source) {
	r.sources = append(r.sources, s)
	sort.SliceStable(r.sources, func(i, j int) bool {
		return r.sources[i].priority > r.sources[j].priority
	})
}

// Sources returns the registered sources in consultation order. The caller
// must not mutate the returned slice.
func (r *Registry) Sources() []*Source { return r.sources }

// Lookup resolves field using criteria against every registered source, in
// descending priority order. Criteria keys are case-insensitive.
//
// Three outcomes: (value, true, nil) when some source produced a value;
// (zero, false, nil) when no source declares a matching key-field set at
// all (the caller should fall through to MissingInputError); or
// (zero, false, err) when a non-empty source matched the key fields but
// held no record for this specific criteria tuple
// (errs.DataSourceLookupFailure).
func (r *Registry) Lookup(criteria map[string]string, field string) (value.Value, bool, error) {
	normCriteria := make(map[string]string, len(criteria))
	for k, v := range criteria {
		normCriteria[strings.ToLower(k)] = v
	}

	for _, s := range r.sources {
		if s.Empty() || !s.Matches(normCriteria) {
			continue
		}
		if v, ok := s.Lookup(normCriteria, field); ok {
			return v, true, nil
		}
		return value.Value{}, false, errs.DataSourceLookupFailure(s.name, field)
	}
	return value.Value{}, false, nil
}
