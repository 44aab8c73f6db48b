// Package lawdoc defines the data model of a loaded law: the versioned
// document tree (Law, Article, Execution block, Action) and the small
// expression language actions are written in.
package lawdoc

import "github.com/coolbeans/regelrecht/pkg/value"

// RegulatoryLayer classifies the legal instrument a Law represents.
type RegulatoryLayer string

const (
	LayerWet                     RegulatoryLayer = "WET"
	LayerAMvB                    RegulatoryLayer = "AMVB"
	LayerMinisterieleRegeling    RegulatoryLayer = "MINISTERIELE_REGELING"
	LayerKoninklijkBesluit       RegulatoryLayer = "KONINKLIJK_BESLUIT"
	LayerBeleidsregel            RegulatoryLayer = "BELEIDSREGEL"
	LayerGemeentelijkeVerordening RegulatoryLayer = "GEMEENTELIJKE_VERORDENING"
)

// Valid reports whether layer is one of the six recognised values.
func (layer RegulatoryLayer) Valid() bool {
	switch layer {
	case LayerWet, LayerAMvB, LayerMinisterieleRegeling, LayerKoninklijkBesluit,
		LayerBeleidsregel, LayerGemeentelijkeVerordening:
		return true
	default:
		return false
	}
}

// Law is a versioned regulatory document keyed by (LawID, ValidFrom).
// Immutable once accepted by the resolver.
type Law struct {
	LawID           string          `yaml:"$id"`
	RegulatoryLayer RegulatoryLayer `yaml:"regulatory_layer"`
	PublicationDate value.Date      `yaml:"publication_date"`
	ValidFrom       value.Date      `yaml:"valid_from"`
	ValidUntil      *value.Date     `yaml:"valid_until,omitempty"`
	BWBID           string          `yaml:"bwb_id,omitempty"`
	GemeenteCode    string          `yaml:"gemeente_code,omitempty"`
	Articles        []*Article      `yaml:"articles"`

	// Schema is the "$schema" URL every law file carries; preserved for
	// consumer inspection, not interpreted by the core.
	Schema string `yaml:"$schema,omitempty"`
}

// Article is one numbered provision, optionally carrying a machine-readable
// execution specification.
type Article struct {
	Number          string           `yaml:"number"`
	Text            string           `yaml:"text"`
	URL             string           `yaml:"url,omitempty"`
	MachineReadable *MachineReadable `yaml:"machine_readable,omitempty"`
}

// Executable reports whether the article carries a runnable execution block.
func (a *Article) Executable() bool {
	return a.MachineReadable != nil && a.MachineReadable.Execution != nil
}

// OutputNames returns the names this article's execution block declares as
// outputs, or nil if the article is not executable.
func (a *Article) OutputNames() []string {
	if !a.Executable() {
		return nil
	}
	names := make([]string, len(a.MachineReadable.Execution.Output))
	for i, o := range a.MachineReadable.Execution.Output {
		names[i] = o.Name
	}
	return names
}

// HasOutput reports whether this article declares the named output.
func (a *Article) HasOutput(name string) bool {
	if !a.Executable() {
		return false
	}
	for _, o := range a.MachineReadable.Execution.Output {
		if o.Name == name {
			return true
		}
	}
	return false
}
