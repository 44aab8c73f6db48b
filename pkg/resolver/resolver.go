// Package resolver implements the law index: temporal (version-by-date)
// lookup of laws, the articles that produce a given output, and municipal
// delegations.
package resolver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Index holds every loaded Law version, indexed by law_id, and answers the
// three temporal lookups the service layer needs. It is safe for
// concurrent reads; writers (Insert/Unload) must be externally serialised
// against each other, though Index also protects its own internal state
// with a mutex so a caller that forgets to serialise still gets a
// consistent (if racy-in-outcome) result rather than a corrupted index.
type Index struct {
	mu   sync.RWMutex
	laws map[string][]*lawdoc.Law // law_id -> versions, sorted ascending by ValidFrom
}

// NewIndex returns an empty law index.
func NewIndex() *Index {
	return &Index{laws: make(map[string][]*lawdoc.Law)}
}

// Insert adds a law version to the index. It fails if (LawID, ValidFrom)
// is already present: no two loaded laws may share that pair.
func (idx *Index) Insert(law *lawdoc.Law) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	versions := idx.laws[law.LawID]
	for _, existing := range versions {
		if existing.ValidFrom.Equal(law.ValidFrom) {
			return fmt.Errorf("law %q already has a version valid from %s", law.LawID, law.ValidFrom)
		}
	}
	versions = append(versions, law)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].ValidFrom.Before(versions[j].ValidFrom)
	})
	idx.laws[law.LawID] = versions
	return nil
}

// Unload removes every version of lawID. Reports whether anything was
// removed.
func (idx *Index) Unload(lawID string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.laws[lawID]; !ok {
		return false
	}
	delete(idx.laws, lawID)
	return true
}

// ListLaws returns every distinct law_id currently loaded, sorted.
func (idx *Index) ListLaws() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make([]string, 0, len(idx.laws))
	for id := range idx.laws {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasLaw reports whether any version of lawID is loaded.
func (idx *Index) HasLaw(lawID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.laws[lawID]
	return ok
}

// GetLawForDate returns the version of lawID whose [ValidFrom, ValidUntil)
// interval contains date: closed-open, ties broken by the latest
// ValidFrom <= date.
func (idx *Index) GetLawForDate(lawID string, date value.Date) (*lawdoc.Law, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	versions := idx.laws[lawID]
	var best *lawdoc.Law
	for _, v := range versions {
		if v.ValidFrom.After(date) {
			continue
		}
		if v.ValidUntil != nil && !date.Before(*v.ValidUntil) {
			continue
		}
		if best == nil || v.ValidFrom.After(best.ValidFrom) {
			best = v
		}
	}
	if best == nil {
		return nil, errs.LawNotFound(lawID, date)
	}
	return best, nil
}

// GetArticleByOutput returns the article of lawID's date-resolved version
// whose execution block declares outputName. The returned law and article
// always come from the same version: a historical article never gets
// mixed with latest-version metadata.
func (idx *Index) GetArticleByOutput(lawID, outputName string, date value.Date) (*lawdoc.Law, *lawdoc.Article, error) {
	law, err := idx.GetLawForDate(lawID, date)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range law.Articles {
		if a.HasOutput(outputName) {
			return law, a, nil
		}
	}
	return nil, nil, errs.OutputNotFound(lawID, outputName, date)
}

// GetArticle returns the numbered article of lawID's date-resolved
// version.
func (idx *Index) GetArticle(lawID, articleNumber string, date value.Date) (*lawdoc.Law, *lawdoc.Article, error) {
	law, err := idx.GetLawForDate(lawID, date)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range law.Articles {
		if a.Number == articleNumber {
			return law, a, nil
		}
	}
	return nil, nil, errs.ArticleNotFound(lawID, articleNumber)
}

// FindDelegation returns the municipal regulation valid on date whose
// gemeente_code matches gemeenteCode and that carries an article whose
// legal_basis_for.delegation_id matches delegationID. Returns ok=false,
// not an error, when none is found — the caller then applies whatever
// defaults the base article declares.
func (idx *Index) FindDelegation(delegationID, gemeenteCode string, date value.Date) (*lawdoc.Law, *lawdoc.Article, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for lawID, versions := range idx.laws {
		_ = lawID
		var best *lawdoc.Law
		for _, v := range versions {
			if v.GemeenteCode != gemeenteCode {
				continue
			}
			if v.ValidFrom.After(date) {
				continue
			}
			if v.ValidUntil != nil && !date.Before(*v.ValidUntil) {
				continue
			}
			if best == nil || v.ValidFrom.After(best.ValidFrom) {
				best = v
			}
		}
		if best == nil {
			continue
		}
		for _, a := range best.Articles {
			if a.MachineReadable != nil && a.MachineReadable.LegalBasisFor != nil &&
				a.MachineReadable.LegalBasisFor.DelegationID == delegationID {
				return best, a, true
			}
		}
	}
	return nil, nil, false
}

// OutputInfo describes one output a law's executable articles declare,
// carrying the declared type/unit metadata alongside its name so a caller
// inspecting law_info() sees the same unit/type RegelRecht preserves on the
// computed value itself.
type OutputInfo struct {
	Name string
	Type string
	Unit string
}

// Summary is the metadata law_info() exposes.
type Summary struct {
	LawID           string
	RegulatoryLayer lawdoc.RegulatoryLayer
	ValidFrom       value.Date
	ValidUntil      *value.Date
	GemeenteCode    string
	Outputs         []OutputInfo
}

// LawInfo summarises the version of lawID valid on date.
func (idx *Index) LawInfo(lawID string, date value.Date) (Summary, error) {
	law, err := idx.GetLawForDate(lawID, date)
	if err != nil {
		return Summary{}, err
	}
	outputs := make(map[string]OutputInfo)
	for _, a := range law.Articles {
		if !a.Executable() {
			continue
		}
		for _, o := range a.MachineReadable.Execution.Output {
			outputs[o.Name] = OutputInfo{Name: o.Name, Type: o.Type, Unit: o.Unit}
		}
	}
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	infos := make([]OutputInfo, len(names))
	for i, name := range names {
		infos[i] = outputs[name]
	}
	return Summary{
		LawID:           law.LawID,
		RegulatoryLayer: law.RegulatoryLayer,
		ValidFrom:       law.ValidFrom,
		ValidUntil:      law.ValidUntil,
		GemeenteCode:    law.GemeenteCode,
		Outputs:         infos,
	}, nil
}
