// Package simulate runs batches of compliance scenarios against a loaded
// service.Engine and reports which ones produced the expected output.
package simulate

import (
	"encoding/json"
	"fmt"

	"github.com/coolbeans/regelrecht/pkg/value"
)

// Scenario describes one expected evaluation: evaluate output for lawID
// given parameters on referenceDate, and check the result against Expected
// (skipped when Expected is nil).
type Scenario struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	LawID         string                 `json:"law_id"`
	Output        string                 `json:"output"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
	ReferenceDate string                 `json:"reference_date"`
	Expected      interface{}            `json:"expected,omitempty"`
	Keywords      []string               `json:"keywords,omitempty"`
}

// NewScenario creates a new scenario with the given name.
func NewScenario(name, lawID, output, referenceDate string) *Scenario {
	return &Scenario{
		ID:            generateID(name),
		Name:          name,
		LawID:         lawID,
		Output:        output,
		ReferenceDate: referenceDate,
		Parameters:    make(map[string]interface{}),
		Keywords:      make([]string, 0),
	}
}

// WithParameter adds a caller parameter to the scenario.
func (s *Scenario) WithParameter(name string, v interface{}) *Scenario {
	s.Parameters[name] = v
	return s
}

// WithExpected sets the expected output value for the scenario.
func (s *Scenario) WithExpected(v interface{}) *Scenario {
	s.Expected = v
	return s
}

// AddKeyword tags the scenario for grouping in reports.
func (s *Scenario) AddKeyword(keyword string) *Scenario {
	s.Keywords = append(s.Keywords, keyword)
	return s
}

// resolvedParameters converts the scenario's plain-Go parameter map into
// value.Value, the shape service.Engine.Evaluate requires.
func (s *Scenario) resolvedParameters() (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(s.Parameters))
	for name, raw := range s.Parameters {
		v, err := value.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// resolvedExpected converts the scenario's expected output into value.Value,
// ok=false when no expectation was set.
func (s *Scenario) resolvedExpected() (value.Value, bool, error) {
	if s.Expected == nil {
		return value.Value{}, false, nil
	}
	v, err := value.FromGo(s.Expected)
	return v, true, err
}

// ToJSON serializes the scenario to JSON.
func (s *Scenario) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ScenarioFromJSON parses a scenario from JSON.
func ScenarioFromJSON(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// generateID creates a simple ID from a name.
func generateID(name string) string {
	id := []rune{}
	prevUnderscore := false
	for _, c := range name {
		switch {
		case c >= 'A' && c <= 'Z':
			id = append(id, c-'A'+'a')
			prevUnderscore = false
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			id = append(id, c)
			prevUnderscore = false
		case c == ' ' || c == '_' || c == '-':
			if !prevUnderscore {
				id = append(id, '_')
				prevUnderscore = true
			}
		}
	}
	return string(id)
}

// Batch is a named group of scenarios run together, typically loaded from
// one JSON file.
type Batch struct {
	Name      string      `json:"name"`
	Scenarios []*Scenario `json:"scenarios"`
}
