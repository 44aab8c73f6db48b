package lawdoc

// MachineReadable is an article's runnable specification: its endpoint
// metadata, optional municipal-delegation clause, named definitions, and
// execution block.
type MachineReadable struct {
	Public        bool            `yaml:"public"`
	Endpoint      string          `yaml:"endpoint,omitempty"`
	LegalBasisFor *LegalBasisFor  `yaml:"legal_basis_for,omitempty"`
	Definitions   Definitions     `yaml:"definitions,omitempty"`
	Execution     *Execution      `yaml:"execution"`
}

// LegalBasisFor tells the engine this article delegates an output to
// municipal regulations, falling back to Defaults when no municipal
// regulation is found for the requested gemeente_code.
type LegalBasisFor struct {
	DelegationID string      `yaml:"delegation_id"`
	Defaults     Definitions `yaml:"defaults,omitempty"`
}

// Execution is the runnable specification of an article: required caller
// inputs, resolvable inputs, local constants, declared outputs, and the
// ordered list of assignments that compute them.
type Execution struct {
	Parameters  []Parameter `yaml:"parameters,omitempty"`
	Input       []Input     `yaml:"input,omitempty"`
	Definitions Definitions `yaml:"definitions,omitempty"`
	Output      []Output    `yaml:"output"`
	Actions     []Action    `yaml:"actions"`
}

// Parameter is one caller-supplied input.
type Parameter struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// Source describes where a resolvable Input's value comes from: a cross-law
// reference, a municipal delegation, or (if nil on the owning Input) a leaf
// input served by the data-source registry.
type Source struct {
	Regulation string      `yaml:"regulation,omitempty"`
	Delegation string      `yaml:"delegation,omitempty"`
	Output     string      `yaml:"output,omitempty"`
	Parameters Definitions `yaml:"parameters,omitempty"`
}

// IsCrossLaw reports whether this source references another law.
func (s *Source) IsCrossLaw() bool { return s != nil && s.Regulation != "" }

// IsDelegation reports whether this source references a municipal delegation.
func (s *Source) IsDelegation() bool { return s != nil && s.Delegation != "" }

// Input is one resolvable input of an execution block.
type Input struct {
	Name   string  `yaml:"name"`
	Type   string  `yaml:"type,omitempty"`
	Source *Source `yaml:"source,omitempty"`
}

// IsLeaf reports whether this input has no source spec, meaning it is
// served by the data-source registry (step 8 of the nine-step chain).
func (in *Input) IsLeaf() bool { return in.Source == nil }

// Output is one named, typed return value of an execution block.
type Output struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
	Unit string `yaml:"unit,omitempty"`
}

// Action is one assignment "Output := Expr" within an execution block. The
// right-hand side is always carried under a "value:" key, the same wrapper
// the evaluator's structural rule requires for any nested expression.
type Action struct {
	Output string `yaml:"output"`
	Value  Expr   `yaml:"value"`
}

// DelegationSpec describes a municipal regulation's authority to fill in a
// specific base-law output.
type DelegationSpec struct {
	DelegationID string      `yaml:"delegation_id"`
	BaseLaw      string      `yaml:"base_law"`
	Defaults     Definitions `yaml:"defaults,omitempty"`
}
