package lawdoc

import (
	"fmt"
	"strings"

	"github.com/coolbeans/regelrecht/pkg/value"
	"gopkg.in/yaml.v3"
)

// ExprKind discriminates the three shapes an Expr can take: a literal, a
// $variableRef, or an Operation.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprVarRef
	ExprOperation
)

// Expr is one node of an action's expression tree.
type Expr struct {
	Kind    ExprKind
	Literal value.Value
	VarRef  string // includes the leading "$"
	Op      *Operation
}

// Case is one {when, then} arm of a SWITCH operation.
type Case struct {
	When *Expr `yaml:"when"`
	Then *Expr `yaml:"then"`
}

// Definition is one named-constant entry of a Definitions block.
type Definition struct {
	Name  string
	Value Expr
}

// Definitions is an ordered list of name->Expr constants. It decodes from a
// YAML mapping, preserving declaration order (a plain Go map would not) so
// that later definitions may reference earlier ones deterministically.
type Definitions []Definition

// UnmarshalYAML decodes a mapping node into an ordered Definitions list.
func (d *Definitions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("definitions must be a mapping, got %v", node.Kind)
	}
	entries := make(Definitions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("decoding definition name: %w", err)
		}
		var e Expr
		if err := e.UnmarshalYAML(node.Content[i+1]); err != nil {
			return fmt.Errorf("decoding definition %q: %w", name, err)
		}
		entries = append(entries, Definition{Name: name, Value: e})
	}
	*d = entries
	return nil
}

// Lookup returns the Expr named name and whether it was found.
func (d Definitions) Lookup(name string) (Expr, bool) {
	for _, e := range d {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Expr{}, false
}

// Operation is the operator-dependent payload of an Expr of kind
// ExprOperation. Not every field applies to every operator; pkg/ops
// defines which fields each operator reads.
type Operation struct {
	Operation string `yaml:"operation"`

	// Arithmetic / comparison / membership.
	Subject *Expr   `yaml:"subject,omitempty"`
	Value   *Expr   `yaml:"value,omitempty"`
	Values  []*Expr `yaml:"values,omitempty"`

	// SUBTRACT_DATE.
	Unit string `yaml:"unit,omitempty"`

	// IF.
	When *Expr `yaml:"when,omitempty"`
	Then *Expr `yaml:"then,omitempty"`
	Else *Expr `yaml:"else,omitempty"`

	// SWITCH.
	Cases   []Case `yaml:"cases,omitempty"`
	Default *Expr  `yaml:"default,omitempty"`

	// FOREACH.
	Over *Expr  `yaml:"over,omitempty"`
	As   string `yaml:"as,omitempty"`
	Body *Expr  `yaml:"body,omitempty"`
}

// IsVarRef reports whether e is a plain "$name"-shaped variable reference.
func (e *Expr) IsVarRef() bool { return e != nil && e.Kind == ExprVarRef }

// UnmarshalYAML decodes an Expr from whatever shape the YAML node takes:
// a scalar literal, a "$name" variable reference, or a mapping with an
// "operation" key.
func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		// Try string first since "$leeftijd" and similar refs must not be
		// coerced into numbers/bools by the YAML scalar resolver.
		if node.Tag == "!!str" || node.Tag == "" {
			if err := node.Decode(&s); err == nil && strings.HasPrefix(s, "$") {
				e.Kind = ExprVarRef
				e.VarRef = s
				return nil
			}
		}
		lit, err := decodeScalarLiteral(node)
		if err != nil {
			return err
		}
		e.Kind = ExprLiteral
		e.Literal = lit
		return nil

	case yaml.MappingNode:
		var op Operation
		if err := node.Decode(&op); err != nil {
			return fmt.Errorf("decoding operation: %w", err)
		}
		if op.Operation == "" {
			return fmt.Errorf("operation mapping missing required 'operation' key")
		}
		e.Kind = ExprOperation
		e.Op = &op
		return nil

	case yaml.SequenceNode:
		var items []Expr
		if err := node.Decode(&items); err != nil {
			return fmt.Errorf("decoding literal list: %w", err)
		}
		vals := make([]value.Value, len(items))
		for i, it := range items {
			if it.Kind != ExprLiteral {
				return fmt.Errorf("literal list elements must be literals, not operations or references")
			}
			vals[i] = it.Literal
		}
		e.Kind = ExprLiteral
		e.Literal = value.List(vals)
		return nil

	default:
		return fmt.Errorf("unsupported YAML node kind for expression: %v", node.Kind)
	}
}

// decodeScalarLiteral decodes a scalar YAML node into a literal Value,
// trying date, bool, int, float, and falling back to string.
func decodeScalarLiteral(node *yaml.Node) (value.Value, error) {
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return value.Value{}, err
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return value.Value{}, err
		}
		return value.Float(f), nil
	case "!!null":
		return value.Null, nil
	default:
		var s string
		if err := node.Decode(&s); err != nil {
			return value.Value{}, err
		}
		if d, err := value.ParseDate(s); err == nil {
			return value.FromDate(d), nil
		}
		return value.String(s), nil
	}
}
