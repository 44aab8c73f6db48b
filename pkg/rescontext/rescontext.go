// Package rescontext implements the per-article resolution context: the
// nine-step chain a "$name" reference walks to find its value, plus the
// caches, loop-local bindings, and trace that back it.
package rescontext

import (
	"fmt"
	"strings"

	"github.com/coolbeans/regelrecht/pkg/datasource"
	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/trace"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Evaluator evaluates an expression tree against a Context. It is supplied
// by the eval package; rescontext depends only on the interface to avoid an
// import cycle (eval needs *Context, Context needs to evaluate definitions
// and forwarded parameters).
type Evaluator interface {
	Eval(ctx *Context, expr *lawdoc.Expr) (value.Value, error)
}

// CrossLawResolver re-enters the service layer for step 7 of the chain: a
// cross-law or municipal-delegation reference. Implemented by pkg/service,
// referenced here only as an interface for the same reason as Evaluator.
type CrossLawResolver interface {
	ResolveCrossLaw(lawID, output string, parameters map[string]value.Value, referenceDate value.Date) (value.Value, *trace.Trace, error)

	// ResolveDelegation looks up the municipal regulation for delegationID
	// and gemeenteCode. found=false, err=nil means no municipal regulation
	// exists for that pair — the caller then falls back to whatever
	// defaults its own article declares.
	ResolveDelegation(delegationID, gemeenteCode, output string, parameters map[string]value.Value, referenceDate value.Date) (v value.Value, nested *trace.Trace, found bool, err error)
}

// VisitKey identifies one (law_id, output_name) pair in the cycle-detection
// visited set.
type VisitKey struct {
	LawID  string
	Output string
}

// loopFrame is one FOREACH binding, chained to its parent so nested loops
// shadow correctly and unwind when a body expression finishes.
type loopFrame struct {
	parent *loopFrame
	name   string
	value  value.Value
}

// Context is the per-article resolution scratchpad.
type Context struct {
	LawID         string
	ArticleNumber string
	ReferenceDate value.Date

	Parameters  map[string]value.Value
	Definitions lawdoc.Definitions
	Inputs      []lawdoc.Input

	// Defaults is the owning article's legal_basis_for.defaults, consulted
	// when a delegation-sourced input has no matching municipal regulation
	// Nil when the article declares no legal_basis_for.
	Defaults lawdoc.Definitions

	DataRegistry *datasource.Registry
	Evaluator    Evaluator
	Resolver     CrossLawResolver
	Trace        *trace.Trace

	// Visited and Depth are per-Context fields: NewWithDefaults starts each
	// Context with an empty Visited set and Depth 0, and nothing in this
	// package reads or updates them. The service layer keeps the cycle and
	// depth guards' state for a whole recursive evaluate() chain itself
	// (service.callState), outside any one Context.
	Visited map[VisitKey]bool
	Depth   int

	resolvedOutputs map[string]value.Value
	resolvedInputs  map[string]value.Value
	resolvedDefs    map[string]value.Value
	traced          map[string]bool

	inputByName map[string]*lawdoc.Input
	loop        *loopFrame
}

// New builds a fresh resolution context for one article evaluation.
func New(lawID, articleNumber string, referenceDate value.Date, parameters map[string]value.Value, definitions lawdoc.Definitions, inputs []lawdoc.Input, registry *datasource.Registry) *Context {
	return NewWithDefaults(lawID, articleNumber, referenceDate, parameters, definitions, inputs, nil, registry)
}

// NewWithDefaults is New plus the owning article's delegation-default
// definitions.
func NewWithDefaults(lawID, articleNumber string, referenceDate value.Date, parameters map[string]value.Value, definitions lawdoc.Definitions, inputs []lawdoc.Input, defaults lawdoc.Definitions, registry *datasource.Registry) *Context {
	c := &Context{
		LawID:           lawID,
		ArticleNumber:   articleNumber,
		ReferenceDate:   referenceDate,
		Parameters:      parameters,
		Definitions:     definitions,
		Inputs:          inputs,
		Defaults:        defaults,
		DataRegistry:    registry,
		Trace:           trace.New(),
		Visited:         make(map[VisitKey]bool),
		resolvedOutputs: make(map[string]value.Value),
		resolvedInputs:  make(map[string]value.Value),
		resolvedDefs:    make(map[string]value.Value),
		traced:          make(map[string]bool),
		inputByName:     make(map[string]*lawdoc.Input, len(inputs)),
	}
	for i := range inputs {
		c.inputByName[inputs[i].Name] = &inputs[i]
	}
	return c
}

// source returns the "law/article" label the trace attaches to records
// this context produces.
func (c *Context) source() string {
	if c.ArticleNumber == "" {
		return c.LawID
	}
	return c.LawID + "/" + c.ArticleNumber
}

// WithLoopLocal returns a child context that additionally binds name to v
// in loop-local scope (step 2 of the chain), as FOREACH evaluates its body.
// Caches, parameters, definitions, and the trace are shared with the
// parent; only the loop-local chain differs.
func (c *Context) WithLoopLocal(name string, v value.Value) *Context {
	child := *c
	child.loop = &loopFrame{parent: c.loop, name: name, value: v}
	return &child
}

// SetOutput records an action's computed result under name, making it
// visible to subsequent actions (step 3) and to the final output
// assembly. Also appends an output trace record.
func (c *Context) SetOutput(name string, v value.Value) {
	c.resolvedOutputs[name] = v
	c.Trace.Append(trace.KindOutput, name, v, c.source())
}

// ResolvedInputs returns a snapshot of every input resolved so far,
// keyed by name — the set the orchestration layer assembles into the
// ExecutionResult.
func (c *Context) ResolvedInputs() map[string]value.Value {
	out := make(map[string]value.Value, len(c.resolvedInputs))
	for k, v := range c.resolvedInputs {
		out[k] = v
	}
	return out
}

// Outputs returns a snapshot of every action output computed so far.
func (c *Context) Outputs() map[string]value.Value {
	out := make(map[string]value.Value, len(c.resolvedOutputs))
	for k, v := range c.resolvedOutputs {
		out[k] = v
	}
	return out
}

// Resolve looks up name, given without the leading "$" sigil (callers strip
// it before calling; a name that still starts with "$" matches nothing), by
// walking the nine-step resolution chain, in order, returning the first
// step that produces a value.
func (c *Context) Resolve(name string) (value.Value, error) {
	// Step 1: special variables.
	if name == "referencedate" {
		return value.FromDate(c.ReferenceDate), nil
	}
	if base, field, ok := splitDotted(name); ok {
		rec, err := c.Resolve(base)
		if err != nil {
			return value.Value{}, err
		}
		fields, isRecord := rec.AsRecord()
		if !isRecord {
			return value.Value{}, fmt.Errorf("%q: %q did not resolve to a record", name, base)
		}
		v, ok := fields[field]
		if !ok {
			return value.Value{}, errs.MissingInput(name)
		}
		return v, nil
	}

	// Step 2: loop-local bindings, innermost first.
	for lf := c.loop; lf != nil; lf = lf.parent {
		if lf.name == name {
			return lf.value, nil
		}
	}

	// Step 3: already-resolved action outputs.
	if v, ok := c.resolvedOutputs[name]; ok {
		return v, nil
	}

	// Step 4: already-resolved inputs.
	if v, ok := c.resolvedInputs[name]; ok {
		return v, nil
	}

	// Step 5: definitions.
	if v, ok := c.resolvedDefs[name]; ok {
		return v, nil
	}
	if expr, ok := c.Definitions.Lookup(name); ok {
		v, err := c.Evaluator.Eval(c, &expr)
		if err != nil {
			return value.Value{}, fmt.Errorf("definition %q: %w", name, err)
		}
		c.resolvedDefs[name] = v
		c.traceOnce(trace.KindDefinition, name, v)
		return v, nil
	}

	// Step 6: caller-supplied parameters.
	if v, ok := c.Parameters[name]; ok {
		c.traceOnce(trace.KindParameter, name, v)
		return v, nil
	}

	// Steps 7/8 only apply to declared inputs.
	if in, ok := c.inputByName[name]; ok {
		v, err := c.resolveInput(in)
		if err != nil {
			return value.Value{}, err
		}
		c.resolvedInputs[name] = v
		c.traceOnce(trace.KindInput, name, v)
		return v, nil
	}

	// Step 9: failure.
	return value.Value{}, errs.MissingInput(name)
}

// resolveInput implements steps 7 and 8 for one declared input: a
// cross-law/delegation source (step 7) or the data-source registry
// (step 8, leaf inputs).
func (c *Context) resolveInput(in *lawdoc.Input) (value.Value, error) {
	switch {
	case in.Source.IsCrossLaw():
		params, err := c.evalSourceParameters(in.Source.Parameters)
		if err != nil {
			return value.Value{}, fmt.Errorf("input %q: %w", in.Name, err)
		}
		v, nested, err := c.Resolver.ResolveCrossLaw(in.Source.Regulation, in.Source.Output, params, c.ReferenceDate)
		if err != nil {
			c.Trace.Extend(nested)
			return value.Value{}, fmt.Errorf("input %q: %w", in.Name, err)
		}
		c.Trace.Extend(nested)
		c.Trace.Append(trace.KindCrossLawCall, in.Name, v, in.Source.Regulation+"/"+in.Source.Output)
		return v, nil

	case in.Source.IsDelegation():
		params, err := c.evalSourceParameters(in.Source.Parameters)
		if err != nil {
			return value.Value{}, fmt.Errorf("input %q: %w", in.Name, err)
		}
		gemeenteCode, err := c.gemeenteCode()
		if err != nil {
			return value.Value{}, fmt.Errorf("input %q: %w", in.Name, err)
		}
		v, nested, found, err := c.Resolver.ResolveDelegation(in.Source.Delegation, gemeenteCode, in.Source.Output, params, c.ReferenceDate)
		if err != nil {
			c.Trace.Extend(nested)
			return value.Value{}, fmt.Errorf("input %q: %w", in.Name, err)
		}
		if found {
			c.Trace.Extend(nested)
			c.Trace.Append(trace.KindDelegationCall, in.Name, v, in.Source.Delegation)
			return v, nil
		}
		if defExpr, ok := c.Defaults.Lookup(in.Source.Output); ok {
			v, err := c.Evaluator.Eval(c, &defExpr)
			if err != nil {
				return value.Value{}, fmt.Errorf("input %q: default for %q: %w", in.Name, in.Source.Output, err)
			}
			c.Trace.Append(trace.KindDelegationCall, in.Name, v, "default:"+in.Source.Delegation)
			return v, nil
		}
		return value.Value{}, errs.NoRegulationFound(in.Source.Delegation)

	default:
		criteria := c.leafCriteria()
		v, ok, err := c.DataRegistry.Lookup(criteria, in.Name)
		if err != nil {
			return value.Value{}, fmt.Errorf("input %q: %w", in.Name, err)
		}
		if !ok {
			return value.Value{}, errs.MissingInput(in.Name)
		}
		return v, nil
	}
}

// evalSourceParameters evaluates a source's forwarded-parameter
// expressions (e.g. "parameters: { bsn: $BSN }") in the current context.
func (c *Context) evalSourceParameters(defs lawdoc.Definitions) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(defs))
	for _, d := range defs {
		v, err := c.Evaluator.Eval(c, &d.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", d.Name, err)
		}
		out[d.Name] = v
	}
	return out, nil
}

// leafCriteria builds the data-source lookup criteria from the caller's
// parameters (resolution step 8): keys normalised to lowercase, values
// stringified.
func (c *Context) leafCriteria() map[string]string {
	criteria := make(map[string]string, len(c.Parameters))
	for k, v := range c.Parameters {
		criteria[strings.ToLower(k)] = value.Stringify(v)
	}
	return criteria
}

// gemeenteCode extracts the municipality code a delegation lookup keys on,
// from the "gemeente_code" parameter.
func (c *Context) gemeenteCode() (string, error) {
	v, ok := c.Parameters["gemeente_code"]
	if !ok {
		return "", fmt.Errorf("delegation lookup requires a %q parameter", "gemeente_code")
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%q parameter must be a string", "gemeente_code")
	}
	return s, nil
}

func (c *Context) traceOnce(kind trace.Kind, name string, v value.Value) {
	if c.traced[name] {
		return
	}
	c.traced[name] = true
	c.Trace.Append(kind, name, v, c.source())
}

// splitDotted splits a "base.field" reference into its two parts. Returns
// ok=false when name carries no dot.
func splitDotted(name string) (base, field string, ok bool) {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
