// Package service implements the orchestration layer: the top-level
// evaluate() entry point, cross-law/delegation recursion with cycle and
// depth guards, and the ExecutionResult the host-binding surface returns.
package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coolbeans/regelrecht/pkg/datasource"
	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/eval"
	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/rescontext"
	"github.com/coolbeans/regelrecht/pkg/resolver"
	"github.com/coolbeans/regelrecht/pkg/trace"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// maxSameLawDepth and maxCrossLawDepth are the orchestration layer's
// recursion depth caps.
const (
	maxSameLawDepth  = 50
	maxCrossLawDepth = 20
)

// OutputValue pairs a computed output with the unit its declaration
// carried, preserved for consumer inspection alongside the value itself.
type OutputValue struct {
	Value value.Value
	Unit  string
}

// ExecutionResult is the host-facing result of one evaluate() call: the
// computed outputs, every leaf/cross-law/delegation input consulted along
// the way, and the audit trace.
type ExecutionResult struct {
	LawID          string
	ArticleNumber  string
	Outputs        map[string]OutputValue
	ResolvedInputs map[string]value.Value
	Trace          *trace.Trace
}

// Engine ties the resolver, data-source registry, and evaluator together
// behind the host-binding surface. It carries no per-call state; every
// Evaluate call builds its own callState.
type Engine struct {
	laws      *resolver.Index
	registry  *datasource.Registry
	evaluator *eval.Evaluator
	log       zerolog.Logger
}

// NewEngine returns an Engine with an empty law index and data registry.
// Logging is disabled by default; call SetLogger to attach one.
func NewEngine() *Engine {
	return &Engine{
		laws:      resolver.NewIndex(),
		registry:  datasource.NewRegistry(),
		evaluator: eval.New(),
		log:       zerolog.Nop(),
	}
}

// SetLogger attaches a logger the engine uses for load/evaluate
// diagnostics. Passing zerolog.Nop() (the default) silences it again.
func (eng *Engine) SetLogger(logger zerolog.Logger) {
	eng.log = logger
}

// LoadLaw inserts an already-parsed, already-validated law (pkg/loader
// produces these) into the index and returns its law_id.
func (eng *Engine) LoadLaw(law *lawdoc.Law) (string, error) {
	if err := eng.laws.Insert(law); err != nil {
		eng.log.Error().Err(err).Str("law_id", law.LawID).Msg("law rejected")
		return "", err
	}
	eng.log.Debug().Str("law_id", law.LawID).Str("valid_from", law.ValidFrom.String()).Msg("law loaded")
	return law.LawID, nil
}

// UnloadLaw removes every version of lawID. Reports whether anything was
// removed.
func (eng *Engine) UnloadLaw(lawID string) bool {
	removed := eng.laws.Unload(lawID)
	if removed {
		eng.log.Debug().Str("law_id", lawID).Msg("law unloaded")
	}
	return removed
}

// ListLaws returns every distinct law_id currently loaded.
func (eng *Engine) ListLaws() []string {
	return eng.laws.ListLaws()
}

// HasLaw reports whether any version of lawID is loaded.
func (eng *Engine) HasLaw(lawID string) bool {
	return eng.laws.HasLaw(lawID)
}

// LawInfo summarises the version of lawID valid on date.
func (eng *Engine) LawInfo(lawID string, date value.Date) (resolver.Summary, error) {
	return eng.laws.LawInfo(lawID, date)
}

// AddDataSource registers a leaf-input provider.
func (eng *Engine) AddDataSource(name string, priority int, keyFields []string, records []datasource.Record) {
	eng.registry.Add(datasource.NewSource(name, priority, keyFields, records))
}

// callState is the bookkeeping that must survive across every recursive
// Context built for one top-level Evaluate call: the cycle-detection
// visited set and the same-law/cross-law depth counters.
type callState struct {
	visited       map[rescontext.VisitKey]bool
	sameLawDepth  int
	crossLawDepth int
}

func newCallState() *callState {
	return &callState{visited: make(map[rescontext.VisitKey]bool)}
}

// enter registers (lawID, output) as in-flight, failing with CycleDetected
// if it is already on the stack, and increments the depth counter that
// applies (same-law if callerLawID == lawID or callerLawID == "", else
// cross-law), failing with DepthExceeded past the static cap. The returned
// function must be deferred to unwind both effects.
func (cs *callState) enter(callerLawID, lawID, output string) (leave func(), err error) {
	key := rescontext.VisitKey{LawID: lawID, Output: output}
	if cs.visited[key] {
		return nil, errs.CycleDetected(lawID, output)
	}
	sameLaw := callerLawID == "" || callerLawID == lawID
	if sameLaw {
		cs.sameLawDepth++
		if cs.sameLawDepth > maxSameLawDepth {
			cs.sameLawDepth--
			return nil, errs.DepthExceeded("same-law", maxSameLawDepth)
		}
	} else {
		cs.crossLawDepth++
		if cs.crossLawDepth > maxCrossLawDepth {
			cs.crossLawDepth--
			return nil, errs.DepthExceeded("cross-law", maxCrossLawDepth)
		}
	}
	cs.visited[key] = true
	return func() {
		delete(cs.visited, key)
		if sameLaw {
			cs.sameLawDepth--
		} else {
			cs.crossLawDepth--
		}
	}, nil
}

// Evaluate is the orchestration layer's top-level entry point.
func (eng *Engine) Evaluate(lawID, output string, parameters map[string]value.Value, referenceDate value.Date) (*ExecutionResult, error) {
	eng.log.Debug().Str("law_id", lawID).Str("output", output).Str("date", referenceDate.String()).Msg("evaluate")
	cs := newCallState()
	result, err := eng.evalInternal(cs, "", lawID, output, parameters, referenceDate)
	if err != nil {
		eng.log.Debug().Err(err).Str("law_id", lawID).Str("output", output).Msg("evaluate failed")
	}
	return result, err
}

// evalInternal runs the five-step evaluation procedure for one article,
// recursing through itself (via the crossLawResolver adapter) for
// cross-law and delegation inputs.
func (eng *Engine) evalInternal(cs *callState, callerLawID, lawID, output string, parameters map[string]value.Value, referenceDate value.Date) (*ExecutionResult, error) {
	leave, err := cs.enter(callerLawID, lawID, output)
	if err != nil {
		return nil, err
	}
	defer leave()

	// Step 1: locate the article.
	law, article, err := eng.laws.GetArticleByOutput(lawID, output, referenceDate)
	if err != nil {
		return nil, err
	}
	exec := article.MachineReadable.Execution

	// Step 2: build a fresh resolution context.
	for _, p := range exec.Parameters {
		if _, ok := parameters[p.Name]; !ok {
			return nil, errs.MissingParameter(p.Name)
		}
	}
	definitions := mergeDefinitions(article.MachineReadable.Definitions, exec.Definitions)
	var defaults lawdoc.Definitions
	if article.MachineReadable.LegalBasisFor != nil {
		defaults = article.MachineReadable.LegalBasisFor.Defaults
	}
	ctx := rescontext.NewWithDefaults(lawID, article.Number, referenceDate, parameters, definitions, exec.Input, defaults, eng.registry)
	ctx.Evaluator = eng.evaluator
	ctx.Resolver = &crossLawAdapter{eng: eng, cs: cs, callerLawID: lawID}

	// partial carries whatever the context accumulated before a failure, so
	// every error return below hands the caller a populated partial trace
	// instead of discarding it — the only state evaluation produces before
	// it can assemble a full ExecutionResult.
	partial := &ExecutionResult{
		LawID:         law.LawID,
		ArticleNumber: article.Number,
		Trace:         ctx.Trace,
	}

	// Step 3: resolve every declared input up front.
	for _, in := range exec.Input {
		if _, err := ctx.Resolve(in.Name); err != nil {
			partial.ResolvedInputs = ctx.ResolvedInputs()
			return partial, err
		}
	}

	// Step 4: execute actions in declared order.
	source := lawID + "/" + article.Number
	for _, action := range exec.Actions {
		v, err := eng.evaluator.Eval(ctx, &action.Value)
		if err != nil {
			ctx.Trace.AppendError(action.Output, err, source)
			partial.ResolvedInputs = ctx.ResolvedInputs()
			return partial, err
		}
		ctx.SetOutput(action.Output, v)
	}

	// Step 5: assemble outputs and resolved_inputs. A declared output.type
	// that conflicts with the computed value's Kind is a TypeError rather
	// than a silent guess at which one is right.
	outputs := make(map[string]OutputValue, len(exec.Output))
	for _, o := range exec.Output {
		v, err := ctx.Resolve(o.Name)
		if err != nil {
			ctx.Trace.AppendError(o.Name, err, source)
			partial.Outputs = outputs
			partial.ResolvedInputs = ctx.ResolvedInputs()
			return partial, err
		}
		if !v.MatchesDeclaredType(o.Type) {
			typeErr := &value.TypeError{Op: "output:" + o.Name, Reason: fmt.Sprintf("declared type %q", o.Type), Operand: v.Kind()}
			err := errs.TypeError("output:"+o.Name, typeErr)
			ctx.Trace.AppendError(o.Name, err, source)
			partial.Outputs = outputs
			partial.ResolvedInputs = ctx.ResolvedInputs()
			return partial, err
		}
		outputs[o.Name] = OutputValue{Value: v, Unit: o.Unit}
	}

	partial.Outputs = outputs
	partial.ResolvedInputs = ctx.ResolvedInputs()
	return partial, nil
}

// mergeDefinitions combines an article's machine_readable-level
// definitions with its execution-level definitions, execution entries
// taking precedence on name clashes, preserving declaration order
// (machine_readable first, then execution).
func mergeDefinitions(outer, inner lawdoc.Definitions) lawdoc.Definitions {
	if len(outer) == 0 {
		return inner
	}
	if len(inner) == 0 {
		return outer
	}
	overridden := make(map[string]bool, len(inner))
	for _, d := range inner {
		overridden[d.Name] = true
	}
	merged := make(lawdoc.Definitions, 0, len(outer)+len(inner))
	for _, d := range outer {
		if !overridden[d.Name] {
			merged = append(merged, d)
		}
	}
	merged = append(merged, inner...)
	return merged
}

// crossLawAdapter implements rescontext.CrossLawResolver by re-entering
// the engine, bound to one caller's callState and law_id so depth/cycle
// guards see the whole recursive chain.
type crossLawAdapter struct {
	eng         *Engine
	cs          *callState
	callerLawID string
}

func (a *crossLawAdapter) ResolveCrossLaw(lawID, output string, parameters map[string]value.Value, referenceDate value.Date) (value.Value, *trace.Trace, error) {
	result, err := a.eng.evalInternal(a.cs, a.callerLawID, lawID, output, parameters, referenceDate)
	if err != nil {
		if result != nil {
			return value.Value{}, result.Trace, err
		}
		return value.Value{}, nil, err
	}
	ov, ok := result.Outputs[output]
	if !ok {
		return value.Value{}, result.Trace, fmt.Errorf("law %q did not produce output %q", lawID, output)
	}
	return ov.Value, result.Trace, nil
}

func (a *crossLawAdapter) ResolveDelegation(delegationID, gemeenteCode, output string, parameters map[string]value.Value, referenceDate value.Date) (value.Value, *trace.Trace, bool, error) {
	law, article, ok := a.eng.laws.FindDelegation(delegationID, gemeenteCode, referenceDate)
	if !ok {
		return value.Value{}, nil, false, nil
	}
	result, err := a.eng.evalInternal(a.cs, a.callerLawID, law.LawID, output, parameters, referenceDate)
	if err != nil {
		if result != nil {
			return value.Value{}, result.Trace, true, err
		}
		return value.Value{}, nil, true, err
	}
	ov, found := result.Outputs[output]
	if !found {
		return value.Value{}, result.Trace, true, fmt.Errorf("delegation %q (%s/%s) did not produce output %q", delegationID, law.LawID, article.Number, output)
	}
	return ov.Value, result.Trace, true, nil
}
