package loader

import (
	"time"

	"github.com/coolbeans/regelrecht/pkg/lawdoc"
)

// Gate is one validation checkpoint in the load pipeline: given a YAML
// blob, it contributes to a validated Law or a structured schema-error
// list. Modeled on a multi-gate document ingestion pipeline, narrowed here
// to structural correctness rather than scored quality metrics.
type Gate interface {
	Name() string
	Run(ctx *GateContext) *GateResult
}

// GateContext carries whatever a gate needs, populated incrementally as
// the pipeline progresses: raw bytes for V0, generic YAML-as-JSON for V1,
// and the parsed Law for V2/V3.
type GateContext struct {
	Raw      []byte
	Generic  any
	Law      *lawdoc.Law
	ParseErr error
}

// GateResult is one gate's outcome: pass/fail plus the issues found.
type GateResult struct {
	Gate     string
	Passed   bool
	Issues   []string
	Duration time.Duration
}

// Report aggregates every gate's result for one load() call.
type Report struct {
	Results []*GateResult
}

// Passed reports whether every gate in the report passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Issues flattens every failing gate's issues into one list, prefixed with
// the gate name, in pipeline order.
func (r *Report) Issues() []string {
	var out []string
	for _, res := range r.Results {
		for _, issue := range res.Issues {
			out = append(out, res.Gate+": "+issue)
		}
	}
	return out
}

// Pipeline runs a fixed sequence of gates, halting at the first failure —
// a later gate generally assumes the data the earlier ones already
// checked (e.g. V2 assumes the document parsed; V3 assumes V2's field
// checks passed).
type Pipeline struct {
	gates []Gate
}

// NewPipeline builds the default V0-V3 pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{gates: []Gate{
		&SyntaxGate{},
		&SchemaGate{},
		&StructuralGate{},
		&ExpressionGate{},
	}}
}

// Run executes every gate in order, stopping at the first failure.
func (p *Pipeline) Run(ctx *GateContext) *Report {
	report := &Report{}
	for _, g := range p.gates {
		start := time.Now()
		result := g.Run(ctx)
		result.Duration = time.Since(start)
		report.Results = append(report.Results, result)
		if !result.Passed {
			break
		}
	}
	return report
}

func pass(name string) *GateResult { return &GateResult{Gate: name, Passed: true} }

func fail(name string, issues ...string) *GateResult {
	return &GateResult{Gate: name, Passed: false, Issues: issues}
}
