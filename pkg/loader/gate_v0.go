package loader

import "gopkg.in/yaml.v3"

// maxLawFileBytes bounds how large a single law document may be.
const maxLawFileBytes = 2 * 1024 * 1024

// SyntaxGate (V0) checks the raw input is non-empty, within size bounds,
// and parses as YAML at all — before anything schema- or structure-aware
// runs.
type SyntaxGate struct{}

func (g *SyntaxGate) Name() string { return "V0" }

func (g *SyntaxGate) Run(ctx *GateContext) *GateResult {
	if len(ctx.Raw) == 0 {
		return fail(g.Name(), "document is empty")
	}
	if len(ctx.Raw) > maxLawFileBytes {
		return fail(g.Name(), "document exceeds the 2 MiB size limit")
	}
	var generic any
	if err := yaml.Unmarshal(ctx.Raw, &generic); err != nil {
		return fail(g.Name(), "invalid YAML: "+err.Error())
	}
	ctx.Generic = generic
	return pass(g.Name())
}
