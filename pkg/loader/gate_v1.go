package loader

import (
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/regelrecht/pkg/lawdoc"
)

// SchemaGate (V1) validates the parsed document against the published
// envelope schema (required $id, regulatory_layer, publication_date,
// valid_from, articles[]), then fully decodes it into a lawdoc.Law for the
// remaining gates.
type SchemaGate struct{}

func (g *SchemaGate) Name() string { return "V1" }

func (g *SchemaGate) Run(ctx *GateContext) *GateResult {
	if issues := validateAgainstSchema(ctx.Generic); len(issues) > 0 {
		return fail(g.Name(), issues...)
	}

	var law lawdoc.Law
	if err := yaml.Unmarshal(ctx.Raw, &law); err != nil {
		return fail(g.Name(), "decoding law document: "+err.Error())
	}
	ctx.Law = &law
	return pass(g.Name())
}
