package loader

import (
	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/lawdoc"
)

// Loader turns a raw YAML law document into a validated lawdoc.Law, running
// it through the V0-V3 gate pipeline.
type Loader struct {
	pipeline *Pipeline
}

// New builds a Loader with the default gate pipeline.
func New() *Loader {
	return &Loader{pipeline: NewPipeline()}
}

// Load validates and decodes a single law document. On gate failure it
// returns a SchemaError carrying every issue found, in pipeline order.
func (l *Loader) Load(yamlBytes []byte) (*lawdoc.Law, *Report, error) {
	ctx := &GateContext{Raw: yamlBytes}
	report := l.pipeline.Run(ctx)
	if !report.Passed() {
		return nil, report, errs.SchemaError(report.Issues())
	}
	return ctx.Law, report, nil
}
