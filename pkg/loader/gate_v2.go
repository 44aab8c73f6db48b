package loader

import "fmt"

// StructuralGate (V2) checks invariants the envelope schema can't express:
// a recognised regulatory_layer, unique article numbers, and — within
// each executable article — unique output names, no output declared with
// an empty name, and exactly one action writing each declared output.
type StructuralGate struct{}

func (g *StructuralGate) Name() string { return "V2" }

func (g *StructuralGate) Run(ctx *GateContext) *GateResult {
	law := ctx.Law
	var issues []string

	if !law.RegulatoryLayer.Valid() {
		issues = append(issues, fmt.Sprintf("unrecognised regulatory_layer %q", law.RegulatoryLayer))
	}

	seenArticles := make(map[string]bool, len(law.Articles))
	for _, a := range law.Articles {
		if a.Number == "" {
			issues = append(issues, "article with empty number")
			continue
		}
		if seenArticles[a.Number] {
			issues = append(issues, fmt.Sprintf("duplicate article number %q", a.Number))
		}
		seenArticles[a.Number] = true

		if !a.Executable() {
			continue
		}
		seenOutputs := make(map[string]bool, len(a.MachineReadable.Execution.Output))
		for _, o := range a.MachineReadable.Execution.Output {
			if o.Name == "" {
				issues = append(issues, fmt.Sprintf("article %q declares an output with no name", a.Number))
				continue
			}
			if seenOutputs[o.Name] {
				issues = append(issues, fmt.Sprintf("article %q declares output %q more than once", a.Number, o.Name))
			}
			seenOutputs[o.Name] = true
		}

		writers := make(map[string]int, len(a.MachineReadable.Execution.Actions))
		for _, act := range a.MachineReadable.Execution.Actions {
			if act.Output == "" {
				issues = append(issues, fmt.Sprintf("article %q has an action with no output name", a.Number))
				continue
			}
			writers[act.Output]++
		}
		for name := range seenOutputs {
			switch writers[name] {
			case 0:
				issues = append(issues, fmt.Sprintf("article %q declares output %q with no writing action", a.Number, name))
			case 1:
				// exactly one writer, as required
			default:
				issues = append(issues, fmt.Sprintf("article %q declares output %q with %d writing actions, want exactly one", a.Number, name, writers[name]))
			}
		}
	}

	if len(issues) > 0 {
		return fail(g.Name(), issues...)
	}
	return pass(g.Name())
}
