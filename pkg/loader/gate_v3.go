package loader

import (
	"fmt"

	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/ops"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// ExpressionGate (V3) walks every action's and definition's expression
// tree, checking each operation carries the fields its operator requires —
// the one piece of the evaluator's structural rule that YAML decoding
// alone cannot guarantee (decoding only tells us a "subject"/"value"
// reference was string-and-"$"-prefixed or a nested operation; it does not
// know which fields a given operator needs).
type ExpressionGate struct{}

func (g *ExpressionGate) Name() string { return "V3" }

func (g *ExpressionGate) Run(ctx *GateContext) *GateResult {
	var issues []string
	for _, a := range ctx.Law.Articles {
		if !a.Executable() {
			continue
		}
		exec := a.MachineReadable.Execution
		for _, d := range exec.Definitions {
			issues = append(issues, walkExpr(a.Number, "definition "+d.Name, &d.Value)...)
		}
		for _, in := range exec.Input {
			if in.Source == nil {
				continue
			}
			for _, d := range in.Source.Parameters {
				issues = append(issues, walkExpr(a.Number, "input "+in.Name+" parameter "+d.Name, &d.Value)...)
			}
		}
		for _, act := range exec.Actions {
			issues = append(issues, walkExpr(a.Number, "action "+act.Output, &act.Value)...)
		}
	}
	if len(issues) > 0 {
		return fail(g.Name(), issues...)
	}
	return pass(g.Name())
}

func walkExpr(article, label string, e *lawdoc.Expr) []string {
	if e == nil || e.Kind != lawdoc.ExprOperation {
		return nil
	}
	op := e.Op
	var issues []string
	name := ops.Name(op.Operation)

	switch {
	case ops.IsArithmetic(name):
		if len(op.Values) == 0 && (op.Subject == nil || op.Value == nil) {
			issues = append(issues, errLoc(article, label, "%s requires either subject+value or a non-empty values list", name))
		}
	case name == ops.MIN || name == ops.MAX || name == ops.CONCAT || name == ops.AND || name == ops.OR:
		if len(op.Values) == 0 {
			issues = append(issues, errLoc(article, label, "%s requires a non-empty values list", name))
		}
	case name == ops.SUBTRACT_DATE:
		if op.Subject == nil || op.Value == nil {
			issues = append(issues, errLoc(article, label, "SUBTRACT_DATE requires subject and value"))
		}
		switch value.DateDiffUnit(op.Unit) {
		case value.UnitDays, value.UnitMonths, value.UnitYears:
		default:
			issues = append(issues, errLoc(article, label, "SUBTRACT_DATE has unrecognised unit %q", op.Unit))
		}
	case name == ops.EQUALS, name == ops.NOT_EQUALS, name == ops.GREATER_THAN, name == ops.LESS_THAN,
		name == ops.GREATER_THAN_OR_EQUAL, name == ops.LESS_THAN_OR_EQUAL:
		if op.Subject == nil || op.Value == nil {
			issues = append(issues, errLoc(article, label, "%s requires subject and value", name))
		}
	case name == ops.IN || name == ops.NOT_IN:
		if op.Subject == nil || len(op.Values) == 0 {
			issues = append(issues, errLoc(article, label, "%s requires a subject and a non-empty values list", name))
		}
	case name == ops.NOT || name == ops.NOT_NULL:
		if op.Subject == nil {
			issues = append(issues, errLoc(article, label, "%s requires a subject", name))
		}
	case name == ops.IF:
		if op.When == nil || op.Then == nil {
			issues = append(issues, errLoc(article, label, "IF requires when and then"))
		}
	case name == ops.SWITCH:
		if len(op.Cases) == 0 {
			issues = append(issues, errLoc(article, label, "SWITCH requires at least one case"))
		}
		for i, c := range op.Cases {
			if c.When == nil || c.Then == nil {
				issues = append(issues, errLoc(article, label, "SWITCH case %d missing when/then", i))
			}
		}
	case name == ops.FOREACH:
		if op.Over == nil || op.As == "" || op.Body == nil {
			issues = append(issues, errLoc(article, label, "FOREACH requires over, as, and body"))
		}
	default:
		issues = append(issues, errLoc(article, label, "unknown operator %q", op.Operation))
	}

	for _, child := range childExprs(op) {
		issues = append(issues, walkExpr(article, label, child)...)
	}
	return issues
}

func childExprs(op *lawdoc.Operation) []*lawdoc.Expr {
	children := []*lawdoc.Expr{op.Subject, op.Value, op.When, op.Then, op.Else, op.Default, op.Over, op.Body}
	children = append(children, op.Values...)
	for _, c := range op.Cases {
		children = append(children, c.When, c.Then)
	}
	out := children[:0]
	for _, c := range children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func errLoc(article, label, format string, args ...any) string {
	return fmt.Sprintf("article %s, %s: %s", article, label, fmt.Sprintf(format, args...))
}
