// Package eval implements the expression evaluator: a pure tree walker
// over lawdoc.Expr that resolves literals directly, delegates
// "$name" references to the resolution context (pkg/rescontext), and
// applies the operator catalog (pkg/ops) to already-resolved operands —
// except for the lazy operators (IF, SWITCH, AND, OR, FOREACH), which the
// evaluator drives directly so it controls which sub-expressions are
// evaluated at all.
package eval

import (
	"fmt"

	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/ops"
	"github.com/coolbeans/regelrecht/pkg/rescontext"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Evaluator walks lawdoc.Expr trees. It holds no state of its own; all
// per-evaluation state lives on the rescontext.Context passed to Eval. A
// single Evaluator value is shared across every recursive invocation of
// one service call.
type Evaluator struct{}

// New returns an Evaluator. There is nothing to configure.
func New() *Evaluator { return &Evaluator{} }

// Eval evaluates expr against ctx, implementing rescontext.Evaluator.
func (e *Evaluator) Eval(ctx *rescontext.Context, expr *lawdoc.Expr) (value.Value, error) {
	if expr == nil {
		return value.Null, nil
	}
	switch expr.Kind {
	case lawdoc.ExprLiteral:
		return expr.Literal, nil

	case lawdoc.ExprVarRef:
		name, err := stripSigil(expr.VarRef)
		if err != nil {
			return value.Value{}, err
		}
		return ctx.Resolve(name)

	case lawdoc.ExprOperation:
		return e.evalOperation(ctx, expr.Op)

	default:
		return value.Value{}, fmt.Errorf("unrecognised expression kind %v", expr.Kind)
	}
}

func stripSigil(ref string) (string, error) {
	if len(ref) < 2 || ref[0] != '$' {
		return "", fmt.Errorf("malformed variable reference %q", ref)
	}
	return ref[1:], nil
}

func (e *Evaluator) evalOperation(ctx *rescontext.Context, op *lawdoc.Operation) (value.Value, error) {
	name := ops.Name(op.Operation)

	switch name {
	case ops.IF:
		return e.evalIf(ctx, op)
	case ops.SWITCH:
		return e.evalSwitch(ctx, op)
	case ops.AND:
		return e.evalAndOr(ctx, op, true)
	case ops.OR:
		return e.evalAndOr(ctx, op, false)
	case ops.FOREACH:
		return e.evalForeach(ctx, op)
	}

	// Every remaining operator is strict: resolve its operands first, then
	// dispatch to pkg/ops.
	switch {
	case ops.IsArithmetic(name):
		if len(op.Values) > 0 {
			values, err := e.evalAll(ctx, op.Values)
			if err != nil {
				return value.Value{}, err
			}
			v, err := ops.ApplyArithmeticVariadic(name, values)
			return v, wrapOpErr(string(name), err)
		}
		subject, val, err := e.evalSubjectValue(ctx, op)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplyArithmeticBinary(name, subject, val)
		return v, wrapOpErr(string(name), err)
	}

	switch name {
	case ops.MIN, ops.MAX:
		values, err := e.evalAll(ctx, op.Values)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplyMinMax(name, values)
		return v, wrapOpErr(string(name), err)

	case ops.SUBTRACT_DATE:
		subject, val, err := e.evalSubjectValue(ctx, op)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplySubtractDate(subject, val, op.Unit)
		return v, wrapOpErr(string(name), err)

	case ops.EQUALS, ops.NOT_EQUALS, ops.GREATER_THAN, ops.LESS_THAN,
		ops.GREATER_THAN_OR_EQUAL, ops.LESS_THAN_OR_EQUAL:
		subject, val, err := e.evalSubjectValue(ctx, op)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplyComparison(name, subject, val)
		return v, wrapOpErr(string(name), err)

	case ops.IN, ops.NOT_IN:
		if op.Subject == nil {
			return value.Value{}, fmt.Errorf("%s: missing subject", name)
		}
		subject, err := e.Eval(ctx, op.Subject)
		if err != nil {
			return value.Value{}, err
		}
		values, err := e.evalAll(ctx, op.Values)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplyMembership(name, subject, values)
		return v, wrapOpErr(string(name), err)

	case ops.NOT:
		if op.Subject == nil {
			return value.Value{}, fmt.Errorf("NOT: missing subject")
		}
		subject, err := e.Eval(ctx, op.Subject)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplyNot(subject)
		return v, wrapOpErr("NOT", err)

	case ops.NOT_NULL:
		if op.Subject == nil {
			return value.Value{}, fmt.Errorf("NOT_NULL: missing subject")
		}
		subject, err := e.Eval(ctx, op.Subject)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ops.ApplyNotNull(subject)
		return v, err

	case ops.CONCAT:
		values, err := e.evalAll(ctx, op.Values)
		if err != nil {
			return value.Value{}, err
		}
		return ops.ApplyConcat(values), nil

	default:
		return value.Value{}, fmt.Errorf("unknown operator %q", op.Operation)
	}
}

// evalSubjectValue evaluates the subject/value pair every binary operator
// (arithmetic, comparison, SUBTRACT_DATE) reads.
func (e *Evaluator) evalSubjectValue(ctx *rescontext.Context, op *lawdoc.Operation) (value.Value, value.Value, error) {
	if op.Subject == nil || op.Value == nil {
		return value.Value{}, value.Value{}, fmt.Errorf("%s: requires both subject and value", op.Operation)
	}
	subject, err := e.Eval(ctx, op.Subject)
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	val, err := e.Eval(ctx, op.Value)
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	return subject, val, nil
}

// evalAll strictly evaluates every expression in exprs, in order.
func (e *Evaluator) evalAll(ctx *rescontext.Context, exprs []*lawdoc.Expr) ([]value.Value, error) {
	values := make([]value.Value, len(exprs))
	for i, x := range exprs {
		v, err := e.Eval(ctx, x)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// evalIf evaluates IF lazily: only one of then/else is ever evaluated.
func (e *Evaluator) evalIf(ctx *rescontext.Context, op *lawdoc.Operation) (value.Value, error) {
	if op.When == nil || op.Then == nil {
		return value.Value{}, fmt.Errorf("IF: requires when and then")
	}
	cond, err := e.Eval(ctx, op.When)
	if err != nil {
		return value.Value{}, err
	}
	b, err := value.IsTrue(cond, "IF")
	if err != nil {
		return value.Value{}, err
	}
	if b {
		return e.Eval(ctx, op.Then)
	}
	if op.Else != nil {
		return e.Eval(ctx, op.Else)
	}
	return value.Null, nil
}

// evalSwitch evaluates each case's "when" in declared order, returning the
// first whose condition is true; falls back to default, or Null.
func (e *Evaluator) evalSwitch(ctx *rescontext.Context, op *lawdoc.Operation) (value.Value, error) {
	for _, c := range op.Cases {
		if c.When == nil || c.Then == nil {
			return value.Value{}, fmt.Errorf("SWITCH: case missing when/then")
		}
		cond, err := e.Eval(ctx, c.When)
		if err != nil {
			return value.Value{}, err
		}
		b, err := value.IsTrue(cond, "SWITCH")
		if err != nil {
			return value.Value{}, err
		}
		if b {
			return e.Eval(ctx, c.Then)
		}
	}
	if op.Default != nil {
		return e.Eval(ctx, op.Default)
	}
	return value.Null, nil
}

// evalAndOr evaluates AND/OR left-to-right, short-circuiting on the first
// operand that decides the result (false for AND, true for OR).
func (e *Evaluator) evalAndOr(ctx *rescontext.Context, op *lawdoc.Operation, isAnd bool) (value.Value, error) {
	name := "OR"
	if isAnd {
		name = "AND"
	}
	if len(op.Values) == 0 {
		return value.Value{}, fmt.Errorf("%s: values list must not be empty", name)
	}
	for _, x := range op.Values {
		v, err := e.Eval(ctx, x)
		if err != nil {
			return value.Value{}, err
		}
		b, err := value.IsTrue(v, name)
		if err != nil {
			return value.Value{}, err
		}
		if isAnd && !b {
			return value.Bool(false), nil
		}
		if !isAnd && b {
			return value.Bool(true), nil
		}
	}
	return value.Bool(isAnd), nil
}

// evalForeach evaluates "over" strictly into a list, then evaluates "body"
// once per element with that element bound as "as" in loop-local scope,
// collecting results in order.
func (e *Evaluator) evalForeach(ctx *rescontext.Context, op *lawdoc.Operation) (value.Value, error) {
	if op.Over == nil || op.As == "" || op.Body == nil {
		return value.Value{}, fmt.Errorf("FOREACH: requires over, as, and body")
	}
	overVal, err := e.Eval(ctx, op.Over)
	if err != nil {
		return value.Value{}, err
	}
	items, ok := overVal.AsList()
	if !ok {
		return value.Value{}, fmt.Errorf("FOREACH: 'over' did not resolve to a list (got %s)", overVal.Kind())
	}
	results := make([]value.Value, len(items))
	for i, item := range items {
		childCtx := ctx.WithLoopLocal(op.As, item)
		v, err := e.Eval(childCtx, op.Body)
		if err != nil {
			return value.Value{}, fmt.Errorf("FOREACH: element %d: %w", i, err)
		}
		results[i] = v
	}
	return value.List(results), nil
}

func wrapOpErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == value.ErrDivisionByZero {
		return errs.DivisionByZero()
	}
	if _, ok := err.(*value.TypeError); ok {
		return errs.TypeError(op, err)
	}
	return err
}
