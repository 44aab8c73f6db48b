package eval

import (
	"testing"

	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/rescontext"
	"github.com/coolbeans/regelrecht/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(v value.Value) *lawdoc.Expr { return &lawdoc.Expr{Kind: lawdoc.ExprLiteral, Literal: v} }

func varRef(name string) *lawdoc.Expr { return &lawdoc.Expr{Kind: lawdoc.ExprVarRef, VarRef: name} }

func newCtx(t *testing.T, params map[string]value.Value) *rescontext.Context {
	t.Helper()
	d, err := value.ParseDate("2024-06-01")
	require.NoError(t, err)
	c := rescontext.New("zvw", "2.1", d, params, nil, nil, nil)
	c.Evaluator = New()
	return c
}

func TestEvalLiteralAndVarRef(t *testing.T) {
	e := New()
	ctx := newCtx(t, map[string]value.Value{"leeftijd": value.Int(30)})

	v, err := e.Eval(ctx, lit(value.Int(7)))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(7), i)

	v, err = e.Eval(ctx, varRef("$leeftijd"))
	require.NoError(t, err)
	i, _ = v.AsInt()
	assert.Equal(t, int64(30), i)
}

// Scenario-2-shaped calculation from the monetary math reference: 1.08 * 12 * 200000.
func TestEvalArithmeticVariadicMonetary(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "MULTIPLY",
		Values:    []*lawdoc.Expr{lit(value.Float(1.08)), lit(value.Int(12)), lit(value.Int(200000))},
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.InDelta(t, 2592000.0, f, 0.001)
}

func TestEvalIfLaziness(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	// The else branch references an undefined variable; if IF were not
	// lazy this would fail even though the condition is true.
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "IF",
		When:      lit(value.Bool(true)),
		Then:      lit(value.Int(1)),
		Else:      varRef("$never_defined"),
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(1), i)
}

func TestEvalSwitchFirstMatchWins(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "SWITCH",
		Cases: []lawdoc.Case{
			{When: lit(value.Bool(false)), Then: lit(value.String("no"))},
			{When: lit(value.Bool(true)), Then: lit(value.String("yes"))},
		},
		Default: lit(value.String("default")),
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "yes", s)
}

func TestEvalAndShortCircuits(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "AND",
		Values:    []*lawdoc.Expr{lit(value.Bool(false)), varRef("$never_defined")},
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.False(t, b)
}

func TestEvalOrShortCircuits(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "OR",
		Values:    []*lawdoc.Expr{lit(value.Bool(true)), varRef("$never_defined")},
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestEvalForeachBindsLoopLocal(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "FOREACH",
		Over:      lit(value.List([]value.Value{value.Int(1), value.Int(2), value.Int(3)})),
		As:        "lid",
		Body: &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
			Operation: "ADD",
			Subject:   varRef("$lid"),
			Value:     lit(value.Int(10)),
		}},
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	items, ok := v.AsList()
	require.True(t, ok)
	require.Len(t, items, 3)
	i0, _ := items[0].AsInt()
	i2, _ := items[2].AsInt()
	assert.Equal(t, int64(11), i0)
	assert.Equal(t, int64(13), i2)
}

func TestEvalForeachOverNonListFails(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "FOREACH",
		Over:      lit(value.Int(5)),
		As:        "x",
		Body:      varRef("$x"),
	}}
	_, err := e.Eval(ctx, expr)
	assert.Error(t, err)
}

func TestEvalDivisionByZeroFails(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "DIVIDE",
		Subject:   lit(value.Int(1)),
		Value:     lit(value.Int(0)),
	}}
	_, err := e.Eval(ctx, expr)
	assert.Error(t, err)
}

func TestEvalNotNullAndConcat(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)

	notNull := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "NOT_NULL",
		Subject:   lit(value.Int(1)),
	}}
	v, err := e.Eval(ctx, notNull)
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)

	concat := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "CONCAT",
		Values:    []*lawdoc.Expr{lit(value.String("totaal: ")), lit(value.Int(42))},
	}}
	v, err = e.Eval(ctx, concat)
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "totaal: 42", s)
}

func TestEvalSubtractDateAnniversaryCapped(t *testing.T) {
	e := New()
	ctx := newCtx(t, nil)
	subject, err := value.ParseDate("2021-02-28")
	require.NoError(t, err)
	earlier, err := value.ParseDate("2020-02-29")
	require.NoError(t, err)

	expr := &lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
		Operation: "SUBTRACT_DATE",
		Subject:   lit(value.FromDate(subject)),
		Value:     lit(value.FromDate(earlier)),
		Unit:      "years",
	}}
	v, err := e.Eval(ctx, expr)
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(1), i)
}
