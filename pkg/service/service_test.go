package service

import (
	"testing"

	"github.com/coolbeans/regelrecht/pkg/datasource"
	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) value.Date {
	t.Helper()
	d, err := value.ParseDate(s)
	require.NoError(t, err)
	return d
}

func lit(v value.Value) lawdoc.Expr { return lawdoc.Expr{Kind: lawdoc.ExprLiteral, Literal: v} }

func varRef(name string) lawdoc.Expr { return lawdoc.Expr{Kind: lawdoc.ExprVarRef, VarRef: name} }

func TestEvaluateSimpleArticle(t *testing.T) {
	eng := NewEngine()
	law := &lawdoc.Law{
		LawID:     "zvw",
		ValidFrom: date(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "2.1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{
					Parameters: []lawdoc.Parameter{{Name: "leeftijd"}},
					Output:     []lawdoc.Output{{Name: "is_volwassen"}},
					Actions: []lawdoc.Action{{
						Output: "is_volwassen",
						Value: lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
							Operation: "GREATER_THAN_OR_EQUAL",
							Subject:   ptrExpr(varRef("$leeftijd")),
							Value:     ptrExpr(lit(value.Int(18))),
						}},
					}},
				},
			},
		}},
	}
	_, err := eng.LoadLaw(law)
	require.NoError(t, err)

	result, err := eng.Evaluate("zvw", "is_volwassen", map[string]value.Value{"leeftijd": value.Int(20)}, date(t, "2023-06-01"))
	require.NoError(t, err)
	b, _ := result.Outputs["is_volwassen"].Value.AsBool()
	assert.True(t, b)
}

func TestEvaluateMissingParameterFails(t *testing.T) {
	eng := NewEngine()
	law := &lawdoc.Law{
		LawID:     "zvw",
		ValidFrom: date(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "2.1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{
					Parameters: []lawdoc.Parameter{{Name: "leeftijd"}},
					Output:     []lawdoc.Output{{Name: "x"}},
					Actions:    []lawdoc.Action{{Output: "x", Value: lit(value.Int(1))}},
				},
			},
		}},
	}
	_, err := eng.LoadLaw(law)
	require.NoError(t, err)

	_, err = eng.Evaluate("zvw", "x", nil, date(t, "2023-06-01"))
	assert.Error(t, err)
}

func TestEvaluateLeafInputFromDataSource(t *testing.T) {
	eng := NewEngine()
	eng.AddDataSource("ages", 10, []string{"bsn"}, []datasource.Record{
		{"bsn": value.String("111"), "leeftijd": value.Int(42)},
	})
	law := &lawdoc.Law{
		LawID:     "zvw",
		ValidFrom: date(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "2.1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{
					Parameters: []lawdoc.Parameter{{Name: "bsn"}},
					Input:      []lawdoc.Input{{Name: "leeftijd"}},
					Output:     []lawdoc.Output{{Name: "leeftijd_plus_1"}},
					Actions: []lawdoc.Action{{
						Output: "leeftijd_plus_1",
						Value: lawdoc.Expr{Kind: lawdoc.ExprOperation, Op: &lawdoc.Operation{
							Operation: "ADD",
							Subject:   ptrExpr(varRef("$leeftijd")),
							Value:     ptrExpr(lit(value.Int(1))),
						}},
					}},
				},
			},
		}},
	}
	_, err := eng.LoadLaw(law)
	require.NoError(t, err)

	result, err := eng.Evaluate("zvw", "leeftijd_plus_1", map[string]value.Value{"bsn": value.String("111")}, date(t, "2023-06-01"))
	require.NoError(t, err)
	i, _ := result.Outputs["leeftijd_plus_1"].Value.AsInt()
	assert.Equal(t, int64(43), i)
	i, _ = result.ResolvedInputs["leeftijd"].AsInt()
	assert.Equal(t, int64(42), i)
}

func TestEvaluateCrossLawForwardsParameters(t *testing.T) {
	eng := NewEngine()
	base := &lawdoc.Law{
		LawID:     "zvw",
		ValidFrom: date(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "1.1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{
					Parameters: []lawdoc.Parameter{{Name: "bsn"}},
					Output:     []lawdoc.Output{{Name: "drempelinkomen"}},
					Actions:    []lawdoc.Action{{Output: "drempelinkomen", Value: lit(value.Int(35000))}},
				},
			},
		}},
	}
	dependent := &lawdoc.Law{
		LawID:     "zorgtoeslagwet",
		ValidFrom: date(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "2.1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{
					Parameters: []lawdoc.Parameter{{Name: "BSN"}},
					Input: []lawdoc.Input{{
						Name: "drempelinkomen",
						Source: &lawdoc.Source{
							Regulation: "zvw",
							Output:     "drempelinkomen",
							Parameters: lawdoc.Definitions{{Name: "bsn", Value: varRef("$BSN")}},
						},
					}},
					Output:  []lawdoc.Output{{Name: "onder_drempel"}},
					Actions: []lawdoc.Action{{Output: "onder_drempel", Value: varRef("$drempelinkomen")}},
				},
			},
		}},
	}
	_, err := eng.LoadLaw(base)
	require.NoError(t, err)
	_, err = eng.LoadLaw(dependent)
	require.NoError(t, err)

	result, err := eng.Evaluate("zorgtoeslagwet", "onder_drempel", map[string]value.Value{"BSN": value.String("999")}, date(t, "2023-06-01"))
	require.NoError(t, err)
	i, _ := result.Outputs["onder_drempel"].Value.AsInt()
	assert.Equal(t, int64(35000), i)
	require.GreaterOrEqual(t, result.Trace.Len(), 1)
}

func TestEvaluateDelegationFallsBackToDefault(t *testing.T) {
	eng := NewEngine()
	base := &lawdoc.Law{
		LawID:     "afstemmingsverordening",
		ValidFrom: date(t, "2020-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "1",
			MachineReadable: &lawdoc.MachineReadable{
				LegalBasisFor: &lawdoc.LegalBasisFor{
					DelegationID: "afstemmingsverordening",
					Defaults:     lawdoc.Definitions{{Name: "minimale_afstand_cm", Value: lit(value.Int(200))}},
				},
				Execution: &lawdoc.Execution{
					Parameters: []lawdoc.Parameter{{Name: "gemeente_code"}},
					Input: []lawdoc.Input{{
						Name: "minimale_afstand_cm",
						Source: &lawdoc.Source{
							Delegation: "afstemmingsverordening",
							Output:     "minimale_afstand_cm",
						},
					}},
					Output:  []lawdoc.Output{{Name: "minimale_afstand_cm"}},
					Actions: []lawdoc.Action{{Output: "minimale_afstand_cm", Value: varRef("$minimale_afstand_cm")}},
				},
			},
		}},
	}
	_, err := eng.LoadLaw(base)
	require.NoError(t, err)

	result, err := eng.Evaluate("afstemmingsverordening", "minimale_afstand_cm", map[string]value.Value{"gemeente_code": value.String("GM9999")}, date(t, "2025-01-01"))
	require.NoError(t, err)
	i, _ := result.Outputs["minimale_afstand_cm"].Value.AsInt()
	assert.Equal(t, int64(200), i)
}

func TestEvaluateCycleDetected(t *testing.T) {
	eng := NewEngine()
	law := &lawdoc.Law{
		LawID:     "circular",
		ValidFrom: date(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{
					Input: []lawdoc.Input{{
						Name: "x",
						Source: &lawdoc.Source{
							Regulation: "circular",
							Output:     "x",
						},
					}},
					Output:  []lawdoc.Output{{Name: "x"}},
					Actions: []lawdoc.Action{{Output: "x", Value: varRef("$x")}},
				},
			},
		}},
	}
	_, err := eng.LoadLaw(law)
	require.NoError(t, err)

	_, err = eng.Evaluate("circular", "x", nil, date(t, "2023-06-01"))
	assert.Error(t, err)
}

func ptrExpr(e lawdoc.Expr) *lawdoc.Expr { return &e }
