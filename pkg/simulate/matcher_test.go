package simulate

import (
	"strings"
	"testing"

	"github.com/coolbeans/regelrecht/pkg/loader"
	"github.com/coolbeans/regelrecht/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLaw = `
$id: zvw
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "2.1"
    text: Verzekeringsplicht
    machine_readable:
      public: true
      execution:
        parameters:
          - name: inkomen
        output:
          - name: premieplichtig
        actions:
          - output: premieplichtig
            value:
              operation: GREATER_THAN
              subject: $inkomen
              value: 20000
`

func testEngine(t *testing.T) *service.Engine {
	t.Helper()
	law, _, err := loader.New().Load([]byte(testLaw))
	require.NoError(t, err)
	engine := service.NewEngine()
	_, err = engine.LoadLaw(law)
	require.NoError(t, err)
	return engine
}

func TestRunnerPassWhenOutputMatchesExpected(t *testing.T) {
	engine := testEngine(t)
	batch := &Batch{
		Name: "premie",
		Scenarios: []*Scenario{
			NewScenario("above threshold", "zvw", "premieplichtig", "2024-01-01").
				WithParameter("inkomen", 25000).
				WithExpected(true),
		},
	}

	result := NewRunner(engine).Run(batch)

	require.Len(t, result.Results, 1)
	assert.Equal(t, OutcomePass, result.Results[0].Outcome)
	assert.Equal(t, 1, result.Summary.Pass)
	assert.Equal(t, 0, result.Summary.Fail)
}

func TestRunnerFailWhenOutputDiffersFromExpected(t *testing.T) {
	engine := testEngine(t)
	batch := &Batch{
		Name: "premie",
		Scenarios: []*Scenario{
			NewScenario("below threshold", "zvw", "premieplichtig", "2024-01-01").
				WithParameter("inkomen", 5000).
				WithExpected(true),
		},
	}

	result := NewRunner(engine).Run(batch)

	require.Len(t, result.Results, 1)
	assert.Equal(t, OutcomeFail, result.Results[0].Outcome)
	assert.Equal(t, 1, result.Summary.Fail)
}

func TestRunnerErrorsOnUnknownLaw(t *testing.T) {
	engine := testEngine(t)
	batch := &Batch{
		Name: "premie",
		Scenarios: []*Scenario{
			NewScenario("missing law", "nonexistent", "premieplichtig", "2024-01-01"),
		},
	}

	result := NewRunner(engine).Run(batch)

	require.Len(t, result.Results, 1)
	assert.Equal(t, OutcomeError, result.Results[0].Outcome)
	assert.Equal(t, 1, result.Summary.Error)
}

func TestRunnerRanOutcomeWhenNoExpectationSet(t *testing.T) {
	engine := testEngine(t)
	batch := &Batch{
		Name: "premie",
		Scenarios: []*Scenario{
			NewScenario("explore", "zvw", "premieplichtig", "2024-01-01").
				WithParameter("inkomen", 25000),
		},
	}

	result := NewRunner(engine).Run(batch)

	require.Len(t, result.Results, 1)
	assert.Equal(t, OutcomeRan, result.Results[0].Outcome)
	assert.Equal(t, 1, result.Summary.Ran)
}

func TestRunnerBatchMixesOutcomes(t *testing.T) {
	engine := testEngine(t)
	batch := &Batch{
		Name: "mixed",
		Scenarios: []*Scenario{
			NewScenario("pass", "zvw", "premieplichtig", "2024-01-01").WithParameter("inkomen", 25000).WithExpected(true),
			NewScenario("fail", "zvw", "premieplichtig", "2024-01-01").WithParameter("inkomen", 1000).WithExpected(true),
			NewScenario("error", "nope", "premieplichtig", "2024-01-01"),
		},
	}

	result := NewRunner(engine).Run(batch)

	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Pass)
	assert.Equal(t, 1, result.Summary.Fail)
	assert.Equal(t, 1, result.Summary.Error)

	rendered := result.String()
	assert.Contains(t, rendered, "mixed")
	assert.True(t, strings.Contains(rendered, "fail") || strings.Contains(rendered, "error"))
}

func TestScenarioJSONRoundTrip(t *testing.T) {
	s := NewScenario("round trip", "zvw", "premieplichtig", "2024-01-01").
		WithParameter("inkomen", 25000).
		WithExpected(true).
		AddKeyword("premie")

	raw, err := s.ToJSON()
	require.NoError(t, err)

	parsed, err := ScenarioFromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, s.Name, parsed.Name)
	assert.Equal(t, s.LawID, parsed.LawID)
	assert.Equal(t, s.Output, parsed.Output)
}

func TestFormatTableListsEveryScenario(t *testing.T) {
	engine := testEngine(t)
	batch := &Batch{
		Name: "premie",
		Scenarios: []*Scenario{
			NewScenario("above threshold", "zvw", "premieplichtig", "2024-01-01").
				WithParameter("inkomen", 25000).
				WithExpected(true),
		},
	}

	result := NewRunner(engine).Run(batch)
	table := result.FormatTable()
	assert.Contains(t, table, "above threshold")
}
