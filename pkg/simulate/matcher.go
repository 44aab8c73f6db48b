package simulate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coolbeans/regelrecht/pkg/service"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Outcome classifies how a scenario's actual evaluation compared to what
// was expected.
type Outcome string

const (
	OutcomePass  Outcome = "pass"  // actual matched Expected
	OutcomeFail  Outcome = "fail"  // actual differed from Expected
	OutcomeError Outcome = "error" // Evaluate itself returned an error
	OutcomeRan   Outcome = "ran"   // no Expected was set; only ran for its trace
)

// ScenarioResult is one scenario's evaluation outcome.
type ScenarioResult struct {
	Scenario *Scenario   `json:"scenario"`
	Outcome  Outcome     `json:"outcome"`
	Actual   value.Value `json:"-"`
	ActualStr string     `json:"actual,omitempty"`
	Err      string      `json:"error,omitempty"`
}

// RunSummary tallies a batch's outcomes.
type RunSummary struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Error int `json:"error"`
	Ran   int `json:"ran"`
}

// RunResult is the outcome of running a Batch against an Engine.
type RunResult struct {
	BatchName string            `json:"batch_name"`
	Results   []*ScenarioResult `json:"results"`
	Summary   RunSummary        `json:"summary"`
}

// Runner executes scenario batches against a fixed engine.
type Runner struct {
	engine *service.Engine
}

// NewRunner builds a Runner backed by engine.
func NewRunner(engine *service.Engine) *Runner {
	return &Runner{engine: engine}
}

// Run evaluates every scenario in batch against the runner's engine,
// independently — one scenario's error never aborts the rest of the batch.
func (r *Runner) Run(batch *Batch) *RunResult {
	result := &RunResult{BatchName: batch.Name}
	for _, scenario := range batch.Scenarios {
		sr := r.runOne(scenario)
		result.Results = append(result.Results, sr)
		result.Summary.Total++
		switch sr.Outcome {
		case OutcomePass:
			result.Summary.Pass++
		case OutcomeFail:
			result.Summary.Fail++
		case OutcomeError:
			result.Summary.Error++
		case OutcomeRan:
			result.Summary.Ran++
		}
	}
	return result
}

func (r *Runner) runOne(scenario *Scenario) *ScenarioResult {
	sr := &ScenarioResult{Scenario: scenario}

	date, err := value.ParseDate(scenario.ReferenceDate)
	if err != nil {
		sr.Outcome = OutcomeError
		sr.Err = fmt.Sprintf("invalid reference_date: %v", err)
		return sr
	}

	params, err := scenario.resolvedParameters()
	if err != nil {
		sr.Outcome = OutcomeError
		sr.Err = err.Error()
		return sr
	}

	execResult, err := r.engine.Evaluate(scenario.LawID, scenario.Output, params, date)
	if err != nil {
		sr.Outcome = OutcomeError
		sr.Err = err.Error()
		return sr
	}

	ov, ok := execResult.Outputs[scenario.Output]
	if !ok {
		sr.Outcome = OutcomeError
		sr.Err = fmt.Sprintf("evaluation produced no value for output %q", scenario.Output)
		return sr
	}
	actual := ov.Value
	sr.Actual = actual
	sr.ActualStr = value.Stringify(actual)

	expected, hasExpected, err := scenario.resolvedExpected()
	if err != nil {
		sr.Outcome = OutcomeError
		sr.Err = err.Error()
		return sr
	}
	if !hasExpected {
		sr.Outcome = OutcomeRan
		return sr
	}

	if value.Equal(actual, expected) {
		sr.Outcome = OutcomePass
	} else {
		sr.Outcome = OutcomeFail
	}
	return sr
}

// ToJSON serializes the result to JSON.
func (r *RunResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// String returns a human-readable summary of the run.
func (r *RunResult) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Scenario batch: %s\n", r.BatchName))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString("Summary:\n")
	sb.WriteString(fmt.Sprintf("  Total: %d\n", r.Summary.Total))
	sb.WriteString(fmt.Sprintf("  Pass:  %d\n", r.Summary.Pass))
	sb.WriteString(fmt.Sprintf("  Fail:  %d\n", r.Summary.Fail))
	sb.WriteString(fmt.Sprintf("  Error: %d\n", r.Summary.Error))
	sb.WriteString(fmt.Sprintf("  Ran:   %d\n\n", r.Summary.Ran))

	for _, sr := range r.Results {
		if sr.Outcome == OutcomePass {
			continue
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s (%s/%s)\n", sr.Outcome, sr.Scenario.Name, sr.Scenario.LawID, sr.Scenario.Output))
		if sr.Err != "" {
			sb.WriteString(fmt.Sprintf("    error: %s\n", sr.Err))
		} else if sr.Outcome == OutcomeFail {
			sb.WriteString(fmt.Sprintf("    expected: %v, got: %s\n", sr.Scenario.Expected, sr.ActualStr))
		}
	}

	return sb.String()
}

// FormatTable formats the result as a table.
func (r *RunResult) FormatTable() string {
	var sb strings.Builder

	sb.WriteString("+------------------------------+----------+--------------------------------+\n")
	sb.WriteString("| Scenario                     | Outcome  | Actual                         |\n")
	sb.WriteString("+------------------------------+----------+--------------------------------+\n")

	for _, sr := range r.Results {
		name := sr.Scenario.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		actual := sr.ActualStr
		if sr.Err != "" {
			actual = sr.Err
		}
		if len(actual) > 30 {
			actual = actual[:27] + "..."
		}
		sb.WriteString(fmt.Sprintf("| %-28s | %-8s | %-30s |\n", name, sr.Outcome, actual))
	}

	sb.WriteString("+------------------------------+----------+--------------------------------+\n")

	return sb.String()
}
