// Package errs implements the engine's error taxonomy on top of
// github.com/samber/oops, so every failure the core returns carries a
// stable Code plus the contextual fields (law_id, article_number,
// output_name) the host-binding error shape requires.
package errs

import (
	"github.com/samber/oops"

	"github.com/coolbeans/regelrecht/pkg/trace"
	"github.com/coolbeans/regelrecht/pkg/value"
)

// Code values mirror the engine's error taxonomy.
const (
	CodeSchemaError             = "SCHEMA_ERROR"
	CodeLawNotFound             = "LAW_NOT_FOUND"
	CodeOutputNotFound          = "OUTPUT_NOT_FOUND"
	CodeArticleNotFound         = "ARTICLE_NOT_FOUND"
	CodeMissingInput            = "MISSING_INPUT"
	CodeMissingParameter        = "MISSING_PARAMETER"
	CodeTypeError               = "TYPE_ERROR"
	CodeDivisionByZero          = "DIVISION_BY_ZERO"
	CodeCycleDetected           = "CYCLE_DETECTED"
	CodeDepthExceeded           = "DEPTH_EXCEEDED"
	CodeNoRegulationFound       = "NO_REGULATION_FOUND"
	CodeDataSourceLookupFailure = "DATA_SOURCE_LOOKUP_FAILURE"
)

// LawNotFound reports that no version of lawID is valid on date.
func LawNotFound(lawID string, date value.Date) error {
	return oops.
		Code(CodeLawNotFound).
		In("resolver").
		With("law_id", lawID).
		With("reference_date", date.String()).
		Errorf("no version of law %q is valid on %s", lawID, date)
}

// OutputNotFound reports that no article of lawID's resolved version
// declares the named output.
func OutputNotFound(lawID, output string, date value.Date) error {
	return oops.
		Code(CodeOutputNotFound).
		In("resolver").
		With("law_id", lawID).
		With("output_name", output).
		With("reference_date", date.String()).
		Errorf("law %q has no article producing output %q on %s", lawID, output, date)
}

// ArticleNotFound reports that the named article does not exist in lawID's
// resolved version.
func ArticleNotFound(lawID, articleNumber string) error {
	return oops.
		Code(CodeArticleNotFound).
		In("resolver").
		With("law_id", lawID).
		With("article_number", articleNumber).
		Errorf("law %q has no article %q", lawID, articleNumber)
}

// MissingInput reports that the nine-step resolution chain exhausted every
// source for name without finding a value.
func MissingInput(name string) error {
	return oops.
		Code(CodeMissingInput).
		In("rescontext").
		With("name", name).
		Errorf("no resolution step produced a value for %q", name)
}

// MissingParameter reports a caller-supplied parameter set lacking a value
// the execution block requires.
func MissingParameter(name string) error {
	return oops.
		Code(CodeMissingParameter).
		In("service").
		With("name", name).
		Errorf("required parameter %q was not supplied", name)
}

// TypeError wraps a value-model TypeError (or any operator type failure)
// with the taxonomy code.
func TypeError(op string, err error) error {
	return oops.
		Code(CodeTypeError).
		In("eval").
		With("operation", op).
		Wrap(err)
}

// DivisionByZero reports a DIVIDE with a zero divisor.
func DivisionByZero() error {
	return oops.
		Code(CodeDivisionByZero).
		In("eval").
		Errorf("division by zero")
}

// CycleDetected reports that (lawID, output) was already on the service's
// visited set when a recursive invocation was about to start.
func CycleDetected(lawID, output string) error {
	return oops.
		Code(CodeCycleDetected).
		In("service").
		With("law_id", lawID).
		With("output_name", output).
		Errorf("cycle detected: (%s, %s) is already being evaluated", lawID, output)
}

// DepthExceeded reports that a recursion depth guard (50 same-law, 20
// cross-law) was hit.
func DepthExceeded(kind string, limit int) error {
	return oops.
		Code(CodeDepthExceeded).
		In("service").
		With("guard", kind).
		With("limit", limit).
		Errorf("%s recursion depth exceeded (limit %d)", kind, limit)
}

// NoRegulationFound reports a mandatory delegation with no matching
// municipal regulation and no default.
func NoRegulationFound(delegationID string) error {
	return oops.
		Code(CodeNoRegulationFound).
		In("service").
		With("delegation_id", delegationID).
		Errorf("no municipal regulation found for delegation %q and no default was declared", delegationID)
}

// DataSourceLookupFailure reports a provider that matched the criteria but
// held no record.
func DataSourceLookupFailure(provider, field string) error {
	return oops.
		Code(CodeDataSourceLookupFailure).
		In("datasource").
		With("provider", provider).
		With("field", field).
		Errorf("data source %q has no record for %q matching the given criteria", provider, field)
}

// SchemaError reports a load-time structural validation failure, carrying
// the full list of issues found.
func SchemaError(issues []string) error {
	builder := oops.Code(CodeSchemaError).In("loader")
	if len(issues) > 0 {
		builder = builder.With("issues", issues)
	}
	return builder.Errorf("law document failed schema validation (%d issue(s))", len(issues))
}

// Info is the host-facing error shape: { kind, message, law_id?,
// article_number?, output_name?, trace_so_far }. TraceSoFar is populated by
// DescribeWithTrace, the only place that has access to the partial trace
// the service layer accumulated before the failure.
type Info struct {
	Kind          string       `json:"kind"`
	Message       string       `json:"message"`
	LawID         string       `json:"law_id,omitempty"`
	ArticleNumber string       `json:"article_number,omitempty"`
	OutputName    string       `json:"output_name,omitempty"`
	TraceSoFar    *trace.Trace `json:"trace_so_far,omitempty"`
}

// Describe extracts the host-facing fields from an error produced by this
// package. Errors not constructed via this package still describe
// meaningfully: Kind is empty and Message is err.Error(). TraceSoFar is left
// nil; callers that have a partial trace should use DescribeWithTrace.
func Describe(err error) Info {
	if err == nil {
		return Info{}
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return Info{Message: err.Error()}
	}
	ctx := oopsErr.Context()
	info := Info{
		Kind:    oopsErr.Code(),
		Message: oopsErr.Error(),
	}
	if v, ok := ctx["law_id"].(string); ok {
		info.LawID = v
	}
	if v, ok := ctx["article_number"].(string); ok {
		info.ArticleNumber = v
	}
	if v, ok := ctx["output_name"].(string); ok {
		info.OutputName = v
	}
	return info
}

// DescribeWithTrace is Describe plus the partial trace accumulated before
// err occurred, so a caller can display where evaluation halted. tr may be
// nil, e.g. when the failure happened before any resolution context existed
// (law or output lookup); TraceSoFar is then left nil too.
func DescribeWithTrace(err error, tr *trace.Trace) Info {
	info := Describe(err)
	if tr != nil && tr.Len() > 0 {
		info.TraceSoFar = tr
	}
	return info
}
