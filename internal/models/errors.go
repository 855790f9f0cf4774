package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Kinds are contained at the node
// boundary; none of them abort the analysis graph.
type ErrorKind string

const (
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	ErrInterfaceFetch      ErrorKind = "interface_fetch_failed"
	ErrEmptyWindow         ErrorKind = "empty_window"
	ErrSummarizer          ErrorKind = "summarizer_failed"
	ErrReportParse         ErrorKind = "report_parse_failed"
	ErrPipelineInternal    ErrorKind = "pipeline_internal"
	ErrRequestInvalid      ErrorKind = "request_invalid"
	ErrNotFound            ErrorKind = "not_found"
)

// Failure markers preserved verbatim in summaries and reports; downstream
// consumers match on these prefixes.
const (
	MarkerReportError  = "生成报告时出错"
	MarkerSummaryError = "生成摘要时出错"
	MarkerFetchError   = "数据获取失败"
	MarkerVendorError  = "Error code:"
)

// AnalysisError carries a kind alongside the wrapped cause.
type AnalysisError struct {
	Kind ErrorKind
	Op   string // component.operation, e.g. "acquisition.fina_indicator"
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// NewError wraps err with a kind and operation label.
func NewError(kind ErrorKind, op string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the error kind; ErrPipelineInternal when untyped.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrPipelineInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
