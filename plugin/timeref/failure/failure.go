// Package failure defines the terminal failure states of time-reference
// resolution. Every failure carries a code and, for parse and resolution
// failures, the partial data the caller needs to explain what went wrong.
package failure

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies a failure class.
type Code string

const (
	// CodeInvalidInput indicates empty or oversized input. Carries no partial data.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeUnparseable indicates no temporal content was found.
	CodeUnparseable Code = "UNPARSEABLE"
	// CodeAmbiguousUnresolvable indicates a zone qualifier with no rankable candidates.
	CodeAmbiguousUnresolvable Code = "AMBIGUOUS_UNRESOLVABLE"
	// CodeGhostTime indicates the moment never existed in the chosen zone.
	CodeGhostTime Code = "GHOST_TIME"
	// CodeInvalidContext indicates missing or malformed resolution context.
	CodeInvalidContext Code = "INVALID_CONTEXT"
	// CodeInternal indicates a bug. The only class operators need to look at.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Candidate is a zone candidate that was considered and why it was not used.
type Candidate struct {
	Label     string `json:"label"`
	IANA      string `json:"iana,omitempty"`
	UTCOffset string `json:"utcOffset,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Ghost describes the calendar anomaly behind a GHOST_TIME failure.
type Ghost struct {
	Rule        string `json:"rule"`
	Kind        string `json:"kind"`
	Explanation string `json:"explanation"`
}

// Partial is what the pipeline knew when it stopped.
type Partial struct {
	Input          string
	DetectedPhrase string
	Candidates     []Candidate
	Ghost          *Ghost
	Trace          []string
}

// Failure is a structured resolution failure.
type Failure struct {
	Code    Code
	Message string
	Cause   error
	Partial *Partial
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Code, f.Message, f.Cause)
	}
	return fmt.Sprintf("[%s] %s", f.Code, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// WithPartial attaches partial data to the failure.
func (f *Failure) WithPartial(p *Partial) *Failure {
	f.Partial = p
	return f
}

// WithTrace attaches the trace so far, creating the partial block if needed.
func (f *Failure) WithTrace(trace []string) *Failure {
	if f.Partial == nil {
		f.Partial = &Partial{}
	}
	f.Partial.Trace = trace
	return f
}

// InvalidInput creates an input validation failure.
func InvalidInput(msg string) *Failure {
	return &Failure{Code: CodeInvalidInput, Message: msg}
}

// Unparseable creates a failure that echoes the input back.
func Unparseable(input string) *Failure {
	return &Failure{
		Code:    CodeUnparseable,
		Message: "no recognizable time, date or timestamp was found in the input",
		Partial: &Partial{Input: input},
	}
}

// AmbiguousUnresolvable creates a failure for a zone qualifier that cannot be ranked.
func AmbiguousUnresolvable(msg string, partial *Partial) *Failure {
	return &Failure{Code: CodeAmbiguousUnresolvable, Message: msg, Partial: partial}
}

// GhostTime creates a failure for a moment that never existed.
func GhostTime(msg string, partial *Partial) *Failure {
	return &Failure{Code: CodeGhostTime, Message: msg, Partial: partial}
}

// InvalidContext creates a context failure.
func InvalidContext(msg string, partial *Partial) *Failure {
	return &Failure{Code: CodeInvalidContext, Message: msg, Partial: partial}
}

// Internal wraps an unexpected error.
func Internal(cause error) *Failure {
	return &Failure{Code: CodeInternal, Message: "internal error while resolving the time reference", Cause: cause}
}

// As extracts a *Failure from err.
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsCode checks if an error is a failure with a specific code.
func IsCode(err error, code Code) bool {
	f, ok := As(err)
	return ok && f.Code == code
}

// CodeOf extracts the failure code, defaulting to CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if f, ok := As(err); ok {
		return f.Code
	}
	return CodeInternal
}
