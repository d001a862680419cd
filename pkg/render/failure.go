// pkg/render/failure.go

package render

import (
	"context"
	"errors"
	"fmt"
)

// Reason classifies why a render failed.
type Reason string

const (
	EngineUnavailable   Reason = "EngineUnavailable"
	RenderTimeout       Reason = "RenderTimeout"
	EngineCommError     Reason = "EngineCommError"
	TemplateUnavailable Reason = "TemplateUnavailable"
	Unknown             Reason = "Unknown"
)

// Retryable reports whether another attempt can help.
// Launch and template problems are configuration faults and are not retried.
func (r Reason) Retryable() bool {
	return r == RenderTimeout || r == EngineCommError
}

// Failure is the only error type Render returns. Err keeps the engine's
// diagnostic error for logs; it is not meant for end users.
type Failure struct {
	Reason Reason
	Err    error
}

// Fail tags err with reason. Engines use it at the point where they know the cause.
func Fail(reason Reason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("render failed: %s", f.Reason)
	}
	return fmt.Sprintf("render failed: %s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// UserMessage is safe to show to end users.
func (f *Failure) UserMessage() string {
	switch f.Reason {
	case RenderTimeout:
		return "PDF generation timed out, please try again"
	case EngineUnavailable, TemplateUnavailable:
		return "PDF generation is currently unavailable"
	default:
		return "PDF generation failed"
	}
}

// Classify converts any engine error into a Failure. Errors already tagged by
// the engine keep their reason; a bare deadline is a timeout; everything else
// is Unknown.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Fail(RenderTimeout, err)
	}
	return Fail(Unknown, err)
}

// ReasonOf returns the failure reason carried by err, or "" if there is none.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}
