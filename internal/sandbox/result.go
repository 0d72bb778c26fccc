// Package sandbox runs generated Manim source in an isolated workspace and
// classifies the outcome.
package sandbox

import "time"

// FailureKind classifies why an execution failed.
type FailureKind int

const (
	FailureNone    FailureKind = iota
	FailureSyntax              // code does not parse
	FailureRuntime             // manim raised during rendering
	FailureTimeout             // wall-clock render budget exceeded
	FailureResource            // out of memory / disk / workspace trouble
)

// String returns the snake_case name of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureSyntax:
		return "syntax_error"
	case FailureRuntime:
		return "runtime_error"
	case FailureTimeout:
		return "render_timeout"
	case FailureResource:
		return "resource_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of executing one code artifact: either a rendered
// video (OK) or a classified failure. It is a value, not an error; only the
// repair loop decides what a failure means.
type Result struct {
	OK        bool
	VideoPath string
	Duration  time.Duration
	Kind      FailureKind
	Detail    string
}

func success(path string, d time.Duration) Result {
	return Result{OK: true, VideoPath: path, Duration: d}
}

func failure(kind FailureKind, detail string) Result {
	return Result{Kind: kind, Detail: detail}
}
