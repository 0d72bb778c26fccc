// Package repair drives the generate-execute-fix cycle for a single scene,
// bounded by an explicit attempt budget.
package repair

import (
	"errors"

	"github.com/papapumpkin/proofreel/internal/codegen"
	"github.com/papapumpkin/proofreel/internal/sandbox"
)

// ErrMaxAttempts is the terminal condition when every attempt in the budget
// failed to render.
var ErrMaxAttempts = errors.New("maximum render attempts reached")

// Phase represents a stage in the repair loop lifecycle.
type Phase int

const (
	PhaseGenerating Phase = iota // Coder agent is producing source.
	PhaseExecuting               // Sandbox is rendering an artifact.
	PhaseRetrying                // Execution failed, budget remains.
	PhaseDone                    // Terminal: a render succeeded.
	PhaseFailed                  // Terminal: budget exhausted or generation failed.
)

// String returns the snake_case name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseGenerating:
		return "generating"
	case PhaseExecuting:
		return "executing"
	case PhaseRetrying:
		return "retrying"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt pairs one code artifact with its execution result. NoProgress is
// set when a failure repeats the previous attempt's kind and detail exactly;
// it still consumes a budget slot but is surfaced for reporting.
type Attempt struct {
	Artifact   codegen.CodeArtifact
	Result     sandbox.Result
	NoProgress bool
}

// Outcome is the terminal state of a scene's repair loop. Phase is always
// PhaseDone or PhaseFailed; Attempts holds the full history, at most the
// configured budget.
type Outcome struct {
	SceneIndex int
	Phase      Phase
	Result     sandbox.Result // final execution result; zero if generation itself failed
	Attempts   []Attempt
	Reason     string // human-readable summary for the pipeline report
}
