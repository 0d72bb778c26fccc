package repair

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/proofreel/internal/codegen"
	"github.com/papapumpkin/proofreel/internal/plan"
	"github.com/papapumpkin/proofreel/internal/sandbox"
	"github.com/papapumpkin/proofreel/internal/telemetry"
	"github.com/papapumpkin/proofreel/internal/ui"
)

// DefaultMaxAttempts is the render budget used when none is configured.
const DefaultMaxAttempts = 3

// Generator produces the next code artifact for a scene, carrying repair
// context explicitly.
type Generator interface {
	Generate(ctx context.Context, scene plan.Scene, prior *codegen.CodeArtifact, priorErr string) (codegen.CodeArtifact, error)
}

// Executor renders one artifact and classifies the outcome.
type Executor interface {
	Execute(ctx context.Context, artifact codegen.CodeArtifact) sandbox.Result
}

// Loop orchestrates the generate-execute-fix cycle for a single scene.
// Failures feed back into the next generation call as (prior, priorErr);
// the loop never exceeds MaxAttempts executions.
type Loop struct {
	Generator   Generator
	Executor    Executor
	MaxAttempts int
	UI          ui.UI              // optional
	Telemetry   *telemetry.Emitter // optional; nil-safe
	DebugDir    string             // optional: every attempt's source and error is kept here
	CodeDir     string             // optional: the successful attempt's source is kept here
}

// Run resolves the scene to a terminal Outcome. It returns a non-nil Outcome
// in every case; a generation failure or exhausted budget is a Failed
// outcome, not a Go error, so one scene's failure never aborts its siblings.
func (l *Loop) Run(ctx context.Context, scene plan.Scene) Outcome {
	max := l.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}

	var (
		prior    *codegen.CodeArtifact
		priorErr string
		attempts []Attempt
		last     sandbox.Result
	)

	for attempt := 1; attempt <= max; attempt++ {
		if ctx.Err() != nil {
			return l.failed(scene.Index, attempts, last, fmt.Sprintf("canceled before attempt %d", attempt))
		}

		l.emit(telemetry.KindAttemptStart, scene.Index, map[string]int{"attempt": attempt})

		artifact, err := l.Generator.Generate(ctx, scene, prior, priorErr)
		if err != nil {
			// Generation failure is terminal: there is no artifact to repair.
			return l.failed(scene.Index, attempts, last,
				fmt.Sprintf("code generation failed on attempt %d: %v", attempt, err))
		}
		l.keepSource(artifact)

		result := l.Executor.Execute(ctx, artifact)
		att := Attempt{Artifact: artifact, Result: result}
		if !result.OK && len(attempts) > 0 {
			prev := attempts[len(attempts)-1].Result
			att.NoProgress = !prev.OK && prev.Kind == result.Kind && prev.Detail == result.Detail
		}
		attempts = append(attempts, att)

		if result.OK {
			l.keepFinal(artifact)
			l.emit(telemetry.KindSceneRendered, scene.Index, map[string]int{"attempt": attempt})
			return Outcome{
				SceneIndex: scene.Index,
				Phase:      PhaseDone,
				Result:     result,
				Attempts:   attempts,
				Reason:     fmt.Sprintf("rendered on attempt %d/%d", attempt, max),
			}
		}

		l.keepError(scene.Index, attempt, result)
		if l.UI != nil {
			l.UI.AttemptFailed(scene.Index, attempt, max, result.Kind.String())
		}
		l.emit(telemetry.KindAttemptFailed, scene.Index, map[string]string{
			"kind":   result.Kind.String(),
			"detail": truncate(result.Detail, 500),
		})

		prior = &attempts[len(attempts)-1].Artifact
		priorErr = result.Kind.String() + ": " + result.Detail
		last = result
	}

	return l.failed(scene.Index, attempts, last,
		fmt.Sprintf("%v: %s after %d attempts", ErrMaxAttempts, last.Kind, max))
}

func (l *Loop) failed(sceneIndex int, attempts []Attempt, last sandbox.Result, reason string) Outcome {
	l.emit(telemetry.KindSceneFailed, sceneIndex, map[string]string{"reason": reason})
	return Outcome{
		SceneIndex: sceneIndex,
		Phase:      PhaseFailed,
		Result:     last,
		Attempts:   attempts,
		Reason:     reason,
	}
}

// keepSource writes the attempt's source into the debug directory.
func (l *Loop) keepSource(artifact codegen.CodeArtifact) {
	if l.DebugDir == "" {
		return
	}
	path := filepath.Join(l.DebugDir, fmt.Sprintf("scene_%02d_attempt_%d.py", artifact.SceneIndex, artifact.Attempt))
	_ = os.WriteFile(path, []byte(artifact.Source), 0o644)
}

// keepFinal writes the rendering source alongside the run's other outputs.
func (l *Loop) keepFinal(artifact codegen.CodeArtifact) {
	if l.CodeDir == "" {
		return
	}
	path := filepath.Join(l.CodeDir, fmt.Sprintf("scene_%02d.py", artifact.SceneIndex))
	_ = os.WriteFile(path, []byte(artifact.Source), 0o644)
}

// keepError writes the failure transcript next to the attempt's source.
func (l *Loop) keepError(sceneIndex, attempt int, result sandbox.Result) {
	if l.DebugDir == "" {
		return
	}
	path := filepath.Join(l.DebugDir, fmt.Sprintf("scene_%02d_attempt_%d_error.txt", sceneIndex, attempt))
	_ = os.WriteFile(path, []byte(result.Kind.String()+"\n\n"+result.Detail), 0o644)
}

func (l *Loop) emit(kind string, sceneIndex int, data any) {
	_ = l.Telemetry.Emit(telemetry.Event{Kind: kind, SceneIndex: &sceneIndex, Data: data})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
