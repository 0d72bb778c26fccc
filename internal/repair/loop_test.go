package repair

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papapumpkin/proofreel/internal/codegen"
	"github.com/papapumpkin/proofreel/internal/plan"
	"github.com/papapumpkin/proofreel/internal/sandbox"
)

// scriptedGenerator returns canned artifacts, or an error, in call order.
type scriptedGenerator struct {
	err       error
	calls     int
	priorErrs []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, scene plan.Scene, prior *codegen.CodeArtifact, priorErr string) (codegen.CodeArtifact, error) {
	g.calls++
	g.priorErrs = append(g.priorErrs, priorErr)
	if g.err != nil {
		return codegen.CodeArtifact{}, g.err
	}
	attempt := 1
	if prior != nil {
		attempt = prior.Attempt + 1
	}
	return codegen.CodeArtifact{
		SceneIndex: scene.Index,
		Source:     fmt.Sprintf("class S(Scene):\n    pass  # revision %d", attempt),
		Attempt:    attempt,
	}, nil
}

// scriptedExecutor replays a fixed sequence of results.
type scriptedExecutor struct {
	results []sandbox.Result
	calls   int
}

func (e *scriptedExecutor) Execute(ctx context.Context, artifact codegen.CodeArtifact) sandbox.Result {
	r := e.results[e.calls]
	e.calls++
	return r
}

func okResult() sandbox.Result {
	return sandbox.Result{OK: true, VideoPath: "/tmp/scene_00.mp4"}
}

func failResult(kind sandbox.FailureKind, detail string) sandbox.Result {
	return sandbox.Result{Kind: kind, Detail: detail}
}

func testScene() plan.Scene {
	return plan.Scene{Index: 0, Title: "Intro", Description: "d", Narration: "n"}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	gen := &scriptedGenerator{}
	exe := &scriptedExecutor{results: []sandbox.Result{okResult()}}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 3}

	outcome := l.Run(context.Background(), testScene())
	if outcome.Phase != PhaseDone {
		t.Fatalf("phase = %s, want done (%s)", outcome.Phase, outcome.Reason)
	}
	if len(outcome.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(outcome.Attempts))
	}
	if gen.calls != 1 || exe.calls != 1 {
		t.Errorf("generator called %d times, executor %d; want 1 and 1", gen.calls, exe.calls)
	}
}

func TestRunRepairsThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{}
	exe := &scriptedExecutor{results: []sandbox.Result{
		failResult(sandbox.FailureRuntime, "NameError: Sqaure"),
		failResult(sandbox.FailureSyntax, "SyntaxError: bad fix"),
		okResult(),
	}}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 3}

	outcome := l.Run(context.Background(), testScene())
	if outcome.Phase != PhaseDone {
		t.Fatalf("phase = %s, want done (%s)", outcome.Phase, outcome.Reason)
	}
	if len(outcome.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(outcome.Attempts))
	}
	if !strings.Contains(outcome.Reason, "attempt 3/3") {
		t.Errorf("reason = %q", outcome.Reason)
	}

	// The second generation must receive the first failure as repair context.
	if got := gen.priorErrs[1]; !strings.Contains(got, "NameError") {
		t.Errorf("second generation priorErr = %q, want the first failure", got)
	}
	if got := gen.priorErrs[2]; !strings.Contains(got, "syntax_error") {
		t.Errorf("third generation priorErr = %q, want the second failure kind", got)
	}
}

func TestRunExhaustsBudget(t *testing.T) {
	gen := &scriptedGenerator{}
	exe := &scriptedExecutor{results: []sandbox.Result{
		failResult(sandbox.FailureRuntime, "boom"),
		failResult(sandbox.FailureRuntime, "boom"),
	}}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 2}

	outcome := l.Run(context.Background(), testScene())
	if outcome.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", outcome.Phase)
	}
	if exe.calls != 2 {
		t.Errorf("executor called %d times, want exactly the budget of 2", exe.calls)
	}
	if !strings.Contains(outcome.Reason, ErrMaxAttempts.Error()) {
		t.Errorf("reason = %q, want it to mention the exhausted budget", outcome.Reason)
	}
}

func TestRunFlagsNoProgress(t *testing.T) {
	gen := &scriptedGenerator{}
	exe := &scriptedExecutor{results: []sandbox.Result{
		failResult(sandbox.FailureRuntime, "same error"),
		failResult(sandbox.FailureRuntime, "same error"),
		failResult(sandbox.FailureRuntime, "different error"),
	}}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 3}

	outcome := l.Run(context.Background(), testScene())
	if outcome.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", outcome.Phase)
	}
	if outcome.Attempts[0].NoProgress {
		t.Error("first attempt flagged as no-progress")
	}
	if !outcome.Attempts[1].NoProgress {
		t.Error("identical repeated failure not flagged as no-progress")
	}
	if outcome.Attempts[2].NoProgress {
		t.Error("changed failure flagged as no-progress")
	}
}

func TestRunGenerationFailureIsTerminal(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("api unreachable")}
	exe := &scriptedExecutor{}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 3}

	outcome := l.Run(context.Background(), testScene())
	if outcome.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", outcome.Phase)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1: generation failures are not retried", gen.calls)
	}
	if exe.calls != 0 {
		t.Errorf("executor called %d times, want 0", exe.calls)
	}
}

func TestRunHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &scriptedGenerator{}
	exe := &scriptedExecutor{}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 3}

	outcome := l.Run(ctx, testScene())
	if outcome.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", outcome.Phase)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times after cancellation, want 0", gen.calls)
	}
}

func TestRunKeepsDebugArtifacts(t *testing.T) {
	debugDir := t.TempDir()
	codeDir := t.TempDir()
	gen := &scriptedGenerator{}
	exe := &scriptedExecutor{results: []sandbox.Result{
		failResult(sandbox.FailureRuntime, "boom"),
		okResult(),
	}}
	l := &Loop{Generator: gen, Executor: exe, MaxAttempts: 3, DebugDir: debugDir, CodeDir: codeDir}

	outcome := l.Run(context.Background(), testScene())
	if outcome.Phase != PhaseDone {
		t.Fatalf("phase = %s, want done", outcome.Phase)
	}

	for _, name := range []string{
		"scene_00_attempt_1.py",
		"scene_00_attempt_1_error.txt",
		"scene_00_attempt_2.py",
	} {
		if _, err := os.Stat(filepath.Join(debugDir, name)); err != nil {
			t.Errorf("missing debug artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(codeDir, "scene_00.py"))
	if err != nil {
		t.Fatalf("missing final source: %v", err)
	}
	if !strings.Contains(string(data), "revision 2") {
		t.Errorf("final source is not the successful attempt:\n%s", data)
	}
}
