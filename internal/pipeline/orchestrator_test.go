package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/papapumpkin/proofreel/internal/assemble"
	"github.com/papapumpkin/proofreel/internal/narrate"
	"github.com/papapumpkin/proofreel/internal/plan"
	"github.com/papapumpkin/proofreel/internal/repair"
	"github.com/papapumpkin/proofreel/internal/sandbox"
)

// fakeRepairer succeeds for every scene except those listed in fail.
type fakeRepairer struct {
	fail map[int]bool

	mu    sync.Mutex
	calls []int
}

func (f *fakeRepairer) Run(ctx context.Context, scene plan.Scene) repair.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, scene.Index)
	f.mu.Unlock()

	if f.fail[scene.Index] {
		return repair.Outcome{
			SceneIndex: scene.Index,
			Phase:      repair.PhaseFailed,
			Reason:     "render budget exhausted",
		}
	}
	return repair.Outcome{
		SceneIndex: scene.Index,
		Phase:      repair.PhaseDone,
		Result: sandbox.Result{
			OK:        true,
			VideoPath: fmt.Sprintf("/media/scene_%02d.mp4", scene.Index),
			Duration:  3 * time.Second,
		},
		Attempts: []repair.Attempt{{}},
		Reason:   "rendered on attempt 1/3",
	}
}

// fakeNarrator synthesizes instantly, failing for listed scenes.
type fakeNarrator struct {
	fail map[int]bool
}

func (f *fakeNarrator) Synthesize(ctx context.Context, scene plan.Scene, dir string) (narrate.Artifact, error) {
	if f.fail[scene.Index] {
		return narrate.Artifact{}, errors.New("tts unavailable")
	}
	return narrate.Artifact{
		SceneIndex: scene.Index,
		AudioPath:  fmt.Sprintf("%s/scene_%02d.mp3", dir, scene.Index),
		Duration:   4 * time.Second,
	}, nil
}

// fakeAssembler records the segments it was given.
type fakeAssembler struct {
	err      error
	segments []assemble.Segment
}

func (f *fakeAssembler) Assemble(ctx context.Context, segments []assemble.Segment, outPath string) (string, error) {
	f.segments = segments
	if f.err != nil {
		return "", f.err
	}
	return outPath, nil
}

func threeScenePlan() *plan.ScenePlan {
	return &plan.ScenePlan{
		TheoremName:        "Pythagorean Theorem",
		TheoremDescription: "a^2+b^2=c^2",
		Scenes: []plan.Scene{
			{Index: 0, Title: "Intro", Description: "d0", Narration: "n0"},
			{Index: 1, Title: "Proof", Description: "d1", Narration: "n1"},
			{Index: 2, Title: "Recap", Description: "d2", Narration: "n2"},
		},
	}
}

func newOrchestrator(r *fakeRepairer, n *fakeNarrator, a *fakeAssembler) *Orchestrator {
	return &Orchestrator{
		Repairer:            r,
		Narrator:            n,
		Assembler:           a,
		AudioDir:            "/audio",
		OutputPath:          "/final/video.mp4",
		MaxConcurrentScenes: 2,
	}
}

func TestRunAllScenesSucceed(t *testing.T) {
	asm := &fakeAssembler{}
	o := newOrchestrator(&fakeRepairer{}, &fakeNarrator{}, asm)

	report, err := o.Run(context.Background(), threeScenePlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.AllSuccess {
		t.Error("AllSuccess = false")
	}
	if report.FinalVideo != "/final/video.mp4" {
		t.Errorf("final video = %q", report.FinalVideo)
	}
	if len(report.Scenes) != 3 {
		t.Fatalf("report has %d scenes, want 3", len(report.Scenes))
	}
	for i, s := range report.Scenes {
		if s.SceneIndex != i {
			t.Errorf("report entry %d has scene index %d", i, s.SceneIndex)
		}
		if s.State != SceneSucceeded {
			t.Errorf("scene %d state = %s, reason %q", i, s.State, s.Reason)
		}
	}

	if len(asm.segments) != 3 {
		t.Fatalf("assembler got %d segments, want 3", len(asm.segments))
	}
	for i, seg := range asm.segments {
		if seg.SceneIndex != i {
			t.Errorf("segment %d has scene index %d: assembly must be in scene order", i, seg.SceneIndex)
		}
		if seg.AudioPath == "" {
			t.Errorf("segment %d has no narration path", i)
		}
	}
}

func TestRunLenientSkipsFailedScene(t *testing.T) {
	asm := &fakeAssembler{}
	o := newOrchestrator(&fakeRepairer{fail: map[int]bool{1: true}}, &fakeNarrator{}, asm)

	report, err := o.Run(context.Background(), threeScenePlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.AllSuccess {
		t.Error("AllSuccess = true with a failed scene")
	}
	if report.Scenes[1].State != SceneFailed {
		t.Errorf("scene 1 state = %s", report.Scenes[1].State)
	}
	if report.Scenes[1].Reason == "" {
		t.Error("failed scene has empty reason")
	}

	if len(asm.segments) != 2 {
		t.Fatalf("assembler got %d segments, want 2", len(asm.segments))
	}
	if asm.segments[0].SceneIndex != 0 || asm.segments[1].SceneIndex != 2 {
		t.Errorf("segments = %d, %d; want 0, 2", asm.segments[0].SceneIndex, asm.segments[1].SceneIndex)
	}
}

func TestRunStrictFailsWholeRun(t *testing.T) {
	asm := &fakeAssembler{}
	o := newOrchestrator(&fakeRepairer{fail: map[int]bool{1: true}}, &fakeNarrator{}, asm)
	o.Strict = true

	report, err := o.Run(context.Background(), threeScenePlan())
	if !errors.Is(err, ErrPipeline) {
		t.Fatalf("err = %v, want ErrPipeline", err)
	}
	if report == nil {
		t.Fatal("report is nil: strict failures must still report")
	}
	if asm.segments != nil {
		t.Error("assembler was called in strict mode after a scene failure")
	}
	if report.Failure == "" {
		t.Error("report.Failure is empty")
	}
}

func TestRunAllScenesFail(t *testing.T) {
	asm := &fakeAssembler{}
	o := newOrchestrator(&fakeRepairer{fail: map[int]bool{0: true, 1: true, 2: true}}, &fakeNarrator{}, asm)

	_, err := o.Run(context.Background(), threeScenePlan())
	if !errors.Is(err, ErrPipeline) {
		t.Fatalf("err = %v, want ErrPipeline when no scene survives", err)
	}
	if asm.segments != nil {
		t.Error("assembler was called with zero surviving segments")
	}
}

func TestRunNarrationFailureFailsScene(t *testing.T) {
	asm := &fakeAssembler{}
	o := newOrchestrator(&fakeRepairer{}, &fakeNarrator{fail: map[int]bool{2: true}}, asm)

	report, err := o.Run(context.Background(), threeScenePlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Scenes[2].State != SceneFailed {
		t.Errorf("scene 2 state = %s, want failed when narration fails", report.Scenes[2].State)
	}
	if len(asm.segments) != 2 {
		t.Errorf("assembler got %d segments, want 2", len(asm.segments))
	}
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	o := newOrchestrator(&fakeRepairer{}, &fakeNarrator{}, &fakeAssembler{})

	_, err := o.Run(context.Background(), &plan.ScenePlan{TheoremName: "Empty"})
	if !errors.Is(err, ErrPipeline) {
		t.Fatalf("err = %v, want ErrPipeline for an empty plan", err)
	}
}

func TestRunCanceledContextSchedulesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := &fakeRepairer{}
	o := newOrchestrator(rep, &fakeNarrator{}, &fakeAssembler{})

	report, err := o.Run(ctx, threeScenePlan())
	if !errors.Is(err, ErrPipeline) {
		t.Fatalf("err = %v, want ErrPipeline", err)
	}
	if len(rep.calls) != 0 {
		t.Errorf("repairer ran %d scenes after cancellation, want 0", len(rep.calls))
	}
	for i, s := range report.Scenes {
		if s.State != SceneFailed {
			t.Errorf("scene %d state = %s, want failed", i, s.State)
		}
	}
}

func TestRunAssemblyFailurePropagates(t *testing.T) {
	asm := &fakeAssembler{err: fmt.Errorf("%w: concat failed", assemble.ErrAssembly)}
	o := newOrchestrator(&fakeRepairer{}, &fakeNarrator{}, asm)

	report, err := o.Run(context.Background(), threeScenePlan())
	if !errors.Is(err, assemble.ErrAssembly) {
		t.Fatalf("err = %v, want ErrAssembly", err)
	}
	if report.FinalVideo != "" {
		t.Errorf("final video = %q, want empty after assembly failure", report.FinalVideo)
	}
	if report.Failure == "" {
		t.Error("report.Failure is empty after assembly failure")
	}
}
