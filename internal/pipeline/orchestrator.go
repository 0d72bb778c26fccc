package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/papapumpkin/proofreel/internal/assemble"
	"github.com/papapumpkin/proofreel/internal/narrate"
	"github.com/papapumpkin/proofreel/internal/plan"
	"github.com/papapumpkin/proofreel/internal/repair"
	"github.com/papapumpkin/proofreel/internal/telemetry"
	"github.com/papapumpkin/proofreel/internal/ui"
)

// Repairer resolves one scene to a terminal outcome. Implementations must be
// safe for concurrent use; the orchestrator runs one call per scene.
type Repairer interface {
	Run(ctx context.Context, scene plan.Scene) repair.Outcome
}

// SegmentAssembler joins finalized segments into the final video.
type SegmentAssembler interface {
	Assemble(ctx context.Context, segments []assemble.Segment, outPath string) (string, error)
}

// Orchestrator drives the whole run: scenes execute under a bounded worker
// pool, each scene's repair loop and narration running concurrently, and the
// surviving segments are assembled in index order.
type Orchestrator struct {
	Repairer  Repairer
	Narrator  narrate.Synthesizer
	Assembler SegmentAssembler

	AudioDir   string // narration artifacts are written here
	OutputPath string // final video path

	MaxConcurrentScenes int  // 0 or negative = 1
	Strict              bool // any failed scene fails the whole run

	UI        ui.UI              // optional
	Telemetry *telemetry.Emitter // optional; nil-safe
}

// sceneOutcome carries one scene's joined repair + narration results back to
// the dispatch loop.
type sceneOutcome struct {
	scene   plan.Scene
	repair  repair.Outcome
	audio   narrate.Artifact
	audioOK bool
	reason  string // populated when audioOK is false
}

// Run executes the plan and returns the report. The report always has one
// entry per scene. The error is non-nil for run-level failures (ErrPipeline,
// assemble.ErrAssembly); per-scene failures in lenient mode are reported,
// not returned.
func (o *Orchestrator) Run(ctx context.Context, p *plan.ScenePlan) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipeline, err)
	}

	report := &Report{
		TheoremName: p.TheoremName,
		StartedAt:   time.Now(),
		Scenes:      make([]SceneReport, len(p.Scenes)),
	}
	if o.UI != nil {
		o.UI.RunStarted(p.TheoremName, len(p.Scenes))
	}
	_ = o.Telemetry.Emit(telemetry.Event{Kind: telemetry.KindRunStart, Data: map[string]any{
		"theorem": p.TheoremName,
		"scenes":  len(p.Scenes),
	}})

	o.runScenes(ctx, p, report)

	report.AllSuccess = len(report.FailedScenes()) == 0
	err := o.finish(ctx, report)
	report.CompletedAt = time.Now()
	_ = o.Telemetry.Emit(telemetry.Event{Kind: telemetry.KindRunDone, Data: map[string]any{
		"all_success": report.AllSuccess,
		"final_video": report.FinalVideo,
	}})
	return report, err
}

// runScenes dispatches every scene under the worker pool and fills in the
// per-scene report entries. After cancellation no new scenes are scheduled;
// already-dispatched scenes run to their timeout boundary and their results
// are retained.
func (o *Orchestrator) runScenes(ctx context.Context, p *plan.ScenePlan, report *Report) {
	workers := o.MaxConcurrentScenes
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, scene := range p.Scenes {
		if ctx.Err() != nil {
			mu.Lock()
			report.Scenes[scene.Index] = SceneReport{
				SceneIndex: scene.Index,
				Title:      scene.Title,
				State:      SceneFailed,
				Reason:     "canceled before scheduling",
			}
			mu.Unlock()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(scene plan.Scene) {
			defer func() {
				<-sem
				wg.Done()
			}()
			out := o.runScene(ctx, scene)
			mu.Lock()
			report.Scenes[scene.Index] = o.sceneReport(out)
			mu.Unlock()
		}(scene)
	}
	wg.Wait()
}

// runScene joins the scene's repair loop and narration, which are
// data-independent and run concurrently.
func (o *Orchestrator) runScene(ctx context.Context, scene plan.Scene) sceneOutcome {
	if o.UI != nil {
		o.UI.SceneStarted(scene.Index, scene.Title)
	}
	idx := scene.Index
	_ = o.Telemetry.Emit(telemetry.Event{Kind: telemetry.KindSceneStart, SceneIndex: &idx})

	out := sceneOutcome{scene: scene}
	var inner sync.WaitGroup
	inner.Add(2)

	go func() {
		defer inner.Done()
		out.repair = o.Repairer.Run(ctx, scene)
	}()
	go func() {
		defer inner.Done()
		audio, err := o.Narrator.Synthesize(ctx, scene, o.AudioDir)
		if err != nil {
			out.reason = fmt.Sprintf("narration failed: %v", err)
			return
		}
		out.audio = audio
		out.audioOK = true
		if o.UI != nil {
			o.UI.NarrationReady(scene.Index, audio.Duration)
		}
		_ = o.Telemetry.Emit(telemetry.Event{Kind: telemetry.KindNarrationDone, SceneIndex: &idx})
	}()

	inner.Wait()
	return out
}

// sceneReport turns a joined outcome into the scene's report entry. A scene
// succeeds only when both the render and the narration did.
func (o *Orchestrator) sceneReport(out sceneOutcome) SceneReport {
	r := SceneReport{
		SceneIndex: out.scene.Index,
		Title:      out.scene.Title,
		Attempts:   len(out.repair.Attempts),
	}

	switch {
	case out.repair.Phase != repair.PhaseDone:
		r.State = SceneFailed
		r.Reason = out.repair.Reason
	case !out.audioOK:
		r.State = SceneFailed
		r.Reason = out.reason
	default:
		r.State = SceneSucceeded
		r.Reason = out.repair.Reason
		r.VideoPath = out.repair.Result.VideoPath
		r.VideoDuration = out.repair.Result.Duration
		r.AudioPath = out.audio.AudioPath
		r.AudioDuration = out.audio.Duration
		if o.UI != nil {
			o.UI.SceneRendered(out.scene.Index, r.Attempts, r.VideoDuration)
		}
	}

	if r.State == SceneFailed && o.UI != nil {
		o.UI.SceneFailed(out.scene.Index, r.Reason)
	}
	return r
}

// finish applies the strict/lenient policy and assembles the surviving
// segments in index order.
func (o *Orchestrator) finish(ctx context.Context, report *Report) error {
	failed := report.FailedScenes()
	if o.Strict && len(failed) > 0 {
		report.Failure = fmt.Sprintf("strict mode: %d scene(s) failed: %s", len(failed), failureSummary(failed))
		return fmt.Errorf("%w: %s", ErrPipeline, report.Failure)
	}

	succeeded := report.Succeeded()
	if len(succeeded) == 0 {
		report.Failure = fmt.Sprintf("no scene survived: %s", failureSummary(failed))
		return fmt.Errorf("%w: %s", ErrPipeline, report.Failure)
	}

	segments := make([]assemble.Segment, 0, len(succeeded))
	for _, s := range succeeded {
		segments = append(segments, assemble.Segment{
			SceneIndex: s.SceneIndex,
			VideoPath:  s.VideoPath,
			AudioPath:  s.AudioPath,
		})
	}

	if o.UI != nil {
		o.UI.AssemblyStarted(len(segments))
	}
	_ = o.Telemetry.Emit(telemetry.Event{Kind: telemetry.KindAssemblyStart, Data: len(segments)})

	final, err := o.Assembler.Assemble(ctx, segments, o.OutputPath)
	if err != nil {
		report.Failure = err.Error()
		return err
	}

	report.FinalVideo = final
	_ = o.Telemetry.Emit(telemetry.Event{Kind: telemetry.KindAssemblyDone, Data: final})
	if o.UI != nil {
		o.UI.RunComplete(final)
	}
	return nil
}

func failureSummary(failed []SceneReport) string {
	parts := make([]string, 0, len(failed))
	for _, s := range failed {
		parts = append(parts, fmt.Sprintf("scene %d: %s", s.SceneIndex, s.Reason))
	}
	return strings.Join(parts, "; ")
}
