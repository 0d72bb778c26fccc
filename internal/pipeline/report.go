// Package pipeline sequences planning output through code generation,
// sandboxed rendering, narration, and final assembly, and owns the run
// report.
package pipeline

import (
	"errors"
	"time"
)

// ErrPipeline marks run-level failures: empty plan, strict-mode scene
// failure, or no scene surviving to assembly.
var ErrPipeline = errors.New("pipeline failed")

// SceneState is a scene's terminal disposition in the report.
type SceneState int

const (
	SceneSucceeded SceneState = iota
	SceneFailed
)

// String returns the snake_case name of the state.
func (s SceneState) String() string {
	switch s {
	case SceneSucceeded:
		return "succeeded"
	case SceneFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SceneReport is one scene's final outcome. Reason is always populated with
// a human-readable explanation; scenes are never silently dropped.
type SceneReport struct {
	SceneIndex    int
	Title         string
	State         SceneState
	Reason        string
	Attempts      int
	VideoPath     string
	AudioPath     string
	VideoDuration time.Duration
	AudioDuration time.Duration
}

// Report aggregates per-scene outcomes for one run. It contains exactly one
// entry per planned scene, in index order, regardless of the success mix.
type Report struct {
	TheoremName string
	StartedAt   time.Time
	CompletedAt time.Time
	Scenes      []SceneReport
	AllSuccess  bool
	FinalVideo  string // empty unless assembly succeeded
	Failure     string // run-level failure summary, empty on success
}

// Succeeded returns the scenes that reached a successful render and
// narration, in index order.
func (r *Report) Succeeded() []SceneReport {
	var out []SceneReport
	for _, s := range r.Scenes {
		if s.State == SceneSucceeded {
			out = append(out, s)
		}
	}
	return out
}

// FailedScenes returns the scenes that did not survive, in index order.
func (r *Report) FailedScenes() []SceneReport {
	var out []SceneReport
	for _, s := range r.Scenes {
		if s.State == SceneFailed {
			out = append(out, s)
		}
	}
	return out
}
