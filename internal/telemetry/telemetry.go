// Package telemetry provides a JSONL event stream for recording pipeline
// state transitions. Every plan, attempt, render, narration, and assembly
// step is recorded as a structured JSON event, making runs auditable and
// analyzable after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart      = "run_start"
	KindRunDone       = "run_done"
	KindPlanReady     = "plan_ready"
	KindSceneStart    = "scene_start"
	KindAttemptStart  = "attempt_start"
	KindAttemptFailed = "attempt_failed"
	KindSceneRendered = "scene_rendered"
	KindSceneFailed   = "scene_failed"
	KindNarrationDone = "narration_done"
	KindAssemblyStart = "assembly_start"
	KindAssemblyDone  = "assembly_done"
)

// Event represents a single telemetry record. Each event carries a
// timestamp, a kind tag, an optional scene index, and arbitrary structured
// data.
type Event struct {
	Timestamp  time.Time `json:"ts"`
	Kind       string    `json:"kind"`
	SceneIndex *int      `json:"scene,omitempty"`
	Data       any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates an Emitter that writes JSONL events to the file at
// path, created or appended to as needed.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{file: f, enc: json.NewEncoder(f)}, nil
}

// Emit writes a single event, stamping it if the caller left Timestamp zero.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file.Close()
}
