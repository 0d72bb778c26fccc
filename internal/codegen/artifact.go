// Package codegen wraps the coder agent: it turns one scene description into
// executable Manim source, and on repair calls turns a failing artifact plus
// its error into a corrected one.
package codegen

import "errors"

// ErrGeneration marks failures of the generation service itself (LLM
// unavailable, malformed response, no code in the reply). A generation
// failure is terminal for the scene; there is nothing to repair.
var ErrGeneration = errors.New("code generation failed")

// CodeArtifact is one generated-code attempt for rendering a scene. Repair
// attempts supersede earlier artifacts; an artifact is never mutated.
type CodeArtifact struct {
	SceneIndex int
	Source     string
	Attempt    int // 1 for the initial generation, +1 per repair
}
