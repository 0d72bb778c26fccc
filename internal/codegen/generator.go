package codegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/papapumpkin/proofreel/internal/agent"
	"github.com/papapumpkin/proofreel/internal/plan"
)

// coderMaxTokens bounds a single scene's generated code.
const coderMaxTokens = 8000

// Generator produces code artifacts for scenes via the coder agent.
//
// The generator carries no conversational state: repair context (the failing
// artifact and its error) is passed explicitly on every call, so any attempt
// can be reproduced from its inputs alone.
type Generator struct {
	Invoker      agent.Invoker
	Model        string
	SystemPrompt string // empty = agent.DefaultCoderSystemPrompt
	TheoremName  string
	TheoremDesc  string
}

// Generate returns the next code artifact for the scene. With prior == nil it
// requests a fresh generation; otherwise it requests a targeted fix of
// prior.Source given priorErr. Failures wrap ErrGeneration.
func (g *Generator) Generate(ctx context.Context, scene plan.Scene, prior *CodeArtifact, priorErr string) (CodeArtifact, error) {
	attempt := 1
	prompt := g.buildScenePrompt(scene)
	if prior != nil {
		attempt = prior.Attempt + 1
		prompt = g.buildFixPrompt(scene, prior, priorErr)
	}

	sys := g.SystemPrompt
	if sys == "" {
		sys = agent.DefaultCoderSystemPrompt
	}

	result, err := g.Invoker.Invoke(ctx, agent.Agent{
		Role:         agent.RoleCoder,
		SystemPrompt: sys,
		Model:        g.Model,
		MaxTokens:    coderMaxTokens,
	}, prompt)
	if err != nil {
		return CodeArtifact{}, fmt.Errorf("%w: scene %d attempt %d: %v", ErrGeneration, scene.Index, attempt, err)
	}

	source := ExtractSource(result.ResultText)
	if source == "" {
		return CodeArtifact{}, fmt.Errorf("%w: scene %d attempt %d: no code block in reply", ErrGeneration, scene.Index, attempt)
	}

	return CodeArtifact{
		SceneIndex: scene.Index,
		Source:     ensurePreamble(source),
		Attempt:    attempt,
	}, nil
}

// buildScenePrompt constructs the first-attempt prompt for a scene.
func (g *Generator) buildScenePrompt(scene plan.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Theorem: %s\n%s\n\n", g.TheoremName, g.TheoremDesc)
	fmt.Fprintf(&b, "Generate Manim code for scene %d of the explanation video.\n\n", scene.Index+1)
	fmt.Fprintf(&b, "Title: %s\n", scene.Title)
	fmt.Fprintf(&b, "Purpose: %s\n", scene.Purpose)
	fmt.Fprintf(&b, "Description: %s\n", scene.Description)
	if scene.Layout != "" {
		fmt.Fprintf(&b, "Layout: %s\n", scene.Layout)
	}
	fmt.Fprintf(&b, "Narration (the animation must pace well against this): %s\n\n", scene.Narration)
	fmt.Fprintf(&b, "Name the scene class %s. Output one fenced python code block containing the complete file.\n",
		SceneClassName(scene.Title, scene.Index))
	return b.String()
}

// buildFixPrompt constructs the repair prompt: it includes the failing source
// and the execution error so the coder can produce a targeted fix rather
// than a fresh generation.
func (g *Generator) buildFixPrompt(scene plan.Scene, prior *CodeArtifact, priorErr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The Manim code for scene %d of the %s video failed to render.\n\n", scene.Index+1, g.TheoremName)
	b.WriteString("## Failing code\n\n```python\n")
	b.WriteString(prior.Source)
	b.WriteString("\n```\n\n## Error\n\n```\n")
	b.WriteString(truncate(priorErr, 4000))
	b.WriteString("\n```\n\n## Instructions\n\n")
	b.WriteString("Fix the error while preserving the scene's intent:\n")
	fmt.Fprintf(&b, "Description: %s\n", scene.Description)
	fmt.Fprintf(&b, "Narration: %s\n\n", scene.Narration)
	b.WriteString("Output the ENTIRE corrected file as one fenced python code block.\n")
	return b.String()
}

// ensurePreamble guarantees the artifact is a standalone runnable file: a
// manim import plus the frame dimensions the planner's layouts assume.
func ensurePreamble(source string) string {
	if strings.Contains(source, "from manim import") || strings.Contains(source, "import manim") {
		return source
	}
	return "from manim import *\n\nconfig.frame_height = 8\nconfig.frame_width = 14\n\n" + source
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
