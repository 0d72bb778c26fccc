package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/papapumpkin/proofreel/internal/agent"
)

// plannerMaxTokens bounds the planner response; plans are short relative to
// generated code.
const plannerMaxTokens = 4000

// Planner asks the planner agent to break a theorem explanation into scenes.
type Planner struct {
	Invoker      agent.Invoker
	Model        string
	SystemPrompt string // empty = agent.DefaultPlannerSystemPrompt
}

// Plan generates a validated scene plan for the theorem. The planner carries
// no session state: everything the model needs is in the one prompt.
func (p *Planner) Plan(ctx context.Context, theoremName, theoremDescription string) (*ScenePlan, error) {
	sys := p.SystemPrompt
	if sys == "" {
		sys = agent.DefaultPlannerSystemPrompt
	}

	result, err := p.Invoker.Invoke(ctx, agent.Agent{
		Role:         agent.RolePlanner,
		SystemPrompt: sys,
		Model:        p.Model,
		MaxTokens:    plannerMaxTokens,
	}, buildPlannerPrompt(theoremName, theoremDescription))
	if err != nil {
		return nil, fmt.Errorf("planner invocation failed: %w", err)
	}

	scenes := ParseScenes(result.ResultText)
	sp := &ScenePlan{
		TheoremName:        theoremName,
		TheoremDescription: theoremDescription,
		Scenes:             scenes,
	}
	if err := sp.Validate(); err != nil {
		return nil, fmt.Errorf("planner produced unusable plan: %w", err)
	}
	return sp, nil
}

func buildPlannerPrompt(theoremName, theoremDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nDescription: %s\n\n", theoremName, theoremDescription)
	b.WriteString("Plan the individual scenes of the explanation video. For each scene provide:\n")
	b.WriteString("- Title: short, descriptive title (2-5 words)\n")
	b.WriteString("- Purpose: objective of this scene and how it connects to previous scenes\n")
	b.WriteString("- Description: detailed description of what must be animated\n")
	b.WriteString("- Layout: spatial layout concept, with safe area margins and spacing\n")
	b.WriteString("- Narration: word-for-word narration spoken during the scene\n\n")
	b.WriteString("Output the plan between SCENE PLAN BEGIN: and SCENE PLAN END: markers,\n")
	b.WriteString("with each scene introduced by a [Scene N] header.\n")
	return b.String()
}
