package agent

import "context"

type Role string

const (
	RolePlanner Role = "planner"
	RoleCoder   Role = "coder"
)

type Agent struct {
	Role         Role
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

type InvocationResult struct {
	ResultText string
	DurationMs int64
}

type Invoker interface {
	Invoke(ctx context.Context, agent Agent, prompt string) (InvocationResult, error)
	Validate() error
}
