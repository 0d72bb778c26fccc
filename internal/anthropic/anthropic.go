// Package anthropic implements agent.Invoker against the Anthropic messages
// API via langchaingo. Transient API failures are retried a fixed number of
// times before the error is surfaced to the caller.
package anthropic

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/papapumpkin/proofreel/internal/agent"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = 5 * time.Second
)

type Invoker struct {
	APIKey     string
	Model      string
	Retries    int           // 0 = defaultRetries
	RetryDelay time.Duration // 0 = defaultRetryDelay
	Verbose    bool

	client *anthropic.LLM
}

// New creates an Invoker for the given API key and default model.
func New(apiKey, model string) (*Invoker, error) {
	opts := []anthropic.Option{anthropic.WithToken(apiKey)}
	if model != "" {
		opts = append(opts, anthropic.WithModel(model))
	}
	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating anthropic client: %w", err)
	}
	return &Invoker{APIKey: apiKey, Model: model, client: client}, nil
}

func (inv *Invoker) Invoke(ctx context.Context, a agent.Agent, prompt string) (agent.InvocationResult, error) {
	messages := []llms.MessageContent{}
	if a.SystemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(a.SystemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	callOpts := []llms.CallOption{llms.WithTemperature(a.Temperature)}
	if a.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(a.MaxTokens))
	}
	if a.Model != "" {
		callOpts = append(callOpts, llms.WithModel(a.Model))
	}

	retries := inv.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	delay := inv.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if inv.Verbose {
			fmt.Fprintf(os.Stderr, "[anthropic] %s invocation (attempt %d/%d, prompt %d bytes)\n",
				a.Role, attempt, retries, len(prompt))
		}

		start := time.Now()
		resp, err := inv.client.GenerateContent(ctx, messages, callOpts...)
		if err == nil {
			if len(resp.Choices) == 0 {
				return agent.InvocationResult{}, fmt.Errorf("anthropic returned empty response")
			}
			return agent.InvocationResult{
				ResultText: resp.Choices[0].Content,
				DurationMs: time.Since(start).Milliseconds(),
			}, nil
		}

		lastErr = err
		if attempt < retries {
			select {
			case <-ctx.Done():
				return agent.InvocationResult{}, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return agent.InvocationResult{}, fmt.Errorf("anthropic invocation failed after %d attempts: %w", retries, lastErr)
}

func (inv *Invoker) Validate() error {
	if inv.APIKey == "" {
		return fmt.Errorf("anthropic API key not set (config anthropic_api_key or ANTHROPIC_API_KEY)")
	}
	if inv.client == nil {
		return fmt.Errorf("anthropic client not initialized")
	}
	return nil
}
