/*-------------------------------------------------------------------------
 *
 * client.go
 *    Generative capability client for fernlabs-api
 *
 * Wraps a langchaingo model behind the single Generate operation the
 * workflow stages need. The client does not retry: a failed call
 * propagates immediately and the orchestrator decides what it means.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/llm/client.go
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

/* Generator is the opaque generative capability: given a prompt, return
 * text. Stages depend on this interface, not the concrete client. */
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

/* Config selects the model provider and generation knobs */
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

/* Client calls a langchaingo model */
type Client struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

/* NewClient creates a client for the configured provider */
func NewClient(cfg Config) (*Client, error) {
	model, err := newModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm client creation failed: provider='%s', model='%s', error=%w",
			cfg.Provider, cfg.Model, err)
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return &Client{model: model, temperature: temperature, maxTokens: maxTokens}, nil
}

func newModel(cfg Config) (llms.Model, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithToken(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "mistral":
		return mistral.New(mistral.WithModel(cfg.Model), mistral.WithAPIKey(cfg.APIKey))
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: openai, mistral, ollama)", cfg.Provider)
	}
}

/* Generate sends one prompt and returns the model's text response */
func (c *Client) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	var messages []llms.MessageContent
	if systemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm generation failed: empty_choices=true")
	}

	return resp.Choices[0].Content, nil
}
