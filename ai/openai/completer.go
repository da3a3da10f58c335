// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
// It walks the configured model chain in order and returns the first
// successful completion, so a deprecated or overloaded primary model
// degrades to the next candidate instead of failing the request.
type Completer struct {
	client      llms.Model
	models      []string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat completions.
	// The model is overridden per call while walking the fallback chain.
	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModels[0]),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		models:      config.CompletionModels,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete generates a chat completion, trying each configured model in order.
func (c *Completer) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("completion request has no messages")
	}

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role, err := chatMessageType(m.Role)
		if err != nil {
			return nil, err
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var lastErr error
	for _, model := range c.models {
		response, err := c.client.GenerateContent(ctx, content,
			llms.WithModel(model),
			llms.WithTemperature(temperature),
			llms.WithMaxTokens(maxTokens))
		if err != nil {
			lastErr = err
			c.logger.Warn("completion model failed, trying next",
				"model", model,
				"err", err)
			continue
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("model %s returned no choices", model)
			c.logger.Warn("completion model returned no choices, trying next",
				"model", model)
			continue
		}

		text := strings.TrimSpace(response.Choices[0].Content)
		c.logger.Debug("completion generated",
			"model", model,
			"length", len(text))
		return &ai.Completion{Text: text, Model: model}, nil
	}

	c.logger.Error("all completion models failed", "models", c.models, "err", lastErr)
	return nil, fmt.Errorf("all completion models failed: %w", lastErr)
}

// chatMessageType maps an ai.MessageRole onto the langchaingo message type.
func chatMessageType(role ai.MessageRole) (schema.ChatMessageType, error) {
	switch role {
	case ai.RoleSystem:
		return schema.ChatMessageTypeSystem, nil
	case ai.RoleUser:
		return schema.ChatMessageTypeHuman, nil
	case ai.RoleAssistant:
		return schema.ChatMessageTypeAI, nil
	default:
		return "", fmt.Errorf("unsupported message role: %q", role)
	}
}
