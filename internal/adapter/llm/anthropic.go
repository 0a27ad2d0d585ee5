// Package llm provides language-model clients for the annotation engine.
package llm

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/clara-project/clara-core/internal/annotate"
	"github.com/clara-project/clara-core/internal/config"
)

// Anthropic is an annotate.Client backed by the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates a client for the configured model. The API key falls
// back to the SDK's environment lookup when unset.
func NewAnthropic(cfg config.LLMConfig) *Anthropic {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Complete sends one prompt and returns the text of the reply.
func (a *Anthropic) Complete(ctx context.Context, req annotate.Request) (annotate.Response, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return annotate.Response{}, fmt.Errorf("llm api call: %w", err)
	}
	if len(msg.Content) == 0 {
		return annotate.Response{}, fmt.Errorf("empty response from model")
	}
	return annotate.Response{
		Text:             msg.Content[0].Text,
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}, nil
}
