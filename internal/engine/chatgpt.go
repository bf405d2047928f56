package engine

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/resilience"
)

// ChatCompleter is the slice of the OpenAI client the adapter needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatGPTAdapter audits the ChatGPT engine via the OpenAI API.
type ChatGPTAdapter struct {
	base
	client ChatCompleter
	model  string
}

// NewChatGPTAdapter creates the ChatGPT adapter. A nil client means the
// integration is unconfigured and every evaluation takes the fallback path.
func NewChatGPTAdapter(client ChatCompleter, modelID string, opts Options) *ChatGPTAdapter {
	return &ChatGPTAdapter{
		base:   newBase(model.EngineChatGPT, opts),
		client: client,
		model:  modelID,
	}
}

func (a *ChatGPTAdapter) Configured() bool {
	return a.client != nil
}

func (a *ChatGPTAdapter) Evaluate(ctx context.Context, prompt string) Outcome {
	if a.client == nil {
		return a.fallback(ctx, "openai integration not configured (set TRUTHSCAN_OPENAI_KEY)")
	}
	if err := a.wait(ctx); err != nil {
		return a.fallback(ctx, "rate limit wait interrupted: "+err.Error())
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
	})
	if err != nil {
		return a.fallback(ctx, "openai call failed: "+err.Error())
	}
	if len(resp.Choices) == 0 {
		return a.fallback(ctx, "openai returned an empty choice list")
	}

	raw := resp.Choices[0].Message.Content
	score, inaccs, err := parseReply(raw)
	if err != nil {
		return a.fallback(ctx, "openai reply not parseable: "+err.Error())
	}
	return Outcome{AccuracyScore: score, Inaccuracies: inaccs, RawReply: raw}
}
