package engine

import (
	"context"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/resilience"
	"github.com/veracity-group/truthscan-cli/pkg/perplexity"
)

// PerplexityAdapter audits the Perplexity engine via its chat API.
type PerplexityAdapter struct {
	base
	client perplexity.Client
	model  string
}

// NewPerplexityAdapter creates the Perplexity adapter. A nil client means
// the integration is unconfigured and every evaluation takes the fallback
// path.
func NewPerplexityAdapter(client perplexity.Client, modelID string, opts Options) *PerplexityAdapter {
	return &PerplexityAdapter{
		base:   newBase(model.EnginePerplexity, opts),
		client: client,
		model:  modelID,
	}
}

func (a *PerplexityAdapter) Configured() bool {
	return a.client != nil
}

func (a *PerplexityAdapter) Evaluate(ctx context.Context, prompt string) Outcome {
	if a.client == nil {
		return a.fallback(ctx, "perplexity integration not configured (set TRUTHSCAN_PERPLEXITY_KEY)")
	}
	if err := a.wait(ctx); err != nil {
		return a.fallback(ctx, "rate limit wait interrupted: "+err.Error())
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return a.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Model: a.model,
			Messages: []perplexity.Message{
				{Role: "user", Content: prompt},
			},
		})
	})
	if err != nil {
		return a.fallback(ctx, "perplexity call failed: "+err.Error())
	}
	if len(resp.Choices) == 0 {
		return a.fallback(ctx, "perplexity returned an empty choice list")
	}

	raw := resp.Choices[0].Message.Content
	score, inaccs, err := parseReply(raw)
	if err != nil {
		return a.fallback(ctx, "perplexity reply not parseable: "+err.Error())
	}
	return Outcome{AccuracyScore: score, Inaccuracies: inaccs, RawReply: raw}
}
