package engine

import (
	"context"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/resilience"
	"github.com/veracity-group/truthscan-cli/pkg/anthropic"
)

// ClaudeAdapter audits the Claude engine via the Anthropic API.
type ClaudeAdapter struct {
	base
	client anthropic.Client
	model  string
}

// NewClaudeAdapter creates the Claude adapter. A nil client means the
// integration is unconfigured and every evaluation takes the fallback path.
func NewClaudeAdapter(client anthropic.Client, modelID string, opts Options) *ClaudeAdapter {
	return &ClaudeAdapter{
		base:   newBase(model.EngineClaude, opts),
		client: client,
		model:  modelID,
	}
}

func (a *ClaudeAdapter) Configured() bool {
	return a.client != nil
}

func (a *ClaudeAdapter) Evaluate(ctx context.Context, prompt string) Outcome {
	if a.client == nil {
		return a.fallback(ctx, "anthropic integration not configured (set TRUTHSCAN_ANTHROPIC_KEY)")
	}
	if err := a.wait(ctx); err != nil {
		return a.fallback(ctx, "rate limit wait interrupted: "+err.Error())
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.model,
			MaxTokens: 1024,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return a.fallback(ctx, "anthropic call failed: "+err.Error())
	}
	resp.Usage.LogCost(a.model, "audit")

	score, inaccs, err := parseReply(resp.Text)
	if err != nil {
		return a.fallback(ctx, "anthropic reply not parseable: "+err.Error())
	}
	return Outcome{AccuracyScore: score, Inaccuracies: inaccs, RawReply: resp.Text}
}
