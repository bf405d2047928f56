package engine

import (
	"context"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/resilience"
	"github.com/veracity-group/truthscan-cli/pkg/gemini"
)

// GeminiAdapter audits the Gemini engine via the Generative Language API.
type GeminiAdapter struct {
	base
	client gemini.Client
}

// NewGeminiAdapter creates the Gemini adapter. A nil client means the
// integration is unconfigured and every evaluation takes the fallback path.
func NewGeminiAdapter(client gemini.Client, opts Options) *GeminiAdapter {
	return &GeminiAdapter{
		base:   newBase(model.EngineGemini, opts),
		client: client,
	}
}

func (a *GeminiAdapter) Configured() bool {
	return a.client != nil
}

func (a *GeminiAdapter) Evaluate(ctx context.Context, prompt string) Outcome {
	if a.client == nil {
		return a.fallback(ctx, "gemini integration not configured (set TRUTHSCAN_GEMINI_KEY)")
	}
	if err := a.wait(ctx); err != nil {
		return a.fallback(ctx, "rate limit wait interrupted: "+err.Error())
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*gemini.GenerateResponse, error) {
		return a.client.GenerateContent(ctx, prompt)
	})
	if err != nil {
		return a.fallback(ctx, "gemini call failed: "+err.Error())
	}

	raw := resp.Text()
	score, inaccs, err := parseReply(raw)
	if err != nil {
		return a.fallback(ctx, "gemini reply not parseable: "+err.Error())
	}
	return Outcome{AccuracyScore: score, Inaccuracies: inaccs, RawReply: raw}
}
