// Package engine dispatches truth audits to external answer-generating
// providers. Each provider gets one Adapter; adapters never surface
// transport, auth, or parse failures to callers — they degrade to a
// deterministic fallback outcome instead, so the rest of the pipeline
// always has a well-formed result to persist and score.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/resilience"
)

// Outcome is the normalized result of one provider evaluation.
type Outcome struct {
	AccuracyScore int                `json:"accuracy_score"`
	Inaccuracies  []model.Inaccuracy `json:"inaccuracies"`
	RawReply      string             `json:"raw_reply"`
	Fallback      bool               `json:"fallback"`
}

// Adapter evaluates a ground-truth-derived prompt against one provider.
// Evaluate never fails: any provider-side problem yields the fallback
// outcome after a delay matching typical real-call latency, so callers and
// their timeouts behave identically whether or not the integration works.
type Adapter interface {
	Engine() model.Engine
	Configured() bool
	Evaluate(ctx context.Context, prompt string) Outcome
}

const (
	// FallbackScore is the fixed placeholder accuracy of a degraded outcome.
	FallbackScore = 70

	// DefaultFallbackDelay approximates the latency of a real provider call.
	DefaultFallbackDelay = 2 * time.Second

	fallbackReplyMarker = "[truthscan-fallback]"
)

// Options tune adapter behavior; zero values take defaults.
type Options struct {
	FallbackDelay   time.Duration
	RateLimitPerMin int
	Retry           resilience.RetryConfig
}

// base carries the shared fallback, rate-limit, and retry plumbing.
type base struct {
	engine  model.Engine
	delay   time.Duration
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func newBase(eng model.Engine, opts Options) base {
	delay := opts.FallbackDelay
	if delay == 0 {
		delay = DefaultFallbackDelay
	}
	var limiter *rate.Limiter
	if opts.RateLimitPerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RateLimitPerMin)), 5)
	}
	return base{engine: eng, delay: delay, limiter: limiter, retry: opts.Retry}
}

func (b base) Engine() model.Engine {
	return b.engine
}

// wait blocks on the provider rate limiter, if one is configured.
func (b base) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// fallback produces the deterministic degraded outcome. The artificial
// delay keeps the unconfigured and mid-flight-failure paths timing
// equivalent to a real call.
func (b base) fallback(ctx context.Context, reason string) Outcome {
	zap.L().Warn("engine: degrading to fallback outcome",
		zap.String("engine", string(b.engine)),
		zap.String("reason", reason),
	)

	if b.delay > 0 {
		timer := time.NewTimer(b.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	return Outcome{
		AccuracyScore: FallbackScore,
		Inaccuracies: []model.Inaccuracy{
			{Claim: reason, Severity: model.SeverityLow},
		},
		RawReply: fallbackReplyMarker + " " + string(b.engine) + ": " + reason,
		Fallback: true,
	}
}
