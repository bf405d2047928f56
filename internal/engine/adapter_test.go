package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/resilience"
	"github.com/veracity-group/truthscan-cli/pkg/anthropic"
)

type failingAnthropicClient struct{}

func (failingAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return nil, errors.New("connection reset mid-flight")
}

type cannedAnthropicClient struct {
	text string
}

func (c cannedAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{Text: c.text}, nil
}

func testOptions(delay time.Duration) Options {
	return Options{
		FallbackDelay: delay,
		Retry:         resilience.RetryConfig{MaxAttempts: 1},
	}
}

// An unconfigured provider and one whose call fails mid-flight must be
// indistinguishable to callers in both shape and timing.
func TestEvaluate_FallbackEquivalence(t *testing.T) {
	delay := 30 * time.Millisecond

	unconfigured := NewClaudeAdapter(nil, "claude-test", testOptions(delay))
	failing := NewClaudeAdapter(failingAnthropicClient{}, "claude-test", testOptions(delay))

	ctx := context.Background()

	startA := time.Now()
	outA := unconfigured.Evaluate(ctx, "prompt")
	elapsedA := time.Since(startA)

	startB := time.Now()
	outB := failing.Evaluate(ctx, "prompt")
	elapsedB := time.Since(startB)

	for _, out := range []Outcome{outA, outB} {
		assert.True(t, out.Fallback)
		assert.Equal(t, FallbackScore, out.AccuracyScore)
		require.Len(t, out.Inaccuracies, 1)
		assert.True(t, strings.HasPrefix(out.RawReply, fallbackReplyMarker))
	}
	assert.GreaterOrEqual(t, elapsedA, delay)
	assert.GreaterOrEqual(t, elapsedB, delay)
}

func TestEvaluate_UnparseableReplyFallsBack(t *testing.T) {
	a := NewClaudeAdapter(cannedAnthropicClient{text: "I refuse to answer in JSON."}, "claude-test", testOptions(time.Millisecond))

	out := a.Evaluate(context.Background(), "prompt")
	assert.True(t, out.Fallback)
	assert.Equal(t, FallbackScore, out.AccuracyScore)
}

func TestEvaluate_Success(t *testing.T) {
	reply := `{"accuracy_score": 92, "inaccuracies": [{"claim": "listed as closed on mondays", "expected": "open mondays", "severity": "medium"}]}`
	a := NewClaudeAdapter(cannedAnthropicClient{text: reply}, "claude-test", testOptions(time.Millisecond))

	out := a.Evaluate(context.Background(), "prompt")
	assert.False(t, out.Fallback)
	assert.Equal(t, 92, out.AccuracyScore)
	require.Len(t, out.Inaccuracies, 1)
	assert.Equal(t, "listed as closed on mondays", out.Inaccuracies[0].Claim)
	assert.Equal(t, reply, out.RawReply)
}

func TestEvaluate_FallbackHonorsContextCancel(t *testing.T) {
	a := NewClaudeAdapter(nil, "claude-test", testOptions(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	out := a.Evaluate(ctx, "prompt")
	assert.True(t, out.Fallback)
	assert.Less(t, time.Since(start), time.Second)
}
