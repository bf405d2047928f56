package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

func TestParseReply_CleanJSON(t *testing.T) {
	raw := `{"accuracy_score": 85, "inaccuracies": [{"claim": "closes at 5pm", "expected": "closes at 9pm", "severity": "high"}]}`

	score, inaccs, err := parseReply(raw)
	require.NoError(t, err)
	assert.Equal(t, 85, score)
	require.Len(t, inaccs, 1)
	assert.Equal(t, "closes at 5pm", inaccs[0].Claim)
	assert.Equal(t, "closes at 9pm", inaccs[0].Expected)
	assert.Equal(t, model.SeverityHigh, inaccs[0].Severity)
}

func TestParseReply_JSONWrappedInProse(t *testing.T) {
	raw := "Here is my assessment:\n```json\n{\"accuracy_score\": 100, \"inaccuracies\": []}\n```\nLet me know if you need more."

	score, inaccs, err := parseReply(raw)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
	assert.Empty(t, inaccs)
}

func TestParseReply_ClampsScore(t *testing.T) {
	score, _, err := parseReply(`{"accuracy_score": 140, "inaccuracies": []}`)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	score, _, err = parseReply(`{"accuracy_score": -5, "inaccuracies": []}`)
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestParseReply_SkipsBlankClaims(t *testing.T) {
	raw := `{"accuracy_score": 60, "inaccuracies": [{"claim": "  "}, {"claim": "wrong phone", "severity": "made-up"}]}`

	_, inaccs, err := parseReply(raw)
	require.NoError(t, err)
	require.Len(t, inaccs, 1)
	assert.Equal(t, "wrong phone", inaccs[0].Claim)
	assert.Equal(t, model.SeverityMedium, inaccs[0].Severity)
}

func TestParseReply_Errors(t *testing.T) {
	_, _, err := parseReply("I cannot evaluate this business.")
	assert.Error(t, err)

	_, _, err = parseReply("{not valid json}")
	assert.Error(t, err)
}
