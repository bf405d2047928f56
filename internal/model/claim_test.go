package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimKey_FoldsAndTruncates(t *testing.T) {
	tests := []struct {
		name  string
		claim string
		want  string
	}{
		{"lowercases", "The Cafe Closes At 5PM", "the cafe closes at 5"},
		{"trims whitespace", "  open on sundays", "open on sundays"},
		{"short claim kept whole", "no wifi", "no wifi"},
		{"empty claim", "   ", ""},
		{"unicode fold", "CAFÉ ΩMEGA", "café ωmega"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClaimKey(tt.claim))
		})
	}
}

func TestClaimKey_TruncatesByRunesNotBytes(t *testing.T) {
	claim := "ééééééééééééééééééééEXTRA"
	key := ClaimKey(claim)
	assert.Equal(t, 20, len([]rune(key)))
}

func TestClaimStillPresent(t *testing.T) {
	original := "The cafe closes at 5pm on weekdays"

	t.Run("verbatim restatement", func(t *testing.T) {
		assert.True(t, ClaimStillPresent(original, []string{
			"the cafe closes at 5pm on weekdays",
		}))
	})

	t.Run("paraphrased but same opening", func(t *testing.T) {
		assert.True(t, ClaimStillPresent(original, []string{
			"wrong phone number listed",
			"It says the cafe closes at 5pm every day which is wrong",
		}))
	})

	t.Run("case difference ignored", func(t *testing.T) {
		assert.True(t, ClaimStillPresent(original, []string{
			"THE CAFE CLOSES AT 5PM sharp",
		}))
	})

	t.Run("claim gone", func(t *testing.T) {
		assert.False(t, ClaimStillPresent(original, []string{
			"the listed address is outdated",
		}))
	})

	t.Run("no fresh inaccuracies", func(t *testing.T) {
		assert.False(t, ClaimStillPresent(original, nil))
	})

	t.Run("blank original never matches", func(t *testing.T) {
		assert.False(t, ClaimStillPresent("   ", []string{"anything"}))
	})
}
