package engine

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

type engineReply struct {
	AccuracyScore int `json:"accuracy_score"`
	Inaccuracies  []struct {
		Claim    string `json:"claim"`
		Expected string `json:"expected"`
		Severity string `json:"severity"`
	} `json:"inaccuracies"`
}

// parseReply extracts the structured audit result from a raw engine reply.
// Engines wrap JSON in prose or code fences often enough that we slice from
// the first '{' to the last '}' before unmarshaling.
func parseReply(raw string) (int, []model.Inaccuracy, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return 0, nil, eris.New("engine: no JSON object in reply")
	}

	var reply engineReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return 0, nil, eris.Wrap(err, "engine: unmarshal reply")
	}

	score := reply.AccuracyScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var inaccs []model.Inaccuracy
	for _, in := range reply.Inaccuracies {
		claim := strings.TrimSpace(in.Claim)
		if claim == "" {
			continue
		}
		inaccs = append(inaccs, model.Inaccuracy{
			Claim:    claim,
			Expected: strings.TrimSpace(in.Expected),
			Severity: model.NormalizeSeverity(in.Severity),
		})
	}

	return score, inaccs, nil
}
