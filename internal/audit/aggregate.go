// Package audit computes composite truth scores and turns evaluation
// inaccuracies into hallucination ledger entries.
package audit

import (
	"math"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

// DefaultWeights is the per-provider weighting used when config supplies
// nothing. Weights sum to 1.0.
var DefaultWeights = map[model.Engine]float64{
	model.EngineChatGPT:    0.30,
	model.EngineClaude:     0.25,
	model.EngineGemini:     0.25,
	model.EnginePerplexity: 0.20,
}

// ConsensusThreshold is the minimum per-engine score for the consensus flag.
const ConsensusThreshold = 80

// WeightsFromConfig maps config's string-keyed weight table onto engine
// keys, dropping unknown providers. An empty or all-unknown table yields
// the defaults.
func WeightsFromConfig(raw map[string]float64) map[model.Engine]float64 {
	out := make(map[model.Engine]float64, len(raw))
	for name, w := range raw {
		eng := model.Engine(name)
		if eng.Valid() && w > 0 {
			out[eng] = w
		}
	}
	if len(out) == 0 {
		return DefaultWeights
	}
	return out
}

// Aggregate folds the latest per-engine scores into one weighted composite.
// Engines with a nil score are excluded from both numerator and denominator;
// the remaining weights are renormalized. Zero reporting engines leaves
// TruthScore nil. Consensus demands every reporting engine at or above the
// threshold and at least one historically verified fix for the entity.
func Aggregate(weights map[model.Engine]float64, scores map[model.Engine]*int, fixedCorrections int) model.TruthAuditResult {
	if len(weights) == 0 {
		weights = DefaultWeights
	}

	var (
		weightedSum float64
		weightTotal float64
		reporting   int
		allAbove    = true
	)
	engineScores := make(map[model.Engine]int, len(scores))

	for eng, score := range scores {
		if score == nil {
			continue
		}
		w, ok := weights[eng]
		if !ok {
			continue
		}
		reporting++
		engineScores[eng] = *score
		weightedSum += w * float64(*score)
		weightTotal += w
		if *score < ConsensusThreshold {
			allAbove = false
		}
	}

	result := model.TruthAuditResult{
		EnginesReporting: reporting,
		EngineScores:     engineScores,
	}
	if reporting == 0 || weightTotal == 0 {
		return result
	}

	composite := int(math.Round(weightedSum / weightTotal))
	result.TruthScore = &composite
	result.Consensus = allAbove && fixedCorrections >= 1
	return result
}
