// Package triage buckets extracted data points by confidence and decides
// whether a batch may be published.
package triage

import "github.com/veracity-group/truthscan-cli/internal/model"

// Tier is the publication treatment for one extracted item.
type Tier string

const (
	// TierAuto publishes without human involvement.
	TierAuto Tier = "auto"
	// TierReview publishes only after a human approves.
	TierReview Tier = "review"
	// TierBlocked never publishes and vetoes its whole batch.
	TierBlocked Tier = "blocked"
)

const (
	autoThreshold   = 0.85
	reviewThreshold = 0.60
)

// Classify maps a confidence value onto a tier. Owner-supplied items carry
// confidence 1.0 and land in auto by construction.
func Classify(confidence float64) Tier {
	switch {
	case confidence >= autoThreshold:
		return TierAuto
	case confidence >= reviewThreshold:
		return TierReview
	default:
		return TierBlocked
	}
}

// Classified pairs an extracted item with its tier.
type Classified struct {
	Item model.ExtractedItem `json:"item"`
	Tier Tier                `json:"tier"`
}

// ClassifyItems tiers every item in a batch.
func ClassifyItems(items []model.ExtractedItem) []Classified {
	out := make([]Classified, 0, len(items))
	for _, it := range items {
		out = append(out, Classified{Item: it, Tier: Classify(it.Confidence)})
	}
	return out
}

// CanPublish reports whether a batch may go out: the source must be
// certified and no item may be blocked. A single blocked item vetoes the
// batch regardless of how confident the rest is.
func CanPublish(items []model.ExtractedItem, certified bool) bool {
	if !certified {
		return false
	}
	for _, it := range items {
		if Classify(it.Confidence) == TierBlocked {
			return false
		}
	}
	return true
}
