package model

import "time"

// Engine identifies one external generative-answer provider under audit.
type Engine string

const (
	EngineChatGPT    Engine = "chatgpt"
	EngineClaude     Engine = "claude"
	EngineGemini     Engine = "gemini"
	EnginePerplexity Engine = "perplexity"
)

// AllEngines lists every supported provider in stable order.
var AllEngines = []Engine{EngineChatGPT, EngineClaude, EngineGemini, EnginePerplexity}

// Valid reports whether e is a supported provider identifier.
func (e Engine) Valid() bool {
	switch e {
	case EngineChatGPT, EngineClaude, EngineGemini, EnginePerplexity:
		return true
	}
	return false
}

// Severity ranks how damaging a detected falsehood is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// NormalizeSeverity maps free-form severity text from an engine reply onto
// the closed set, defaulting to medium for anything unrecognized.
func NormalizeSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s)
	}
	return SeverityMedium
}

// Inaccuracy is one described falsehood inside an engine reply. Claim is the
// free-text description; Expected and Severity are filled when the engine
// returned the structured reply format.
type Inaccuracy struct {
	Claim    string   `json:"claim"`
	Expected string   `json:"expected,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// Evaluation is one attempt by one engine for one entity at one point in
// time. Rows are append-only: a later audit supersedes an earlier one by
// timestamp, never by update.
type Evaluation struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	EntityID      string       `json:"entity_id"`
	Engine        Engine       `json:"engine"`
	AccuracyScore *int         `json:"accuracy_score,omitempty"`
	Inaccuracies  []Inaccuracy `json:"inaccuracies"`
	RawReply      string       `json:"raw_reply"`
	Fallback      bool         `json:"fallback"`
	CreatedAt     time.Time    `json:"created_at"`
}

// InaccuracyDescriptions returns the plain-text claim list, the shape the
// scoring and re-verification paths operate on.
func (e Evaluation) InaccuracyDescriptions() []string {
	out := make([]string, 0, len(e.Inaccuracies))
	for _, in := range e.Inaccuracies {
		out = append(out, in.Claim)
	}
	return out
}

// TruthAuditResult is derived on demand from the latest evaluation per
// engine. It carries no independent state and is never persisted.
type TruthAuditResult struct {
	TruthScore       *int           `json:"truth_score"`
	Consensus        bool           `json:"consensus"`
	EnginesReporting int            `json:"engines_reporting"`
	EngineScores     map[Engine]int `json:"engine_scores"`
}
