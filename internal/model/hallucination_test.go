package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to CorrectionStatus }{
		{StatusOpen, StatusVerifying},
		{StatusOpen, StatusDismissed},
		{StatusVerifying, StatusFixed},
		{StatusVerifying, StatusOpen},
		{StatusDismissed, StatusOpen},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr.from, tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}
}

func TestCanTransition_Rejected(t *testing.T) {
	states := []CorrectionStatus{StatusOpen, StatusVerifying, StatusFixed, StatusDismissed, StatusRecurring}

	// fixed and recurring are terminal.
	for _, to := range states {
		assert.False(t, CanTransition(StatusFixed, to), "fixed -> %s", to)
		assert.False(t, CanTransition(StatusRecurring, to), "recurring -> %s", to)
	}

	// nothing transitions into recurring.
	for _, from := range states {
		assert.False(t, CanTransition(from, StatusRecurring), "%s -> recurring", from)
	}

	assert.False(t, CanTransition(StatusOpen, StatusFixed), "fixed requires passing through verifying")
	assert.False(t, CanTransition(StatusDismissed, StatusVerifying))
	assert.False(t, CanTransition(StatusVerifying, StatusDismissed))
	assert.False(t, CanTransition(StatusOpen, StatusOpen), "self transition is not a move")
}

func TestCorrectionStatusValid(t *testing.T) {
	for _, s := range []CorrectionStatus{StatusOpen, StatusVerifying, StatusFixed, StatusDismissed, StatusRecurring} {
		assert.True(t, s.Valid())
	}
	assert.False(t, CorrectionStatus("resolved").Valid())
	assert.False(t, CorrectionStatus("").Valid())
}

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, NormalizeSeverity("critical"))
	assert.Equal(t, SeverityLow, NormalizeSeverity("low"))
	assert.Equal(t, SeverityMedium, NormalizeSeverity("moderate"))
	assert.Equal(t, SeverityMedium, NormalizeSeverity(""))
}
