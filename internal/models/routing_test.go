package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeStrength(t *testing.T) {
	assert.InDelta(t, 1.0, ScopeStrength("SBI", "Credit Card"), 1e-9)
	assert.InDelta(t, 0.7, ScopeStrength("SBI", ""), 1e-9)
	assert.InDelta(t, 0.7, ScopeStrength("", "Loan"), 1e-9)
	assert.InDelta(t, 0.0, ScopeStrength("", ""), 1e-9)
}

func TestRoutingResultPrimary(t *testing.T) {
	empty := RoutingResult{}
	assert.Equal(t, OpFallback, empty.Primary().Name)

	res := RoutingResult{Operations: []Operation{
		{Name: OpCount, Confidence: 0.95},
		{Name: OpFAQ, Confidence: 0.85},
	}}
	assert.Equal(t, OpCount, res.Primary().Name)
}

func TestOpNameTerminality(t *testing.T) {
	for _, op := range []OpName{OpClarify, OpRefuse, OpGreeting} {
		assert.True(t, op.IsTerminal(), string(op))
	}
	for _, op := range []OpName{OpCount, OpList, OpFAQ, OpFallback} {
		assert.False(t, op.IsTerminal(), string(op))
	}
}

func TestEvidenceDBStrength(t *testing.T) {
	assert.False(t, Evidence{}.DBStrength())
	assert.True(t, Evidence{RecordCount: 1}.DBStrength())
}

func TestOpNameAccuracyCritical(t *testing.T) {
	for _, op := range []OpName{OpCount, OpList, OpExplainAll} {
		assert.True(t, op.IsAccuracyCritical(), string(op))
	}
	for _, op := range []OpName{OpExplain, OpCompare, OpRecommend, OpFAQ} {
		assert.False(t, op.IsAccuracyCritical(), string(op))
	}
}
