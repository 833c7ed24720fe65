package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/pkg/ai"
	"github.com/loreweave/loreweave/pkg/types"
)

func TestClassifyGapPrecedence(t *testing.T) {
	now := time.Now().Unix()

	// decided 且零证据：documentation检查先于no_evidence命中
	gapType, severity, ok := classifyGap(types.Decision{
		Status:    types.DECISION_STATUS_DECIDED,
		CreatedAt: now,
	}, nil, now)
	require.True(t, ok)
	assert.Equal(t, GAP_NO_DOCUMENTATION, gapType)
	assert.Equal(t, GAP_SEVERITY_HIGH, severity)
}

func TestClassifyGapNoImplementation(t *testing.T) {
	now := time.Now().Unix()
	evidence := []types.DecisionEvidence{
		{EvidenceType: types.EVIDENCE_TYPE_DOCUMENTATION},
	}

	gapType, severity, ok := classifyGap(types.Decision{
		Status:    types.DECISION_STATUS_IMPLEMENTED,
		CreatedAt: now,
	}, evidence, now)
	require.True(t, ok)
	assert.Equal(t, GAP_NO_IMPLEMENTATION, gapType)
	assert.Equal(t, GAP_SEVERITY_MEDIUM, severity)
}

func TestClassifyGapNoEvidence(t *testing.T) {
	now := time.Now().Unix()

	gapType, severity, ok := classifyGap(types.Decision{
		Status:    types.DECISION_STATUS_IMPLEMENTED,
		CreatedAt: now,
	}, []types.DecisionEvidence{{EvidenceType: types.EVIDENCE_TYPE_IMPLEMENTATION}}, now)
	assert.False(t, ok, "implemented with implementation evidence has no gap")
	assert.Empty(t, gapType)
	assert.Empty(t, severity)

	gapType, _, ok = classifyGap(types.Decision{
		Status:    types.DECISION_STATUS_REVISITED,
		CreatedAt: now,
	}, nil, now)
	require.True(t, ok)
	assert.Equal(t, GAP_NO_EVIDENCE, gapType)
}

func TestClassifyGapStale(t *testing.T) {
	now := time.Now().Unix()
	old := now - int64(200*24*3600)
	evidence := []types.DecisionEvidence{
		{EvidenceType: types.EVIDENCE_TYPE_DOCUMENTATION},
	}

	// 有文档证据的decided决策，超过180天仍未推进
	gapType, severity, ok := classifyGap(types.Decision{
		Status:    types.DECISION_STATUS_DECIDED,
		CreatedAt: old,
	}, evidence, now)
	require.True(t, ok)
	assert.Equal(t, GAP_STALE, gapType)
	assert.Equal(t, GAP_SEVERITY_LOW, severity)

	// 未超期则没有缺口
	_, _, ok = classifyGap(types.Decision{
		Status:    types.DECISION_STATUS_DECIDED,
		CreatedAt: now,
	}, evidence, now)
	assert.False(t, ok)
}

func TestConflictCacheKeyOrderInsensitive(t *testing.T) {
	assert.Equal(t, conflictCacheKey("a", "b"), conflictCacheKey("b", "a"))
	assert.Equal(t, "conflict:verdict:a:b", conflictCacheKey("b", "a"))
}

func TestMapConflictType(t *testing.T) {
	assert.Equal(t, CONFLICT_DIRECT_CONTRADICTION, mapConflictType(ai.ARBITRATION_CONFLICT))
	assert.Equal(t, CONFLICT_SUPERSESSION_UNCLEAR, mapConflictType(ai.ARBITRATION_SUPERSEDE))
	assert.Equal(t, CONFLICT_SCOPE_OVERLAP, mapConflictType(ai.ARBITRATION_OVERLAP))
}
