package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONArray(t *testing.T) {
	raw := "Sure, here are the results:\n```json\n[{\"summary\": \"use [pgvector] for search\"}]\n```"
	got := ExtractJSONArray(raw)
	assert.Equal(t, `[{"summary": "use [pgvector] for search"}]`, got)
}

func TestExtractJSONArrayUnbalanced(t *testing.T) {
	assert.Equal(t, "", ExtractJSONArray("no array here"))
	assert.Equal(t, "", ExtractJSONArray("[{\"a\": 1}"))
}

func TestParseClusterName(t *testing.T) {
	res := ParseClusterName("{\"name\": \" Deployment Pipeline \", \"description\": \"CI/CD discussions\"}")
	assert.Equal(t, "Deployment Pipeline", res.Name)
	assert.Equal(t, "CI/CD discussions", res.Description)
}

func TestParseClusterNameMalformed(t *testing.T) {
	assert.Equal(t, ClusterNameResult{}, ParseClusterName("I could not decide on a name."))
	assert.Equal(t, ClusterNameResult{}, ParseClusterName("{not valid json}"))
}

func TestParseExtractedDecisions(t *testing.T) {
	raw := `Here you go:
[
  {"summary": "Adopt PostgreSQL for the new service", "confidence": 90, "status": "decided"},
  {"summary": "short", "confidence": 90},
  {"summary": "Move the cron jobs to the worker pool", "confidence": 30}
]`
	got := ParseExtractedDecisions(raw)
	// 过短summary与低置信度候选被丢弃
	assert.Len(t, got, 1)
	assert.Equal(t, "Adopt PostgreSQL for the new service", got[0].Summary)
}

func TestParseExtractedDecisionsMalformed(t *testing.T) {
	assert.Nil(t, ParseExtractedDecisions("no decisions found"))
	assert.Nil(t, ParseExtractedDecisions("[{broken json]"))
}

func TestParseArbitration(t *testing.T) {
	raw := "RESULT: CONFLICT\nCONFIDENCE: 85\nEXPLANATION: Decision B forbids what decision A mandates."
	res := ParseArbitration(raw)
	assert.Equal(t, ARBITRATION_CONFLICT, res.Verdict)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Equal(t, "Decision B forbids what decision A mandates.", res.Explanation)
}

func TestParseArbitrationFractionConfidence(t *testing.T) {
	res := ParseArbitration("RESULT: OVERLAP\nCONFIDENCE: 0.6\nEXPLANATION: partial scope overlap")
	assert.Equal(t, ARBITRATION_OVERLAP, res.Verdict)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
}

func TestParseArbitrationGarbage(t *testing.T) {
	// 模板之外的任何输出都按无冲突兜底
	res := ParseArbitration("I think these two are probably fine together?")
	assert.Equal(t, ARBITRATION_NO_CONFLICT, res.Verdict)
	assert.Equal(t, float64(0), res.Confidence)
}

func TestParseArbitrationUnknownVerdict(t *testing.T) {
	res := ParseArbitration("RESULT: MAYBE\nCONFIDENCE: 70")
	assert.Equal(t, ARBITRATION_NO_CONFLICT, res.Verdict)
}
