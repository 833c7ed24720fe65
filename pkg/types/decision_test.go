package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionStatusTransitions(t *testing.T) {
	assert.True(t, DECISION_STATUS_PROPOSED.CanTransition(DECISION_STATUS_DECIDED))
	assert.True(t, DECISION_STATUS_DECIDED.CanTransition(DECISION_STATUS_IMPLEMENTED))
	assert.True(t, DECISION_STATUS_DECIDED.CanTransition(DECISION_STATUS_REVISITED))
	assert.True(t, DECISION_STATUS_REVISITED.CanTransition(DECISION_STATUS_DECIDED))
	assert.True(t, DECISION_STATUS_IMPLEMENTED.CanTransition(DECISION_STATUS_SUPERSEDED))

	assert.False(t, DECISION_STATUS_PROPOSED.CanTransition(DECISION_STATUS_IMPLEMENTED))
	assert.False(t, DECISION_STATUS_IMPLEMENTED.CanTransition(DECISION_STATUS_DECIDED))
	// implemented 只能走向 superseded，不存在回到 revisited 的路径
	assert.False(t, DECISION_STATUS_IMPLEMENTED.CanTransition(DECISION_STATUS_REVISITED))

	// superseded 是终态
	for _, to := range []DecisionStatus{
		DECISION_STATUS_PROPOSED, DECISION_STATUS_DECIDED,
		DECISION_STATUS_IMPLEMENTED, DECISION_STATUS_REVISITED, DECISION_STATUS_SUPERSEDED,
	} {
		assert.False(t, DECISION_STATUS_SUPERSEDED.CanTransition(to))
	}
}

func TestDecisionStatusFromString(t *testing.T) {
	status, err := DecisionStatusFromString("Decided")
	assert.NoError(t, err)
	assert.Equal(t, DECISION_STATUS_DECIDED, status)

	_, err = DecisionStatusFromString("closed")
	assert.Error(t, err)
}

func TestDecisionEmbeddingText(t *testing.T) {
	d := Decision{Summary: "use postgres", Context: "", Reasoning: "team expertise"}
	assert.Equal(t, "use postgres\n\nteam expertise", d.EmbeddingText())

	empty := Decision{}
	assert.Empty(t, empty.EmbeddingText())
}

func TestContentItemAuthorKey(t *testing.T) {
	assert.Equal(t, "u1", (&ContentItem{AuthorID: "u1", AuthorName: "bob"}).AuthorKey())
	assert.Equal(t, "ext9", (&ContentItem{AuthorExternal: "ext9"}).AuthorKey())
	assert.Equal(t, "bob", (&ContentItem{AuthorName: "bob"}).AuthorKey())
	assert.Equal(t, AUTHOR_KEY_UNKNOWN, (&ContentItem{}).AuthorKey())
}
