package v1

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/pkg/errors"
	"github.com/loreweave/loreweave/pkg/types"
)

func TestUpdateDecisionRequiresSummary(t *testing.T) {
	err := NewDecisionLogic(context.Background(), nil).UpdateDecision("org1", "d1", types.UpdateDecisionArgs{})
	require.Error(t, err)

	var ce *errors.CustomizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.GetCode())
}

func TestSupersedeRequiresReason(t *testing.T) {
	l := NewDecisionLogic(context.Background(), nil)

	err := l.Supersede("org1", "d1", "d2", "")
	require.Error(t, err)

	var ce *errors.CustomizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.GetCode())

	// 自指取代同样在校验阶段被拒绝
	err = l.Supersede("org1", "d1", "d1", "replaced by revised rollout plan")
	require.Error(t, err)
}
