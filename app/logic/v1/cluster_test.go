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

func TestAutoClusterOptionsDefaults(t *testing.T) {
	var opts AutoClusterOptions
	opts.fill()

	assert.Equal(t, CLUSTER_DEFAULT_MIN_SIZE, opts.MinClusterSize)
	assert.Equal(t, CLUSTER_DEFAULT_MAX, opts.MaxClusters)
	assert.Equal(t, float64(CLUSTER_DEFAULT_THRESHOLD), opts.SimilarityThreshold)
	// 零值下LLM命名默认开启
	assert.False(t, opts.DisableAI)
}

func TestUpdateClusterRequiresName(t *testing.T) {
	err := NewClusterLogic(context.Background(), nil).UpdateCluster("org1", "c1", "", "", nil)
	require.Error(t, err)

	var ce *errors.CustomizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.GetCode())
}

func TestGreedyGroupMinClusterSize(t *testing.T) {
	// 两个高度相似的向量，minSize=3时不足以成簇
	vectors := [][]float32{
		{1, 0, 0},
		{1, 0.01, 0},
	}

	groups, unclustered := greedyGroup(vectors, 0.7, 3, 20)
	assert.Empty(t, groups)
	assert.Equal(t, []int{0, 1}, unclustered)
}

func TestGreedyGroupThreshold(t *testing.T) {
	// A与B高度相似，与C相似度约0.2
	vectors := [][]float32{
		{1, 0.75, 0},   // A
		{0.75, 1, 0},   // B
		{0.2, 0.05, 1}, // C
	}

	groups, unclustered := greedyGroup(vectors, 0.7, 2, 20)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{0, 1}, groups[0].Members)
	assert.Equal(t, []int{2}, unclustered)

	// 种子relevance为1，成员记录入簇时相似度
	assert.Equal(t, float64(1), groups[0].Scores[0])
	assert.Greater(t, groups[0].Scores[1], 0.7)
}

func TestGreedyGroupMaxClusters(t *testing.T) {
	// 两组正交向量，maxGroups=1时第二组整体落入unclustered
	vectors := [][]float32{
		{1, 0, 0}, {1, 0, 0}, {1, 0, 0},
		{0, 1, 0}, {0, 1, 0}, {0, 1, 0},
	}

	groups, unclustered := greedyGroup(vectors, 0.7, 3, 1)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{0, 1, 2}, groups[0].Members)
	assert.Equal(t, []int{3, 4, 5}, unclustered)
}

func TestGreedyGroupOrderDependent(t *testing.T) {
	// 贪心算法依赖遍历顺序：桥接向量会被第一个种子吸收
	vectors := [][]float32{
		{1, 0.9, 0},
		{0.9, 1, 0.2},
		{0, 0.1, 1},
	}

	groups, _ := greedyGroup(vectors, 0.7, 2, 20)
	require.Len(t, groups, 1)
	assert.Equal(t, 0, groups[0].Members[0])
}

func TestCommonTags(t *testing.T) {
	members := []*types.ContentItem{
		{Tags: []string{"payments", "infra"}},
		{Tags: []string{"payments", "rollout"}},
		{Tags: []string{"payments", "infra", "infra"}}, // 重复标签只计一次
		{Tags: []string{"misc"}},
	}

	tags := commonTags(members)
	assert.Equal(t, []string{"payments", "infra"}, tags)
}

func TestCommonTagsEmpty(t *testing.T) {
	assert.Nil(t, commonTags(nil))
}
