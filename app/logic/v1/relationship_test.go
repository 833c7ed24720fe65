package v1

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/pkg/types"
)

func TestDedupeCandidatesMaxMerge(t *testing.T) {
	candidates := []types.RelationshipCandidate{
		{SourceItemID: "a", TargetItemID: "b", Relation: types.RELATION_TYPE_RELATES_TO, Confidence: 0.6, Reason: "low"},
		{SourceItemID: "a", TargetItemID: "b", Relation: types.RELATION_TYPE_RELATES_TO, Confidence: 0.9, Reason: "high"},
		{SourceItemID: "a", TargetItemID: "c", Relation: types.RELATION_TYPE_RELATES_TO, Confidence: 0.7},
	}

	merged := dedupeCandidates(candidates)
	require.Len(t, merged, 2)
	assert.Equal(t, 0.9, merged[0].Confidence)
	assert.Equal(t, "high", merged[0].Reason)
	assert.Equal(t, "c", merged[1].TargetItemID)
}

func TestDedupeCandidatesKeepsDifferentRelations(t *testing.T) {
	candidates := []types.RelationshipCandidate{
		{SourceItemID: "a", TargetItemID: "b", Relation: types.RELATION_TYPE_REFERENCES, Confidence: 0.95},
		{SourceItemID: "a", TargetItemID: "b", Relation: types.RELATION_TYPE_MENTIONS, Confidence: 0.8},
	}

	merged := dedupeCandidates(candidates)
	assert.Len(t, merged, 2)
}

func TestTemporalConfidenceTiers(t *testing.T) {
	assert.Equal(t, 0.8, temporalConfidence(30*60))    // 30分钟
	assert.Equal(t, 0.8, temporalConfidence(-30*60))   // 方向无关
	assert.Equal(t, 0.7, temporalConfidence(2*3600))   // 2小时
	assert.Equal(t, 0.5, temporalConfidence(10*3600))  // 10小时
	assert.Equal(t, 0.0, temporalConfidence(30*3600))  // 30小时，超窗
}

func TestDetectTemporalCrossSourceOnly(t *testing.T) {
	src := &types.ContentItem{ID: "a", SourceID: "slack", CreatedAtSource: 1000}
	sameSource := &types.ContentItem{ID: "b", SourceID: "slack", CreatedAtSource: 1100}
	otherSource := &types.ContentItem{ID: "c", SourceID: "github", CreatedAtSource: 1100}

	candidates := detectTemporal(src, []*types.ContentItem{sameSource, otherSource})
	require.Len(t, candidates, 1)
	assert.Equal(t, "c", candidates[0].TargetItemID)
	assert.Equal(t, 0.8, candidates[0].Confidence)
}

func TestDetectExplicit(t *testing.T) {
	src := &types.ContentItem{
		ID:      "a",
		Content: "see https://docs.example.com/rfc-12 and also #GH-42, plus the Payment gateway rollout doc",
	}
	targets := []*types.ContentItem{
		{ID: "b", URL: "https://docs.example.com/rfc-12"},
		{ID: "c", ExternalID: "GH-42"},
		{ID: "d", Title: "Payment gateway rollout"},
		{ID: "e", Title: "doc"}, // 标题太短，不参与匹配
	}

	candidates := detectExplicit(src, targets)
	require.Len(t, candidates, 3)
	assert.Equal(t, 0.95, candidates[0].Confidence)
	assert.Equal(t, types.RELATION_TYPE_REFERENCES, candidates[0].Relation)
	assert.Equal(t, 0.90, candidates[1].Confidence)
	assert.Equal(t, 0.80, candidates[2].Confidence)
	assert.Equal(t, types.RELATION_TYPE_MENTIONS, candidates[2].Relation)
}

func TestDetectEntityBothSignalsFire(t *testing.T) {
	src := &types.ContentItem{
		ID: "a", SourceID: "slack", AuthorID: "u1",
		Tags: []string{"payments", "infra", "rollout"},
	}
	target := &types.ContentItem{
		ID: "b", SourceID: "github", AuthorID: "u1",
		Tags: []string{"payments", "infra"},
	}

	candidates := detectEntity(src, []*types.ContentItem{target})
	require.Len(t, candidates, 2)
	// 共享2个标签: 0.5 + 0.1*2
	assert.InDelta(t, 0.7, candidates[0].Confidence, 1e-9)
	assert.Equal(t, 0.7, candidates[1].Confidence)
}

func TestDetectEntitySharedTagsCapped(t *testing.T) {
	tags := []string{"t1", "t2", "t3", "t4", "t5", "t6"}
	src := &types.ContentItem{ID: "a", SourceID: "slack", Tags: tags}
	target := &types.ContentItem{ID: "b", SourceID: "github", Tags: tags}

	candidates := detectEntity(src, []*types.ContentItem{target})
	require.Len(t, candidates, 1)
	// 6个共享标签会超过上限，封顶0.9
	assert.Equal(t, 0.9, candidates[0].Confidence)
}

func TestDetectSemanticNeedsBothEmbeddings(t *testing.T) {
	vec := pgvector.NewVector([]float32{1, 0, 0})
	src := &types.ContentItem{ID: "a", Embedding: &vec}
	withVec := pgvector.NewVector([]float32{1, 0, 0})
	targets := []*types.ContentItem{
		{ID: "b", Embedding: &withVec},
		{ID: "c"}, // 无embedding，跳过
	}

	candidates := detectSemantic(src, targets, 0.5)
	require.Len(t, candidates, 1)
	assert.Equal(t, "b", candidates[0].TargetItemID)
	assert.InDelta(t, 1.0, candidates[0].Confidence, 1e-6)
}

// fakeRelationshipStore 以内存map模拟唯一约束
type fakeRelationshipStore struct {
	edges map[string]types.ContentRelationship
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{edges: make(map[string]types.ContentRelationship)}
}

func (s *fakeRelationshipStore) GetTable(...interface{}) string { return "fake" }

func (s *fakeRelationshipStore) CreateIfAbsent(ctx context.Context, data types.ContentRelationship) (bool, error) {
	key := data.SourceItemID + "/" + data.TargetItemID + "/" + string(data.Relation)
	if _, ok := s.edges[key]; ok {
		return false, nil
	}
	s.edges[key] = data
	return true, nil
}

func (s *fakeRelationshipStore) ListBySource(ctx context.Context, sourceItemID string) ([]types.ContentRelationship, error) {
	return nil, nil
}

func (s *fakeRelationshipStore) List(ctx context.Context, opts types.ListRelationshipOptions, page, pageSize uint64) ([]types.ContentRelationship, error) {
	return nil, nil
}

func (s *fakeRelationshipStore) Total(ctx context.Context, opts types.ListRelationshipOptions) (uint64, error) {
	return uint64(len(s.edges)), nil
}

func (s *fakeRelationshipStore) Delete(ctx context.Context, id string) error { return nil }

func TestPersistCandidatesIdempotent(t *testing.T) {
	store := newFakeRelationshipStore()
	candidates := []types.RelationshipCandidate{
		{SourceItemID: "a", TargetItemID: "b", Relation: types.RELATION_TYPE_SIMILAR_TO, Confidence: 0.8},
		{SourceItemID: "a", TargetItemID: "c", Relation: types.RELATION_TYPE_RELATES_TO, Confidence: 0.7},
	}

	created, skipped, errs := persistCandidates(context.Background(), store, "org1", candidates)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, errs)

	// 第二次执行全部命中已有边
	created, skipped, errs = persistCandidates(context.Background(), store, "org1", candidates)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)
	assert.Empty(t, errs)
}
