package store

import (
	"context"
	"encoding/json"

	"github.com/pgvector/pgvector-go"

	"github.com/loreweave/loreweave/pkg/sqlstore"
	"github.com/loreweave/loreweave/pkg/types"
)

// ContentItemStore 内容条目，采集侧写入，本核心只读
type ContentItemStore interface {
	sqlstore.SqlCommons
	Get(ctx context.Context, organizationID, id string) (*types.ContentItem, error)
	List(ctx context.Context, opts types.ListContentItemOptions, page, pageSize uint64) ([]*types.ContentItem, error)
	Total(ctx context.Context, opts types.ListContentItemOptions) (uint64, error)
}

// ContentRelationshipStore 内容关系有向边
type ContentRelationshipStore interface {
	sqlstore.SqlCommons
	// CreateIfAbsent 原子幂等写入，(source,target,relation) 已存在时返回 false
	CreateIfAbsent(ctx context.Context, data types.ContentRelationship) (bool, error)
	ListBySource(ctx context.Context, sourceItemID string) ([]types.ContentRelationship, error)
	List(ctx context.Context, opts types.ListRelationshipOptions, page, pageSize uint64) ([]types.ContentRelationship, error)
	Total(ctx context.Context, opts types.ListRelationshipOptions) (uint64, error)
	Delete(ctx context.Context, id string) error
}

type TopicClusterStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.TopicCluster) error
	Get(ctx context.Context, organizationID, id string) (*types.TopicCluster, error)
	Update(ctx context.Context, organizationID, id, name, description string, tags []string) error
	// UpdateAggregates 成员变动后同步质心与成员数
	UpdateAggregates(ctx context.Context, id string, centroid pgvector.Vector, memberCount int) error
	List(ctx context.Context, opts types.ListTopicClusterOptions, page, pageSize uint64) ([]types.TopicCluster, error)
	// QueryNearest 按质心余弦相似度降序检索组织内聚类
	QueryNearest(ctx context.Context, organizationID string, vector pgvector.Vector, limit uint64) ([]types.ClusterQueryResult, error)
}

type ClusterMembershipStore interface {
	sqlstore.SqlCommons
	BatchCreate(ctx context.Context, datas []types.ClusterMembership) error
	ListByCluster(ctx context.Context, clusterID string) ([]types.ClusterMembership, error)
	ListByItemIDs(ctx context.Context, itemIDs []string) ([]types.ClusterMembership, error)
	DeleteByCluster(ctx context.Context, clusterID string) error
}

type TopicExpertiseStore interface {
	sqlstore.SqlCommons
	// Upsert 按 (cluster_id, author_key) 覆盖写
	Upsert(ctx context.Context, data types.TopicExpertise) error
	ListByCluster(ctx context.Context, clusterID string) ([]types.TopicExpertise, error)
	DeleteByCluster(ctx context.Context, clusterID string) error
}

type DecisionStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.Decision) error
	Get(ctx context.Context, organizationID, id string) (*types.Decision, error)
	Update(ctx context.Context, organizationID, id string, args types.UpdateDecisionArgs) error
	UpdateStatus(ctx context.Context, organizationID, id string, status types.DecisionStatus) error
	// MarkSuperseded 冻结状态并记录取代信息
	MarkSuperseded(ctx context.Context, organizationID, id, supersededByID string, metadata json.RawMessage) error
	UpdateEmbedding(ctx context.Context, organizationID, id string, vector pgvector.Vector) error
	List(ctx context.Context, opts types.ListDecisionOptions, page, pageSize uint64) ([]types.Decision, error)
	Total(ctx context.Context, opts types.ListDecisionOptions) (uint64, error)
	// QuerySimilar 组织内已向量化决策的余弦检索，排除自身
	QuerySimilar(ctx context.Context, organizationID string, vector pgvector.Vector, excludeID string, limit uint64) ([]types.DecisionQueryResult, error)
}

type DecisionParticipantStore interface {
	sqlstore.SqlCommons
	BatchCreate(ctx context.Context, datas []types.DecisionParticipant) error
	ListByDecision(ctx context.Context, decisionID string) ([]types.DecisionParticipant, error)
	DeleteByDecision(ctx context.Context, decisionID string) error
}

type DecisionEvidenceStore interface {
	sqlstore.SqlCommons
	// Upsert 按 (decision_id, content_item_id, evidence_type) 幂等覆盖
	Upsert(ctx context.Context, data types.DecisionEvidence) error
	ListByDecision(ctx context.Context, decisionID string) ([]types.DecisionEvidence, error)
	ListByDecisions(ctx context.Context, decisionIDs []string) ([]types.DecisionEvidence, error)
}

type DecisionLinkStore interface {
	sqlstore.SqlCommons
	// CreateIfAbsent (decision,entity_type,entity,link_type) 已存在时返回 false
	CreateIfAbsent(ctx context.Context, data types.DecisionLink) (bool, error)
	ListByDecision(ctx context.Context, decisionID string) ([]types.DecisionLink, error)
}
