package types

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// TopicCluster 主题聚类，centroid 为成员向量的均值
// 聚类只增不删，membership 变化时需要同步 member_count 与 centroid
type TopicCluster struct {
	ID             string           `json:"id" db:"id"`
	OrganizationID string           `json:"organization_id" db:"organization_id"`
	Name           string           `json:"name" db:"name"`
	Description    string           `json:"description" db:"description"`
	Tags           pq.StringArray   `json:"tags" db:"tags"`
	Centroid       *pgvector.Vector `json:"centroid,omitempty" db:"centroid"`
	MemberCount    int              `json:"member_count" db:"member_count"`
	CreatedAt      int64            `json:"created_at" db:"created_at"`
	UpdatedAt      int64            `json:"updated_at" db:"updated_at"`
}

// ClusterMembership (cluster_id, content_item_id) 唯一
// relevance_score 记录的是入簇时刻的相似度，后续不回溯校正
type ClusterMembership struct {
	ID             string  `json:"id" db:"id"`
	ClusterID      string  `json:"cluster_id" db:"cluster_id"`
	ContentItemID  string  `json:"content_item_id" db:"content_item_id"`
	RelevanceScore float64 `json:"relevance_score" db:"relevance_score"`
	CreatedAt      int64   `json:"created_at" db:"created_at"`
}

// TopicExpertise 按 (cluster_id, author_key) 聚合的专长评分，整体重算
type TopicExpertise struct {
	ID                string  `json:"id" db:"id"`
	ClusterID         string  `json:"cluster_id" db:"cluster_id"`
	AuthorKey         string  `json:"author_key" db:"author_key"`
	ContributionCount int     `json:"contribution_count" db:"contribution_count"`
	SummedRelevance   float64 `json:"summed_relevance" db:"summed_relevance"`
	ExpertiseScore    float64 `json:"expertise_score" db:"expertise_score"`
	UpdatedAt         int64   `json:"updated_at" db:"updated_at"`
}

type ListTopicClusterOptions struct {
	ID             string
	OrganizationID string
	HasCentroid    bool
}

func (opts ListTopicClusterOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	}
	if opts.OrganizationID != "" {
		*query = query.Where(sq.Eq{"organization_id": opts.OrganizationID})
	}
	if opts.HasCentroid {
		*query = query.Where("centroid IS NOT NULL")
	}
}

// ClusterQueryResult 按 centroid 余弦距离检索的结果行
type ClusterQueryResult struct {
	ID  string  `json:"id" db:"id"`
	Cos float32 `json:"cos" db:"cos"`
}
