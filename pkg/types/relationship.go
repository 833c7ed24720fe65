package types

import (
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

type RelationType string

const (
	RELATION_TYPE_REFERENCES RelationType = "references"
	RELATION_TYPE_MENTIONS   RelationType = "mentions"
	RELATION_TYPE_SIMILAR_TO RelationType = "similar_to"
	RELATION_TYPE_RELATES_TO RelationType = "relates_to"
)

func (r RelationType) String() string {
	return string(r)
}

type DetectStrategy string

const (
	DETECT_STRATEGY_EXPLICIT DetectStrategy = "explicit"
	DETECT_STRATEGY_SEMANTIC DetectStrategy = "semantic"
	DETECT_STRATEGY_TEMPORAL DetectStrategy = "temporal"
	DETECT_STRATEGY_ENTITY   DetectStrategy = "entity"
)

func DetectStrategyFromString(s string) (DetectStrategy, error) {
	switch DetectStrategy(strings.ToLower(s)) {
	case DETECT_STRATEGY_EXPLICIT, DETECT_STRATEGY_SEMANTIC, DETECT_STRATEGY_TEMPORAL, DETECT_STRATEGY_ENTITY:
		return DetectStrategy(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown detect strategy %q", s)
	}
}

// RelationshipCandidate 检测阶段的候选关系，不落库
type RelationshipCandidate struct {
	SourceItemID string            `json:"source_item_id"`
	TargetItemID string            `json:"target_item_id"`
	Relation     RelationType      `json:"relation"`
	Confidence   float64           `json:"confidence"`
	Reason       string            `json:"reason"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Key 去重键 (source, target, type)
func (c RelationshipCandidate) Key() string {
	return c.SourceItemID + "/" + c.TargetItemID + "/" + string(c.Relation)
}

// ContentRelationship 持久化的有向边
// 约束：(source_item_id, target_item_id, relation) 唯一，confidence ∈ [0,1]
type ContentRelationship struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	SourceItemID   string          `json:"source_item_id" db:"source_item_id"`
	TargetItemID   string          `json:"target_item_id" db:"target_item_id"`
	Relation       RelationType    `json:"relation" db:"relation"`
	Confidence     float64         `json:"confidence" db:"confidence"`
	Reason         string          `json:"reason" db:"reason"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      int64           `json:"created_at" db:"created_at"`
}

type ListRelationshipOptions struct {
	OrganizationID string
	SourceItemID   string
	TargetItemID   string
	Relation       RelationType
}

func (opts ListRelationshipOptions) Apply(query *sq.SelectBuilder) {
	if opts.OrganizationID != "" {
		*query = query.Where(sq.Eq{"organization_id": opts.OrganizationID})
	}
	if opts.SourceItemID != "" {
		*query = query.Where(sq.Eq{"source_item_id": opts.SourceItemID})
	}
	if opts.TargetItemID != "" {
		*query = query.Where(sq.Eq{"target_item_id": opts.TargetItemID})
	}
	if opts.Relation != "" {
		*query = query.Where(sq.Eq{"relation": opts.Relation})
	}
}
