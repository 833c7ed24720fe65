package types

import (
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

type DecisionStatus string

const (
	DECISION_STATUS_PROPOSED    DecisionStatus = "proposed"
	DECISION_STATUS_DECIDED     DecisionStatus = "decided"
	DECISION_STATUS_IMPLEMENTED DecisionStatus = "implemented"
	DECISION_STATUS_REVISITED   DecisionStatus = "revisited"
	DECISION_STATUS_SUPERSEDED  DecisionStatus = "superseded"
)

func (s DecisionStatus) String() string {
	return string(s)
}

func DecisionStatusFromString(s string) (DecisionStatus, error) {
	switch DecisionStatus(strings.ToLower(s)) {
	case DECISION_STATUS_PROPOSED, DECISION_STATUS_DECIDED, DECISION_STATUS_IMPLEMENTED,
		DECISION_STATUS_REVISITED, DECISION_STATUS_SUPERSEDED:
		return DecisionStatus(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown decision status %q", s)
	}
}

// decisionTransitions 状态机允许的迁移
// 只有 decided 可以进入 revisited，且 revisited -> decided 需要调用方显式发起
var decisionTransitions = map[DecisionStatus][]DecisionStatus{
	DECISION_STATUS_PROPOSED:    {DECISION_STATUS_DECIDED, DECISION_STATUS_SUPERSEDED},
	DECISION_STATUS_DECIDED:     {DECISION_STATUS_IMPLEMENTED, DECISION_STATUS_REVISITED, DECISION_STATUS_SUPERSEDED},
	DECISION_STATUS_IMPLEMENTED: {DECISION_STATUS_SUPERSEDED},
	DECISION_STATUS_REVISITED:   {DECISION_STATUS_DECIDED, DECISION_STATUS_SUPERSEDED},
	DECISION_STATUS_SUPERSEDED:  {}, // 终态
}

// CanTransition superseded 为终态，其余按状态机校验
func (s DecisionStatus) CanTransition(to DecisionStatus) bool {
	for _, v := range decisionTransitions[s] {
		if v == to {
			return true
		}
	}
	return false
}

const (
	DECISION_META_SUPERSEDED_BY     = "supersededBy"
	DECISION_META_SUPERSEDED_REASON = "supersededReason"
)

type Decision struct {
	ID             string           `json:"id" db:"id"`
	OrganizationID string           `json:"organization_id" db:"organization_id"`
	Summary        string           `json:"summary" db:"summary"`
	Context        string           `json:"context" db:"context"`
	Reasoning      string           `json:"reasoning" db:"reasoning"`
	Status         DecisionStatus   `json:"status" db:"status"`
	DecisionType   string           `json:"decision_type" db:"decision_type"`
	Confidence     float64          `json:"confidence" db:"confidence"`
	Tags           pq.StringArray   `json:"tags" db:"tags"`
	Embedding      *pgvector.Vector `json:"embedding,omitempty" db:"embedding"`
	SupersededByID *string          `json:"superseded_by_id,omitempty" db:"superseded_by_id"`
	Metadata       json.RawMessage  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      int64            `json:"created_at" db:"created_at"`
	UpdatedAt      int64            `json:"updated_at" db:"updated_at"`
}

// EmbeddingText 用于生成decision embedding的拼接文本
func (d *Decision) EmbeddingText() string {
	return strings.TrimSpace(strings.Join([]string{d.Summary, d.Context, d.Reasoning}, "\n"))
}

func (d *Decision) HasEmbedding() bool {
	return d.Embedding != nil && len(d.Embedding.Slice()) > 0
}

type ParticipantRole string

const (
	PARTICIPANT_ROLE_PROPOSER    ParticipantRole = "proposer"
	PARTICIPANT_ROLE_APPROVER    ParticipantRole = "approver"
	PARTICIPANT_ROLE_PARTICIPANT ParticipantRole = "participant"
	PARTICIPANT_ROLE_OBJECTOR    ParticipantRole = "objector"
)

type DecisionParticipant struct {
	ID          string          `json:"id" db:"id"`
	DecisionID  string          `json:"decision_id" db:"decision_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	SpeakerName string          `json:"speaker_name" db:"speaker_name"`
	Role        ParticipantRole `json:"role" db:"role"`
	CreatedAt   int64           `json:"created_at" db:"created_at"`
}

type EvidenceType string

const (
	EVIDENCE_TYPE_ORIGIN         EvidenceType = "origin"
	EVIDENCE_TYPE_DISCUSSION     EvidenceType = "discussion"
	EVIDENCE_TYPE_DOCUMENTATION  EvidenceType = "documentation"
	EVIDENCE_TYPE_IMPLEMENTATION EvidenceType = "implementation"
	EVIDENCE_TYPE_REVISION       EvidenceType = "revision"
	EVIDENCE_TYPE_SUPERSEDED     EvidenceType = "superseded"
)

// DecisionEvidence (decision_id, content_item_id, evidence_type) 唯一，可覆盖写
type DecisionEvidence struct {
	ID            string       `json:"id" db:"id"`
	DecisionID    string       `json:"decision_id" db:"decision_id"`
	ContentItemID string       `json:"content_item_id" db:"content_item_id"`
	EvidenceType  EvidenceType `json:"evidence_type" db:"evidence_type"`
	Stage         string       `json:"stage" db:"stage"`
	Confidence    float64      `json:"confidence" db:"confidence"`
	Excerpt       string       `json:"excerpt" db:"excerpt"`
	CreatedAt     int64        `json:"created_at" db:"created_at"`
}

type DecisionLinkType string

const (
	DECISION_LINK_SUPERSEDES DecisionLinkType = "supersedes"
	DECISION_LINK_RELATED    DecisionLinkType = "related"
	DECISION_LINK_OUTCOME    DecisionLinkType = "outcome"
)

// DecisionLink (decision_id, entity_type, entity_id, link_type) 唯一
type DecisionLink struct {
	ID         string           `json:"id" db:"id"`
	DecisionID string           `json:"decision_id" db:"decision_id"`
	EntityType string           `json:"entity_type" db:"entity_type"` // decision / external
	EntityID   string           `json:"entity_id" db:"entity_id"`
	LinkType   DecisionLinkType `json:"link_type" db:"link_type"`
	CreatedAt  int64            `json:"created_at" db:"created_at"`
}

type ListDecisionOptions struct {
	ID             string
	OrganizationID string
	Status         []DecisionStatus
	EmbeddedOnly   bool
}

func (opts ListDecisionOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	}
	if opts.OrganizationID != "" {
		*query = query.Where(sq.Eq{"organization_id": opts.OrganizationID})
	}
	if len(opts.Status) > 0 {
		*query = query.Where(sq.Eq{"status": opts.Status})
	}
	if opts.EmbeddedOnly {
		*query = query.Where("embedding IS NOT NULL")
	}
}

// DecisionQueryResult decision 向量检索结果行
type DecisionQueryResult struct {
	ID  string  `json:"id" db:"id"`
	Cos float32 `json:"cos" db:"cos"`
}

// UpdateDecisionArgs 可编辑字段
type UpdateDecisionArgs struct {
	Summary      string
	Context      string
	Reasoning    string
	DecisionType string
	Confidence   float64
	Tags         []string
}
