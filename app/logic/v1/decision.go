package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/loreweave/loreweave/app/core"
	"github.com/loreweave/loreweave/pkg/ai"
	"github.com/loreweave/loreweave/pkg/errors"
	"github.com/loreweave/loreweave/pkg/i18n"
	"github.com/loreweave/loreweave/pkg/types"
	"github.com/loreweave/loreweave/pkg/utils"
)

const (
	// ExtractDecisionsFromContent 的内容长度下限
	EXTRACT_MIN_CONTENT_LEN = 50

	RELATED_DECISIONS_DEFAULT_LIMIT = 10
)

type DecisionLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewDecisionLogic(ctx context.Context, core *core.Core) *DecisionLogic {
	return &DecisionLogic{
		ctx:  ctx,
		core: core,
	}
}

type ParticipantArgs struct {
	UserID      string                `json:"user_id"`
	SpeakerName string                `json:"speaker_name"`
	Role        types.ParticipantRole `json:"role"`
}

type EvidenceArgs struct {
	ContentItemID string             `json:"content_item_id"`
	EvidenceType  types.EvidenceType `json:"evidence_type"`
	Stage         string             `json:"stage"`
	Confidence    float64            `json:"confidence"`
	Excerpt       string             `json:"excerpt"`
}

type CreateDecisionArgs struct {
	Summary      string               `json:"summary"`
	Context      string               `json:"context"`
	Reasoning    string               `json:"reasoning"`
	Status       types.DecisionStatus `json:"status"`
	DecisionType string               `json:"decision_type"`
	Confidence   float64              `json:"confidence"`
	Tags         []string             `json:"tags"`
	Participants []ParticipantArgs    `json:"participants"`
	Evidence     []EvidenceArgs       `json:"evidence"`
}

// CreateDecision 决策主体、参与人、证据在同一事务内写入
// embedding 尽力而为，失败只记录日志不阻断创建
func (l *DecisionLogic) CreateDecision(organizationID string, args CreateDecisionArgs) (*types.Decision, error) {
	if args.Summary == "" {
		return nil, errors.New("DecisionLogic.CreateDecision.check", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	status := args.Status
	if status == "" {
		status = types.DECISION_STATUS_DECIDED
	} else if _, err := types.DecisionStatusFromString(status.String()); err != nil {
		return nil, errors.New("DecisionLogic.CreateDecision.status", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}

	decision := types.Decision{
		ID:             utils.GenUniqIDStr(),
		OrganizationID: organizationID,
		Summary:        args.Summary,
		Context:        args.Context,
		Reasoning:      args.Reasoning,
		Status:         status,
		DecisionType:   args.DecisionType,
		Confidence:     args.Confidence,
		Tags:           args.Tags,
		CreatedAt:      time.Now().Unix(),
		UpdatedAt:      time.Now().Unix(),
	}

	if text := decision.EmbeddingText(); text != "" {
		timer := l.core.Metrics().EmbeddingTimer()
		embedding, err := l.core.Srv().AI().Embedding(l.ctx, []string{text})
		timer.ObserveDuration()
		if err != nil || len(embedding.Vectors) == 0 {
			l.core.Metrics().LLMErrorInc("decision_embedding")
			slog.Error("Failed to embed decision, keep embedding empty",
				slog.String("decision_id", decision.ID),
				slog.Any("error", err))
		} else {
			vec := pgvector.NewVector(embedding.Vectors[0])
			decision.Embedding = &vec
		}
	}

	participants := lo.Map(args.Participants, func(p ParticipantArgs, _ int) types.DecisionParticipant {
		return types.DecisionParticipant{
			ID:          utils.GenUniqIDStr(),
			DecisionID:  decision.ID,
			UserID:      p.UserID,
			SpeakerName: p.SpeakerName,
			Role:        p.Role,
			CreatedAt:   time.Now().Unix(),
		}
	})

	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().DecisionStore().Create(ctx, decision); err != nil {
			return errors.New("DecisionLogic.CreateDecision.DecisionStore.Create", i18n.ERROR_INTERNAL, err)
		}
		if err := l.core.Store().DecisionParticipantStore().BatchCreate(ctx, participants); err != nil {
			return errors.New("DecisionLogic.CreateDecision.DecisionParticipantStore.BatchCreate", i18n.ERROR_INTERNAL, err)
		}
		for _, ev := range args.Evidence {
			err := l.core.Store().DecisionEvidenceStore().Upsert(ctx, types.DecisionEvidence{
				ID:            utils.GenUniqIDStr(),
				DecisionID:    decision.ID,
				ContentItemID: ev.ContentItemID,
				EvidenceType:  ev.EvidenceType,
				Stage:         ev.Stage,
				Confidence:    ev.Confidence,
				Excerpt:       ev.Excerpt,
				CreatedAt:     time.Now().Unix(),
			})
			if err != nil {
				return errors.New("DecisionLogic.CreateDecision.DecisionEvidenceStore.Upsert", i18n.ERROR_INTERNAL, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace("DecisionLogic.CreateDecision", err)
	}

	return &decision, nil
}

func (l *DecisionLogic) GetDecision(organizationID, id string) (*types.Decision, error) {
	decision, err := l.core.Store().DecisionStore().Get(l.ctx, organizationID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("DecisionLogic.GetDecision.DecisionStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("DecisionLogic.GetDecision.DecisionStore.Get", i18n.ERROR_INTERNAL, err)
	}
	return decision, nil
}

// UpdateDecision 编辑决策的可变字段并重算embedding
// superseded 决策已冻结不可编辑；embedding 重算失败只记录不回滚文本更新
func (l *DecisionLogic) UpdateDecision(organizationID, id string, args types.UpdateDecisionArgs) error {
	if args.Summary == "" {
		return errors.New("DecisionLogic.UpdateDecision.check", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	decision, err := l.GetDecision(organizationID, id)
	if err != nil {
		return errors.Trace("DecisionLogic.UpdateDecision", err)
	}
	if decision.Status == types.DECISION_STATUS_SUPERSEDED {
		return errors.New("DecisionLogic.UpdateDecision.frozen", i18n.ERROR_LOGIC_DECISION_SUPERSEDED_FROZEN, nil).Code(http.StatusBadRequest)
	}

	if err = l.core.Store().DecisionStore().Update(l.ctx, organizationID, id, args); err != nil {
		return errors.New("DecisionLogic.UpdateDecision.DecisionStore.Update", i18n.ERROR_INTERNAL, err)
	}

	updated := types.Decision{Summary: args.Summary, Context: args.Context, Reasoning: args.Reasoning}
	if text := updated.EmbeddingText(); text != "" {
		timer := l.core.Metrics().EmbeddingTimer()
		embedding, err := l.core.Srv().AI().Embedding(l.ctx, []string{text})
		timer.ObserveDuration()
		if err != nil || len(embedding.Vectors) == 0 {
			l.core.Metrics().LLMErrorInc("decision_embedding")
			slog.Error("Failed to re-embed decision after update, keep stale embedding",
				slog.String("decision_id", id),
				slog.Any("error", err))
			return nil
		}
		if err = l.core.Store().DecisionStore().UpdateEmbedding(l.ctx, organizationID, id, pgvector.NewVector(embedding.Vectors[0])); err != nil {
			slog.Error("Failed to store decision embedding",
				slog.String("decision_id", id),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// UpdateStatus 按状态机校验迁移，superseded 为冻结终态
// revisited→decided 也走本方法，必须由调用方显式发起
func (l *DecisionLogic) UpdateStatus(organizationID, id string, to types.DecisionStatus) error {
	if _, err := types.DecisionStatusFromString(to.String()); err != nil {
		return errors.New("DecisionLogic.UpdateStatus.check", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}

	decision, err := l.GetDecision(organizationID, id)
	if err != nil {
		return errors.Trace("DecisionLogic.UpdateStatus", err)
	}

	if decision.Status == types.DECISION_STATUS_SUPERSEDED {
		return errors.New("DecisionLogic.UpdateStatus.frozen", i18n.ERROR_LOGIC_DECISION_SUPERSEDED_FROZEN, nil).Code(http.StatusBadRequest)
	}
	if !decision.Status.CanTransition(to) {
		return errors.New("DecisionLogic.UpdateStatus.transition", i18n.ERROR_LOGIC_DECISION_STATUS_TRANSITION, nil).
			Code(http.StatusBadRequest).
			WithData(map[string]interface{}{"from": decision.Status, "to": to})
	}

	if err = l.core.Store().DecisionStore().UpdateStatus(l.ctx, organizationID, id, to); err != nil {
		return errors.New("DecisionLogic.UpdateStatus.DecisionStore.UpdateStatus", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// Supersede 旧决策进入终态并建立 new→old 的取代链
// 新决策自身状态不受影响；取代必须带上说明原因
func (l *DecisionLogic) Supersede(organizationID, oldID, newID, reason string) error {
	if oldID == newID {
		return errors.New("DecisionLogic.Supersede.check", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	if reason == "" {
		return errors.New("DecisionLogic.Supersede.reason", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	oldDecision, err := l.GetDecision(organizationID, oldID)
	if err != nil {
		return errors.Trace("DecisionLogic.Supersede.old", err)
	}
	if _, err = l.GetDecision(organizationID, newID); err != nil {
		return errors.Trace("DecisionLogic.Supersede.new", err)
	}

	metadata := make(map[string]interface{})
	if len(oldDecision.Metadata) > 0 {
		// 旧metadata解析失败时直接覆盖为取代信息
		_ = json.Unmarshal(oldDecision.Metadata, &metadata)
	}
	metadata[types.DECISION_META_SUPERSEDED_BY] = newID
	metadata[types.DECISION_META_SUPERSEDED_REASON] = reason
	raw, err := json.Marshal(metadata)
	if err != nil {
		return errors.New("DecisionLogic.Supersede.metadata", i18n.ERROR_INTERNAL, err)
	}

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().DecisionStore().MarkSuperseded(ctx, organizationID, oldID, newID, raw); err != nil {
			return errors.New("DecisionLogic.Supersede.DecisionStore.MarkSuperseded", i18n.ERROR_INTERNAL, err)
		}
		// 幂等：重复取代不会产生第二条link
		_, err := l.core.Store().DecisionLinkStore().CreateIfAbsent(ctx, types.DecisionLink{
			ID:         utils.GenUniqIDStr(),
			DecisionID: newID,
			EntityType: "decision",
			EntityID:   oldID,
			LinkType:   types.DECISION_LINK_SUPERSEDES,
			CreatedAt:  time.Now().Unix(),
		})
		if err != nil {
			return errors.New("DecisionLogic.Supersede.DecisionLinkStore.CreateIfAbsent", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
	if err != nil {
		return errors.Trace("DecisionLogic.Supersede", err)
	}
	return nil
}

// AddEvidence 幂等upsert，决策不存在时返回404
func (l *DecisionLogic) AddEvidence(organizationID, decisionID string, args EvidenceArgs) error {
	if _, err := l.GetDecision(organizationID, decisionID); err != nil {
		return errors.Trace("DecisionLogic.AddEvidence", err)
	}

	err := l.core.Store().DecisionEvidenceStore().Upsert(l.ctx, types.DecisionEvidence{
		ID:            utils.GenUniqIDStr(),
		DecisionID:    decisionID,
		ContentItemID: args.ContentItemID,
		EvidenceType:  args.EvidenceType,
		Stage:         args.Stage,
		Confidence:    args.Confidence,
		Excerpt:       args.Excerpt,
		CreatedAt:     time.Now().Unix(),
	})
	if err != nil {
		return errors.New("DecisionLogic.AddEvidence.DecisionEvidenceStore.Upsert", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

type RelatedDecision struct {
	Decision   types.Decision `json:"decision"`
	Similarity float64        `json:"similarity"`
}

// FindRelatedDecisions 组织内已向量化决策的相似检索
func (l *DecisionLogic) FindRelatedDecisions(organizationID, id string, minSimilarity float64, limit uint64) ([]RelatedDecision, error) {
	decision, err := l.GetDecision(organizationID, id)
	if err != nil {
		return nil, errors.Trace("DecisionLogic.FindRelatedDecisions", err)
	}
	if !decision.HasEmbedding() {
		return nil, nil
	}
	if limit == 0 {
		limit = RELATED_DECISIONS_DEFAULT_LIMIT
	}

	rows, err := l.core.Store().DecisionStore().QuerySimilar(l.ctx, organizationID, *decision.Embedding, id, limit)
	if err != nil {
		return nil, errors.New("DecisionLogic.FindRelatedDecisions.DecisionStore.QuerySimilar", i18n.ERROR_INTERNAL, err)
	}

	var result []RelatedDecision
	for _, row := range rows {
		if float64(row.Cos) < minSimilarity {
			continue
		}
		related, err := l.core.Store().DecisionStore().Get(l.ctx, organizationID, row.ID)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, errors.New("DecisionLogic.FindRelatedDecisions.DecisionStore.Get", i18n.ERROR_INTERNAL, err)
		}
		result = append(result, RelatedDecision{
			Decision:   *related,
			Similarity: float64(row.Cos),
		})
	}
	return result, nil
}

// ExtractDecisionsFromContent 对内容做LLM决策抽取，候选不落库
// 内容过短或超出token上限时直接返回空，LLM/解析失败同样退化为空
func (l *DecisionLogic) ExtractDecisionsFromContent(organizationID, itemID string) ([]ai.ExtractedDecision, error) {
	item, err := l.core.Store().ContentItemStore().Get(l.ctx, organizationID, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("DecisionLogic.ExtractDecisionsFromContent.ContentItemStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("DecisionLogic.ExtractDecisionsFromContent.ContentItemStore.Get", i18n.ERROR_INTERNAL, err)
	}

	if len(item.Content) < EXTRACT_MIN_CONTENT_LEN {
		return nil, nil
	}

	driver := l.core.Srv().AI()
	if driver.TextIsOverLimit(item.Content) {
		slog.Warn("Content over token limit, skip decision extraction",
			slog.String("item_id", item.ID))
		return nil, nil
	}

	prompt := ai.BuildPrompt(driver.Lang(), ai.PROMPT_EXTRACT_DECISIONS_CN, ai.PROMPT_EXTRACT_DECISIONS_EN, map[string]string{
		ai.PROMPT_VAR_CONTENT: item.Content,
	})

	timer := l.core.Metrics().LLMTimer("extract_decisions")
	resp, err := driver.Generate(l.ctx, "", prompt)
	timer.ObserveDuration()
	if err != nil {
		l.core.Metrics().LLMErrorInc("extract_decisions")
		slog.Error("Failed to extract decisions from content",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()))
		return nil, nil
	}

	return ai.ParseExtractedDecisions(resp.Received), nil
}
