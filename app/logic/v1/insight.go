package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/loreweave/loreweave/app/core"
	"github.com/loreweave/loreweave/pkg/ai"
	"github.com/loreweave/loreweave/pkg/errors"
	"github.com/loreweave/loreweave/pkg/i18n"
	"github.com/loreweave/loreweave/pkg/similarity"
	"github.com/loreweave/loreweave/pkg/types"
)

const (
	// 超过该天数仍未推进的决策视为陈旧
	GAP_STALE_DAYS = 180

	CONFLICT_SCAN_LIMIT           = 50
	CONFLICT_DEFAULT_MIN_SIM      = 0.75
	CONFLICT_VERDICT_CACHE_EXPIRE = 24 * time.Hour
)

type GapType string

const (
	GAP_NO_DOCUMENTATION  GapType = "no_documentation"
	GAP_NO_IMPLEMENTATION GapType = "no_implementation"
	GAP_NO_EVIDENCE       GapType = "no_evidence"
	GAP_STALE             GapType = "stale"
)

type GapSeverity string

const (
	GAP_SEVERITY_HIGH   GapSeverity = "high"
	GAP_SEVERITY_MEDIUM GapSeverity = "medium"
	GAP_SEVERITY_LOW    GapSeverity = "low"
)

var gapSeverityRank = map[GapSeverity]int{
	GAP_SEVERITY_HIGH:   0,
	GAP_SEVERITY_MEDIUM: 1,
	GAP_SEVERITY_LOW:    2,
}

type DocumentationGap struct {
	Decision types.Decision `json:"decision"`
	GapType  GapType        `json:"gap_type"`
	Severity GapSeverity    `json:"severity"`
}

type ConflictType string

const (
	CONFLICT_DIRECT_CONTRADICTION ConflictType = "direct_contradiction"
	CONFLICT_SUPERSESSION_UNCLEAR ConflictType = "supersession_unclear"
	CONFLICT_SCOPE_OVERLAP        ConflictType = "scope_overlap"
)

type DecisionConflict struct {
	DecisionAID  string       `json:"decision_a_id"`
	DecisionBID  string       `json:"decision_b_id"`
	ConflictType ConflictType `json:"conflict_type"`
	Confidence   float64      `json:"confidence"`
	Explanation  string       `json:"explanation"`
	Similarity   float64      `json:"similarity"`
}

type DetectConflictsOptions struct {
	Limit         uint64
	MinSimilarity float64
}

type InsightLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewInsightLogic(ctx context.Context, core *core.Core) *InsightLogic {
	return &InsightLogic{
		ctx:  ctx,
		core: core,
	}
}

// FindUndocumentedDecisions 对 decided/implemented 决策做互斥的缺口分类
// 结果按严重程度降序排列
func (l *InsightLogic) FindUndocumentedDecisions(organizationID string) ([]DocumentationGap, error) {
	decisions, err := l.core.Store().DecisionStore().List(l.ctx, types.ListDecisionOptions{
		OrganizationID: organizationID,
		Status:         []types.DecisionStatus{types.DECISION_STATUS_DECIDED, types.DECISION_STATUS_IMPLEMENTED},
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		return nil, errors.New("InsightLogic.FindUndocumentedDecisions.DecisionStore.List", i18n.ERROR_INTERNAL, err)
	}
	if len(decisions) == 0 {
		return nil, nil
	}

	evidence, err := l.core.Store().DecisionEvidenceStore().ListByDecisions(l.ctx, lo.Map(decisions, func(d types.Decision, _ int) string {
		return d.ID
	}))
	if err != nil {
		return nil, errors.New("InsightLogic.FindUndocumentedDecisions.DecisionEvidenceStore.ListByDecisions", i18n.ERROR_INTERNAL, err)
	}
	byDecision := lo.GroupBy(evidence, func(e types.DecisionEvidence) string {
		return e.DecisionID
	})

	var gaps []DocumentationGap
	now := time.Now().Unix()
	for _, decision := range decisions {
		gapType, severity, ok := classifyGap(decision, byDecision[decision.ID], now)
		if !ok {
			continue
		}
		gaps = append(gaps, DocumentationGap{
			Decision: decision,
			GapType:  gapType,
			Severity: severity,
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gapSeverityRank[gaps[i].Severity] < gapSeverityRank[gaps[j].Severity]
	})
	return gaps, nil
}

// classifyGap 互斥优先级链，命中第一条即返回
// no_documentation > no_implementation > no_evidence > stale
func classifyGap(decision types.Decision, evidence []types.DecisionEvidence, now int64) (GapType, GapSeverity, bool) {
	hasType := func(t types.EvidenceType) bool {
		return lo.SomeBy(evidence, func(e types.DecisionEvidence) bool {
			return e.EvidenceType == t
		})
	}

	if decision.Status == types.DECISION_STATUS_DECIDED && !hasType(types.EVIDENCE_TYPE_DOCUMENTATION) {
		return GAP_NO_DOCUMENTATION, GAP_SEVERITY_HIGH, true
	}
	if decision.Status == types.DECISION_STATUS_IMPLEMENTED && !hasType(types.EVIDENCE_TYPE_IMPLEMENTATION) {
		return GAP_NO_IMPLEMENTATION, GAP_SEVERITY_MEDIUM, true
	}
	if len(evidence) == 0 {
		return GAP_NO_EVIDENCE, GAP_SEVERITY_MEDIUM, true
	}
	if decision.Status == types.DECISION_STATUS_DECIDED && now-decision.CreatedAt > GAP_STALE_DAYS*24*3600 {
		return GAP_STALE, GAP_SEVERITY_LOW, true
	}
	return "", "", false
}

// DetectConflicts 相似度预筛 + LLM仲裁的两段式冲突检测
// LLM调用是O(n²)级别的开销，入口受分布式信号量与限流保护，裁决结果走redis缓存
func (l *InsightLogic) DetectConflicts(organizationID string, opts DetectConflictsOptions) ([]DecisionConflict, error) {
	if opts.Limit == 0 || opts.Limit > CONFLICT_SCAN_LIMIT {
		opts.Limit = CONFLICT_SCAN_LIMIT
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = CONFLICT_DEFAULT_MIN_SIM
	}

	if l.core.Redis() != nil {
		sem := l.core.Semaphores().ConflictScan()
		if !sem.TryAcquire() {
			return nil, errors.New("InsightLogic.DetectConflicts.semaphore", i18n.ERROR_LOGIC_ANALYZE_BUSY, nil).Code(http.StatusTooManyRequests)
		}
		defer sem.Release()
	}

	decisions, err := l.core.Store().DecisionStore().List(l.ctx, types.ListDecisionOptions{
		OrganizationID: organizationID,
		Status: []types.DecisionStatus{
			types.DECISION_STATUS_DECIDED,
			types.DECISION_STATUS_IMPLEMENTED,
			types.DECISION_STATUS_PROPOSED,
		},
		EmbeddedOnly: true,
	}, 1, opts.Limit)
	if err != nil {
		return nil, errors.New("InsightLogic.DetectConflicts.DecisionStore.List", i18n.ERROR_INTERNAL, err)
	}

	var conflicts []DecisionConflict
	for i := 0; i < len(decisions); i++ {
		for j := i + 1; j < len(decisions); j++ {
			a, b := decisions[i], decisions[j]
			cos := similarity.Cosine(a.Embedding.Slice(), b.Embedding.Slice())
			if cos < opts.MinSimilarity {
				continue
			}

			verdict := l.arbitrate(a, b)
			if verdict.Verdict == ai.ARBITRATION_NO_CONFLICT {
				continue
			}

			conflicts = append(conflicts, DecisionConflict{
				DecisionAID:  a.ID,
				DecisionBID:  b.ID,
				ConflictType: mapConflictType(verdict.Verdict),
				Confidence:   verdict.Confidence,
				Explanation:  verdict.Explanation,
				Similarity:   cos,
			})
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Confidence > conflicts[j].Confidence
	})
	return conflicts, nil
}

func mapConflictType(v ai.ArbitrationVerdict) ConflictType {
	switch v {
	case ai.ARBITRATION_SUPERSEDE:
		return CONFLICT_SUPERSESSION_UNCLEAR
	case ai.ARBITRATION_OVERLAP:
		return CONFLICT_SCOPE_OVERLAP
	default:
		return CONFLICT_DIRECT_CONTRADICTION
	}
}

// conflictCacheKey 按有序id对生成，与参数顺序无关
func conflictCacheKey(aID, bID string) string {
	if bID < aID {
		aID, bID = bID, aID
	}
	return "conflict:verdict:" + aID + ":" + bID
}

// arbitrate 单对决策的LLM仲裁，异常一律退化为NO_CONFLICT
func (l *InsightLogic) arbitrate(a, b types.Decision) ai.ArbitrationResult {
	cacheKey := conflictCacheKey(a.ID, b.ID)
	if cached, err := l.core.Cache().Get(l.ctx, cacheKey); err == nil && cached != "" {
		var res ai.ArbitrationResult
		if err = json.Unmarshal([]byte(cached), &res); err == nil {
			// 命中续期，活跃冲突对的裁决保持热缓存
			_ = l.core.Cache().Expire(l.ctx, cacheKey, CONFLICT_VERDICT_CACHE_EXPIRE)
			return res
		}
	}

	driver := l.core.Srv().AI()
	prompt := ai.BuildPrompt(driver.Lang(), ai.PROMPT_CONFLICT_ARBITRATION_CN, ai.PROMPT_CONFLICT_ARBITRATION_EN, map[string]string{
		ai.PROMPT_VAR_DECISION_A: a.EmbeddingText(),
		ai.PROMPT_VAR_DECISION_B: b.EmbeddingText(),
	})

	timer := l.core.Metrics().LLMTimer("conflict_arbitration")
	resp, err := driver.Generate(l.ctx, "", prompt)
	timer.ObserveDuration()
	if err != nil {
		l.core.Metrics().LLMErrorInc("conflict_arbitration")
		slog.Error("Failed to arbitrate decision conflict",
			slog.String("decision_a", a.ID),
			slog.String("decision_b", b.ID),
			slog.String("error", err.Error()))
		return ai.ArbitrationResult{Verdict: ai.ARBITRATION_NO_CONFLICT}
	}

	result := ai.ParseArbitration(resp.Received)

	if raw, err := json.Marshal(result); err == nil {
		if err = l.core.Cache().SetEx(l.ctx, cacheKey, string(raw), CONFLICT_VERDICT_CACHE_EXPIRE); err != nil {
			slog.Warn("Failed to cache arbitration verdict", slog.String("error", err.Error()))
		}
	}
	return result
}
