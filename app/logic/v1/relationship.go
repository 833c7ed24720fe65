package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/loreweave/loreweave/app/core"
	"github.com/loreweave/loreweave/app/store"
	"github.com/loreweave/loreweave/pkg/errors"
	"github.com/loreweave/loreweave/pkg/i18n"
	"github.com/loreweave/loreweave/pkg/similarity"
	"github.com/loreweave/loreweave/pkg/types"
	"github.com/loreweave/loreweave/pkg/utils"
)

const (
	DETECT_DEFAULT_MIN_CONFIDENCE = 0.5
	DETECT_SCOPE_LIMIT            = 500
	DETECT_FETCH_CONCURRENCY      = 10

	CONFIDENCE_EXPLICIT_URL         = 0.95
	CONFIDENCE_EXPLICIT_EXTERNAL_ID = 0.90
	CONFIDENCE_EXPLICIT_TITLE       = 0.80
	CONFIDENCE_SAME_AUTHOR          = 0.7

	// 标题短于该长度时不参与子串匹配，避免误命中
	explicitTitleMinLen = 5
)

type DetectOptions struct {
	MinConfidence float64
	Strategies    []types.DetectStrategy
	MaxResults    int
}

func (o *DetectOptions) fill() {
	if o.MinConfidence <= 0 {
		o.MinConfidence = DETECT_DEFAULT_MIN_CONFIDENCE
	}
	if len(o.Strategies) == 0 {
		o.Strategies = []types.DetectStrategy{
			types.DETECT_STRATEGY_EXPLICIT,
			types.DETECT_STRATEGY_SEMANTIC,
			types.DETECT_STRATEGY_TEMPORAL,
			types.DETECT_STRATEGY_ENTITY,
		}
	}
}

type DetectError struct {
	SourceItemID string `json:"source_item_id"`
	TargetItemID string `json:"target_item_id"`
	Relation     string `json:"relation"`
	Error        string `json:"error"`
}

type DetectResult struct {
	Candidates []types.RelationshipCandidate `json:"candidates"`
	Created    int                           `json:"created"`
	Skipped    int                           `json:"skipped"`
	Errors     []DetectError                 `json:"errors"`
}

type RelationshipLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewRelationshipLogic(ctx context.Context, core *core.Core) *RelationshipLogic {
	return &RelationshipLogic{
		ctx:  ctx,
		core: core,
	}
}

// DetectForItem 以单个条目为源端，在同组织范围内检测关系并落库
func (l *RelationshipLogic) DetectForItem(organizationID, itemID string, opts DetectOptions) (*DetectResult, error) {
	opts.fill()

	item, err := l.core.Store().ContentItemStore().Get(l.ctx, organizationID, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("RelationshipLogic.DetectForItem.ContentItemStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("RelationshipLogic.DetectForItem.ContentItemStore.Get", i18n.ERROR_INTERNAL, err)
	}

	targets, err := l.core.Store().ContentItemStore().List(l.ctx, types.ListContentItemOptions{
		OrganizationID: organizationID,
	}, 1, DETECT_SCOPE_LIMIT)
	if err != nil {
		return nil, errors.New("RelationshipLogic.DetectForItem.ContentItemStore.List", i18n.ERROR_INTERNAL, err)
	}

	return l.detect(organizationID, []*types.ContentItem{item}, targets, opts)
}

// DetectBatch 组织(+来源)范围或显式ID列表的批量检测
// 显式ID列表通过有界并发解析，避免打满连接池
func (l *RelationshipLogic) DetectBatch(organizationID, sourceID string, itemIDs []string, opts DetectOptions) (*DetectResult, error) {
	opts.fill()

	var (
		sources []*types.ContentItem
		err     error
	)
	if len(itemIDs) > 0 {
		sources, err = l.fetchItemsByID(organizationID, itemIDs)
	} else {
		sources, err = l.core.Store().ContentItemStore().List(l.ctx, types.ListContentItemOptions{
			OrganizationID: organizationID,
			SourceID:       sourceID,
		}, 1, DETECT_SCOPE_LIMIT)
	}
	if err != nil {
		return nil, errors.Trace("RelationshipLogic.DetectBatch", err)
	}

	// sourceID/ID列表只限定源端，目标集始终为全组织范围：
	// temporal、entity 等跨来源策略需要完整的目标集才能命中
	targets, err := l.core.Store().ContentItemStore().List(l.ctx, types.ListContentItemOptions{
		OrganizationID: organizationID,
	}, 1, DETECT_SCOPE_LIMIT)
	if err != nil {
		return nil, errors.New("RelationshipLogic.DetectBatch.ContentItemStore.List", i18n.ERROR_INTERNAL, err)
	}

	return l.detect(organizationID, sources, targets, opts)
}

func (l *RelationshipLogic) fetchItemsByID(organizationID string, itemIDs []string) ([]*types.ContentItem, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, DETECT_FETCH_CONCURRENCY)
		items   = make([]*types.ContentItem, 0, len(itemIDs))
		fetchEr error
	)

	for _, id := range lo.Uniq(itemIDs) {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer func() {
				<-sem
				wg.Done()
			}()

			item, err := l.core.Store().ContentItemStore().Get(l.ctx, organizationID, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if err != sql.ErrNoRows {
					fetchEr = err
				}
				// 不存在的ID静默跳过
				return
			}
			items = append(items, item)
		}(id)
	}
	wg.Wait()

	if fetchEr != nil {
		return nil, errors.New("RelationshipLogic.fetchItemsByID.ContentItemStore.Get", i18n.ERROR_INTERNAL, fetchEr)
	}

	// 并发抓取后恢复确定性顺序
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAtSource != items[j].CreatedAtSource {
			return items[i].CreatedAtSource < items[j].CreatedAtSource
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (l *RelationshipLogic) detect(organizationID string, sources, targets []*types.ContentItem, opts DetectOptions) (*DetectResult, error) {
	var candidates []types.RelationshipCandidate
	for _, src := range sources {
		others := lo.Filter(targets, func(t *types.ContentItem, _ int) bool {
			return t.ID != src.ID
		})
		for _, strategy := range opts.Strategies {
			timer := l.core.Metrics().DetectTimer(string(strategy))
			switch strategy {
			case types.DETECT_STRATEGY_EXPLICIT:
				candidates = append(candidates, detectExplicit(src, others)...)
			case types.DETECT_STRATEGY_SEMANTIC:
				candidates = append(candidates, detectSemantic(src, others, opts.MinConfidence)...)
			case types.DETECT_STRATEGY_TEMPORAL:
				candidates = append(candidates, detectTemporal(src, others)...)
			case types.DETECT_STRATEGY_ENTITY:
				candidates = append(candidates, detectEntity(src, others)...)
			}
			timer.ObserveDuration()
		}
	}

	candidates = dedupeCandidates(candidates)
	candidates = lo.Filter(candidates, func(c types.RelationshipCandidate, _ int) bool {
		return c.Confidence >= opts.MinConfidence
	})
	if opts.MaxResults > 0 && len(candidates) > opts.MaxResults {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Confidence > candidates[j].Confidence
		})
		candidates = candidates[:opts.MaxResults]
	}

	result := &DetectResult{Candidates: candidates}
	result.Created, result.Skipped, result.Errors = persistCandidates(l.ctx, l.core.Store().ContentRelationshipStore(), organizationID, candidates)
	return result, nil
}

// persistCandidates 逐条幂等落库，单条失败只记录不终止
func persistCandidates(ctx context.Context, relStore store.ContentRelationshipStore, organizationID string, candidates []types.RelationshipCandidate) (created, skipped int, errs []DetectError) {
	for _, c := range candidates {
		var metadata json.RawMessage
		if len(c.Metadata) > 0 {
			metadata, _ = json.Marshal(c.Metadata)
		}

		ok, err := relStore.CreateIfAbsent(ctx, types.ContentRelationship{
			ID:             utils.GenUniqIDStr(),
			OrganizationID: organizationID,
			SourceItemID:   c.SourceItemID,
			TargetItemID:   c.TargetItemID,
			Relation:       c.Relation,
			Confidence:     c.Confidence,
			Reason:         c.Reason,
			Metadata:       metadata,
			CreatedAt:      time.Now().Unix(),
		})
		if err != nil {
			slog.Error("Failed to persist relationship candidate",
				slog.String("source", c.SourceItemID),
				slog.String("target", c.TargetItemID),
				slog.String("relation", c.Relation.String()),
				slog.String("error", err.Error()))
			errs = append(errs, DetectError{
				SourceItemID: c.SourceItemID,
				TargetItemID: c.TargetItemID,
				Relation:     c.Relation.String(),
				Error:        err.Error(),
			})
			continue
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}
	return
}

// dedupeCandidates (source, target, type) 去重，冲突时保留高confidence（max-merge）
// 返回顺序保持首次出现顺序，保证批处理结果可复现
func dedupeCandidates(candidates []types.RelationshipCandidate) []types.RelationshipCandidate {
	var (
		order  []string
		merged = make(map[string]types.RelationshipCandidate, len(candidates))
	)
	for _, c := range candidates {
		key := c.Key()
		exist, ok := merged[key]
		if !ok {
			merged[key] = c
			order = append(order, key)
			continue
		}
		if c.Confidence > exist.Confidence {
			merged[key] = c
		}
	}

	result := make([]types.RelationshipCandidate, 0, len(order))
	for _, key := range order {
		result = append(result, merged[key])
	}
	return result
}

// detectExplicit 源文本中的URL引用、#外部ID回指、标题子串
func detectExplicit(src *types.ContentItem, targets []*types.ContentItem) []types.RelationshipCandidate {
	var result []types.RelationshipCandidate
	content := src.Content

	for _, t := range targets {
		if t.URL != "" && strings.Contains(content, t.URL) {
			result = append(result, types.RelationshipCandidate{
				SourceItemID: src.ID,
				TargetItemID: t.ID,
				Relation:     types.RELATION_TYPE_REFERENCES,
				Confidence:   CONFIDENCE_EXPLICIT_URL,
				Reason:       fmt.Sprintf("content contains url %s", t.URL),
				Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_EXPLICIT)},
			})
		}
		if t.ExternalID != "" && strings.Contains(content, "#"+t.ExternalID) {
			result = append(result, types.RelationshipCandidate{
				SourceItemID: src.ID,
				TargetItemID: t.ID,
				Relation:     types.RELATION_TYPE_REFERENCES,
				Confidence:   CONFIDENCE_EXPLICIT_EXTERNAL_ID,
				Reason:       fmt.Sprintf("content references #%s", t.ExternalID),
				Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_EXPLICIT)},
			})
		}
		if len(t.Title) > explicitTitleMinLen && strings.Contains(content, t.Title) {
			result = append(result, types.RelationshipCandidate{
				SourceItemID: src.ID,
				TargetItemID: t.ID,
				Relation:     types.RELATION_TYPE_MENTIONS,
				Confidence:   CONFIDENCE_EXPLICIT_TITLE,
				Reason:       fmt.Sprintf("content mentions title %q", t.Title),
				Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_EXPLICIT)},
			})
		}
	}
	return result
}

// detectSemantic 双端都有embedding时按余弦相似度生成候选
func detectSemantic(src *types.ContentItem, targets []*types.ContentItem, minConfidence float64) []types.RelationshipCandidate {
	if !src.HasEmbedding() {
		return nil
	}

	var result []types.RelationshipCandidate
	for _, t := range targets {
		if !t.HasEmbedding() {
			continue
		}
		cos := similarity.Cosine(src.Vector32(), t.Vector32())
		if cos < minConfidence {
			continue
		}
		result = append(result, types.RelationshipCandidate{
			SourceItemID: src.ID,
			TargetItemID: t.ID,
			Relation:     types.RELATION_TYPE_SIMILAR_TO,
			Confidence:   cos,
			Reason:       fmt.Sprintf("semantic similarity %.2f", cos),
			Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_SEMANTIC)},
		})
	}
	return result
}

// temporalConfidence 跨来源时间接近度分档，超过24小时不产生候选
func temporalConfidence(deltaSeconds int64) float64 {
	if deltaSeconds < 0 {
		deltaSeconds = -deltaSeconds
	}
	switch {
	case deltaSeconds <= 3600:
		return 0.8
	case deltaSeconds <= 4*3600:
		return 0.7
	case deltaSeconds <= 24*3600:
		return 0.5
	default:
		return 0
	}
}

// detectTemporal 仅对不同来源的条目对生效
func detectTemporal(src *types.ContentItem, targets []*types.ContentItem) []types.RelationshipCandidate {
	var result []types.RelationshipCandidate
	for _, t := range targets {
		if t.SourceID == src.SourceID {
			continue
		}
		confidence := temporalConfidence(src.CreatedAtSource - t.CreatedAtSource)
		if confidence == 0 {
			continue
		}
		result = append(result, types.RelationshipCandidate{
			SourceItemID: src.ID,
			TargetItemID: t.ID,
			Relation:     types.RELATION_TYPE_RELATES_TO,
			Confidence:   confidence,
			Reason:       "created close in time across sources",
			Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_TEMPORAL)},
		})
	}
	return result
}

// detectEntity 跨来源的共享标签与同作者信号，两者可同时命中
func detectEntity(src *types.ContentItem, targets []*types.ContentItem) []types.RelationshipCandidate {
	var result []types.RelationshipCandidate
	for _, t := range targets {
		if t.SourceID == src.SourceID {
			continue
		}

		shared := lo.Intersect(src.Tags, t.Tags)
		if len(shared) >= 2 {
			confidence := 0.5 + 0.1*float64(len(shared))
			if confidence > 0.9 {
				confidence = 0.9
			}
			result = append(result, types.RelationshipCandidate{
				SourceItemID: src.ID,
				TargetItemID: t.ID,
				Relation:     types.RELATION_TYPE_RELATES_TO,
				Confidence:   confidence,
				Reason:       fmt.Sprintf("shared tags: %s", strings.Join(shared, ", ")),
				Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_ENTITY)},
			})
		}

		if src.AuthorKey() != types.AUTHOR_KEY_UNKNOWN && src.AuthorKey() == t.AuthorKey() {
			result = append(result, types.RelationshipCandidate{
				SourceItemID: src.ID,
				TargetItemID: t.ID,
				Relation:     types.RELATION_TYPE_RELATES_TO,
				Confidence:   CONFIDENCE_SAME_AUTHOR,
				Reason:       fmt.Sprintf("same author %s across sources", src.AuthorKey()),
				Metadata:     map[string]string{"strategy": string(types.DETECT_STRATEGY_ENTITY)},
			})
		}
	}
	return result
}
