package v1

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/loreweave/loreweave/app/core"
	"github.com/loreweave/loreweave/pkg/ai"
	"github.com/loreweave/loreweave/pkg/errors"
	"github.com/loreweave/loreweave/pkg/i18n"
	"github.com/loreweave/loreweave/pkg/similarity"
	"github.com/loreweave/loreweave/pkg/types"
	"github.com/loreweave/loreweave/pkg/utils"
)

const (
	CLUSTER_DEFAULT_MIN_SIZE  = 3
	CLUSTER_DEFAULT_MAX       = 20
	CLUSTER_DEFAULT_THRESHOLD = 0.7
	CLUSTER_SCOPE_LIMIT       = 500
	CLUSTER_NAME_TITLE_TOP    = 5

	// FindBestCluster 的接受下限
	CLUSTER_ASSIGN_MIN_SIMILARITY = 0.5
)

type AutoClusterOptions struct {
	SourceID            string
	MinClusterSize      int
	MaxClusters         int
	SimilarityThreshold float64
	// DisableAI 跳过LLM命名，聚类保留默认的 "Topic {n}"
	DisableAI bool
}

func (o *AutoClusterOptions) fill() {
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = CLUSTER_DEFAULT_MIN_SIZE
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = CLUSTER_DEFAULT_MAX
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = CLUSTER_DEFAULT_THRESHOLD
	}
}

type AutoClusterResult struct {
	Clusters         []types.TopicCluster `json:"clusters"`
	UnclusteredItems []string             `json:"unclustered_items"`
}

type ClusterLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewClusterLogic(ctx context.Context, core *core.Core) *ClusterLogic {
	return &ClusterLogic{
		ctx:  ctx,
		core: core,
	}
}

// AutoCluster 对组织内已向量化条目做贪心单趟聚类
// 该算法依赖fetch顺序，结果是近似而非全局最优，没有二次调整
func (l *ClusterLogic) AutoCluster(organizationID string, opts AutoClusterOptions) (*AutoClusterResult, error) {
	opts.fill()

	timer := l.core.Metrics().ClusterPassTimer()
	defer timer.ObserveDuration()

	items, err := l.core.Store().ContentItemStore().List(l.ctx, types.ListContentItemOptions{
		OrganizationID: organizationID,
		SourceID:       opts.SourceID,
		EmbeddedOnly:   true,
	}, 1, CLUSTER_SCOPE_LIMIT)
	if err != nil {
		return nil, errors.New("ClusterLogic.AutoCluster.ContentItemStore.List", i18n.ERROR_INTERNAL, err)
	}

	vectors := lo.Map(items, func(item *types.ContentItem, _ int) []float32 {
		return item.Vector32()
	})

	groups, unclustered := greedyGroup(vectors, opts.SimilarityThreshold, opts.MinClusterSize, opts.MaxClusters)

	result := &AutoClusterResult{
		UnclusteredItems: lo.Map(unclustered, func(idx int, _ int) string {
			return items[idx].ID
		}),
	}

	for n, group := range groups {
		members := lo.Map(group.Members, func(idx int, _ int) *types.ContentItem {
			return items[idx]
		})

		centroid := similarity.Centroid(lo.Map(members, func(item *types.ContentItem, _ int) []float32 {
			return item.Vector32()
		}))
		tags := commonTags(members)

		name := fmt.Sprintf("Topic %d", n+1)
		description := ""
		if !opts.DisableAI {
			if named := l.suggestClusterName(members, tags); named.Name != "" {
				name = named.Name
				description = named.Description
			}
		}

		vec := pgvector.NewVector(centroid)
		cluster := types.TopicCluster{
			ID:             utils.GenUniqIDStr(),
			OrganizationID: organizationID,
			Name:           name,
			Description:    description,
			Tags:           tags,
			Centroid:       &vec,
			MemberCount:    len(members),
			CreatedAt:      time.Now().Unix(),
			UpdatedAt:      time.Now().Unix(),
		}

		memberships := make([]types.ClusterMembership, 0, len(members))
		for i, item := range members {
			memberships = append(memberships, types.ClusterMembership{
				ID:             utils.GenUniqIDStr(),
				ClusterID:      cluster.ID,
				ContentItemID:  item.ID,
				RelevanceScore: group.Scores[i],
				CreatedAt:      time.Now().Unix(),
			})
		}

		// 聚类与成员关系一次事务写入
		err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
			if err := l.core.Store().TopicClusterStore().Create(ctx, cluster); err != nil {
				return errors.New("ClusterLogic.AutoCluster.TopicClusterStore.Create", i18n.ERROR_INTERNAL, err)
			}
			if err := l.core.Store().ClusterMembershipStore().BatchCreate(ctx, memberships); err != nil {
				return errors.New("ClusterLogic.AutoCluster.ClusterMembershipStore.BatchCreate", i18n.ERROR_INTERNAL, err)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Trace("ClusterLogic.AutoCluster", err)
		}

		if err = l.UpdateExpertiseScores(cluster.ID); err != nil {
			// 专长评分可以通过定时任务补算，不影响聚类结果
			slog.Error("Failed to update expertise scores after clustering",
				slog.String("cluster_id", cluster.ID),
				slog.String("error", err.Error()))
		}

		result.Clusters = append(result.Clusters, cluster)
	}

	return result, nil
}

type clusterGroup struct {
	Members []int     // 条目下标，首位是种子
	Scores  []float64 // 入簇时刻与种子的相似度，种子本身为1
}

// greedyGroup 贪心单趟分组：按下标顺序取未分配种子，聚拢所有达阈值的未分配项
// 组数达到maxGroups后剩余项全部落入unclustered
func greedyGroup(vectors [][]float32, threshold float64, minSize, maxGroups int) (groups []clusterGroup, unclustered []int) {
	assigned := make([]bool, len(vectors))

	for seed := range vectors {
		if assigned[seed] {
			continue
		}
		if len(groups) >= maxGroups {
			break
		}

		group := clusterGroup{
			Members: []int{seed},
			Scores:  []float64{1},
		}
		for other := range vectors {
			if other == seed || assigned[other] {
				continue
			}
			cos := similarity.Cosine(vectors[seed], vectors[other])
			if cos >= threshold {
				group.Members = append(group.Members, other)
				group.Scores = append(group.Scores, cos)
			}
		}

		if len(group.Members) < minSize {
			continue
		}

		for _, idx := range group.Members {
			assigned[idx] = true
		}
		groups = append(groups, group)
	}

	for idx := range vectors {
		if !assigned[idx] {
			unclustered = append(unclustered, idx)
		}
	}
	return
}

// commonTags 出现在至少半数成员中的标签
func commonTags(members []*types.ContentItem) []string {
	if len(members) == 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, item := range members {
		for _, tag := range lo.Uniq([]string(item.Tags)) {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	half := (len(members) + 1) / 2
	var result []string
	for _, tag := range order {
		if counts[tag] >= half {
			result = append(result, tag)
		}
	}
	return result
}

// suggestClusterName LLM命名失败时返回零值，调用方保留默认命名
func (l *ClusterLogic) suggestClusterName(members []*types.ContentItem, tags []string) ai.ClusterNameResult {
	titles := lo.FilterMap(members, func(item *types.ContentItem, _ int) (string, bool) {
		return item.Title, item.Title != ""
	})
	if len(titles) > CLUSTER_NAME_TITLE_TOP {
		titles = titles[:CLUSTER_NAME_TITLE_TOP]
	}
	if len(titles) == 0 {
		return ai.ClusterNameResult{}
	}

	driver := l.core.Srv().AI()
	prompt := ai.BuildPrompt(driver.Lang(), ai.PROMPT_CLUSTER_NAME_CN, ai.PROMPT_CLUSTER_NAME_EN, map[string]string{
		ai.PROMPT_VAR_TITLES: "- " + strings.Join(titles, "\n- "),
		ai.PROMPT_VAR_TAGS:   strings.Join(tags, ", "),
	})

	timer := l.core.Metrics().LLMTimer("cluster_name")
	resp, err := driver.Generate(l.ctx, "", prompt)
	timer.ObserveDuration()
	if err != nil {
		l.core.Metrics().LLMErrorInc("cluster_name")
		slog.Error("Failed to generate cluster name", slog.String("error", err.Error()))
		return ai.ClusterNameResult{}
	}

	return ai.ParseClusterName(resp.Received)
}

// nearestCluster 质心最近的聚类，相似度低于0.5视为无归属
func (l *ClusterLogic) nearestCluster(organizationID string, item *types.ContentItem) (*types.ClusterQueryResult, error) {
	nearest, err := l.core.Store().TopicClusterStore().QueryNearest(l.ctx, organizationID, pgvector.NewVector(item.Vector32()), 1)
	if err != nil {
		return nil, errors.New("ClusterLogic.nearestCluster.TopicClusterStore.QueryNearest", i18n.ERROR_INTERNAL, err)
	}
	if len(nearest) == 0 || float64(nearest[0].Cos) < CLUSTER_ASSIGN_MIN_SIMILARITY {
		return nil, nil
	}
	return &nearest[0], nil
}

func (l *ClusterLogic) FindBestCluster(organizationID, itemID string) (*types.TopicCluster, error) {
	item, err := l.core.Store().ContentItemStore().Get(l.ctx, organizationID, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("ClusterLogic.FindBestCluster.ContentItemStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("ClusterLogic.FindBestCluster.ContentItemStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if !item.HasEmbedding() {
		return nil, errors.New("ClusterLogic.FindBestCluster.check", i18n.ERROR_LOGIC_ITEM_EMBEDDING_MISSING, nil).Code(http.StatusBadRequest)
	}

	nearest, err := l.nearestCluster(organizationID, item)
	if err != nil || nearest == nil {
		return nil, err
	}

	cluster, err := l.core.Store().TopicClusterStore().Get(l.ctx, organizationID, nearest.ID)
	if err != nil {
		return nil, errors.New("ClusterLogic.FindBestCluster.TopicClusterStore.Get", i18n.ERROR_INTERNAL, err)
	}
	return cluster, nil
}

// AssignItem 将单个条目并入质心最近的聚类，成员与聚合数据一次事务更新
// 没有达标聚类时返回 nil，由调用方决定是否触发整体重聚类
func (l *ClusterLogic) AssignItem(organizationID, itemID string) (*types.TopicCluster, error) {
	item, err := l.core.Store().ContentItemStore().Get(l.ctx, organizationID, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("ClusterLogic.AssignItem.ContentItemStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("ClusterLogic.AssignItem.ContentItemStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if !item.HasEmbedding() {
		return nil, errors.New("ClusterLogic.AssignItem.check", i18n.ERROR_LOGIC_ITEM_EMBEDDING_MISSING, nil).Code(http.StatusBadRequest)
	}

	nearest, err := l.nearestCluster(organizationID, item)
	if err != nil || nearest == nil {
		return nil, err
	}

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		// 重复并入由唯一约束吞掉，聚合刷新仍会执行
		err := l.core.Store().ClusterMembershipStore().BatchCreate(ctx, []types.ClusterMembership{{
			ID:             utils.GenUniqIDStr(),
			ClusterID:      nearest.ID,
			ContentItemID:  item.ID,
			RelevanceScore: float64(nearest.Cos),
			CreatedAt:      time.Now().Unix(),
		}})
		if err != nil {
			return errors.New("ClusterLogic.AssignItem.ClusterMembershipStore.BatchCreate", i18n.ERROR_INTERNAL, err)
		}
		return l.refreshClusterAggregates(ctx, nearest.ID)
	})
	if err != nil {
		return nil, errors.Trace("ClusterLogic.AssignItem", err)
	}

	if err = l.UpdateExpertiseScores(nearest.ID); err != nil {
		slog.Error("Failed to update expertise scores after assignment",
			slog.String("cluster_id", nearest.ID),
			slog.String("error", err.Error()))
	}

	cluster, err := l.core.Store().TopicClusterStore().Get(l.ctx, organizationID, nearest.ID)
	if err != nil {
		return nil, errors.New("ClusterLogic.AssignItem.TopicClusterStore.Get", i18n.ERROR_INTERNAL, err)
	}
	return cluster, nil
}

// refreshClusterAggregates 成员变动后重算质心与成员数
func (l *ClusterLogic) refreshClusterAggregates(ctx context.Context, clusterID string) error {
	memberships, err := l.core.Store().ClusterMembershipStore().ListByCluster(ctx, clusterID)
	if err != nil {
		return errors.New("ClusterLogic.refreshClusterAggregates.ClusterMembershipStore.ListByCluster", i18n.ERROR_INTERNAL, err)
	}
	if len(memberships) == 0 {
		return nil
	}

	items, err := l.core.Store().ContentItemStore().List(ctx, types.ListContentItemOptions{
		IDs: lo.Map(memberships, func(m types.ClusterMembership, _ int) string {
			return m.ContentItemID
		}),
		EmbeddedOnly: true,
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		return errors.New("ClusterLogic.refreshClusterAggregates.ContentItemStore.List", i18n.ERROR_INTERNAL, err)
	}

	centroid := similarity.Centroid(lo.Map(items, func(item *types.ContentItem, _ int) []float32 {
		return item.Vector32()
	}))
	if centroid == nil {
		return nil
	}

	err = l.core.Store().TopicClusterStore().UpdateAggregates(ctx, clusterID, pgvector.NewVector(centroid), len(memberships))
	if err != nil {
		return errors.New("ClusterLogic.refreshClusterAggregates.TopicClusterStore.UpdateAggregates", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// UpdateCluster 编辑聚类展示信息，质心与成员数由系统维护不可直接修改
func (l *ClusterLogic) UpdateCluster(organizationID, id, name, description string, tags []string) error {
	if name == "" {
		return errors.New("ClusterLogic.UpdateCluster.check", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	if _, err := l.core.Store().TopicClusterStore().Get(l.ctx, organizationID, id); err != nil {
		if err == sql.ErrNoRows {
			return errors.New("ClusterLogic.UpdateCluster.TopicClusterStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return errors.New("ClusterLogic.UpdateCluster.TopicClusterStore.Get", i18n.ERROR_INTERNAL, err)
	}

	if err := l.core.Store().TopicClusterStore().Update(l.ctx, organizationID, id, name, description, tags); err != nil {
		return errors.New("ClusterLogic.UpdateCluster.TopicClusterStore.Update", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// ListExperts 聚类内按专长评分降序的作者列表
func (l *ClusterLogic) ListExperts(organizationID, clusterID string) ([]types.TopicExpertise, error) {
	if _, err := l.core.Store().TopicClusterStore().Get(l.ctx, organizationID, clusterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("ClusterLogic.ListExperts.TopicClusterStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("ClusterLogic.ListExperts.TopicClusterStore.Get", i18n.ERROR_INTERNAL, err)
	}

	res, err := l.core.Store().TopicExpertiseStore().ListByCluster(l.ctx, clusterID)
	if err != nil {
		return nil, errors.New("ClusterLogic.ListExperts.TopicExpertiseStore.ListByCluster", i18n.ERROR_INTERNAL, err)
	}
	return res, nil
}

// UpdateExpertiseScores 按作者聚合整体重算专长评分
// score = 0.5*(count/maxCount) + 0.5*(relSum/maxRelSum)
func (l *ClusterLogic) UpdateExpertiseScores(clusterID string) error {
	memberships, err := l.core.Store().ClusterMembershipStore().ListByCluster(l.ctx, clusterID)
	if err != nil {
		return errors.New("ClusterLogic.UpdateExpertiseScores.ClusterMembershipStore.ListByCluster", i18n.ERROR_INTERNAL, err)
	}
	if len(memberships) == 0 {
		return nil
	}

	items, err := l.core.Store().ContentItemStore().List(l.ctx, types.ListContentItemOptions{
		IDs: lo.Map(memberships, func(m types.ClusterMembership, _ int) string {
			return m.ContentItemID
		}),
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		return errors.New("ClusterLogic.UpdateExpertiseScores.ContentItemStore.List", i18n.ERROR_INTERNAL, err)
	}

	itemsByID := lo.KeyBy(items, func(item *types.ContentItem) string {
		return item.ID
	})

	type aggregate struct {
		count  int
		relSum float64
	}
	var (
		byAuthor = make(map[string]*aggregate)
		authors  []string
	)
	for _, m := range memberships {
		item, ok := itemsByID[m.ContentItemID]
		if !ok {
			continue
		}
		key := item.AuthorKey()
		agg, ok := byAuthor[key]
		if !ok {
			agg = &aggregate{}
			byAuthor[key] = agg
			authors = append(authors, key)
		}
		agg.count++
		agg.relSum += m.RelevanceScore
	}
	if len(authors) == 0 {
		return nil
	}

	var maxCount, maxRelSum float64
	for _, agg := range byAuthor {
		if float64(agg.count) > maxCount {
			maxCount = float64(agg.count)
		}
		if agg.relSum > maxRelSum {
			maxRelSum = agg.relSum
		}
	}

	sort.Strings(authors)
	for _, author := range authors {
		agg := byAuthor[author]
		var score float64
		if maxCount > 0 {
			score += 0.5 * float64(agg.count) / maxCount
		}
		if maxRelSum > 0 {
			score += 0.5 * agg.relSum / maxRelSum
		}

		err = l.core.Store().TopicExpertiseStore().Upsert(l.ctx, types.TopicExpertise{
			ID:                utils.GenUniqIDStr(),
			ClusterID:         clusterID,
			AuthorKey:         author,
			ContributionCount: agg.count,
			SummedRelevance:   agg.relSum,
			ExpertiseScore:    score,
			UpdatedAt:         time.Now().Unix(),
		})
		if err != nil {
			return errors.New("ClusterLogic.UpdateExpertiseScores.TopicExpertiseStore.Upsert", i18n.ERROR_INTERNAL, err)
		}
	}
	return nil
}
