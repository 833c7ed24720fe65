package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.TopicExpertiseStore = NewTopicExpertiseStore(provider)
	})
}

type TopicExpertiseStore struct {
	CommonFields
}

func NewTopicExpertiseStore(provider SqlProviderAchieve) *TopicExpertiseStore {
	repo := &TopicExpertiseStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_TOPIC_EXPERTISE)
	repo.SetAllColumns("id", "cluster_id", "author_key", "contribution_count",
		"summed_relevance", "expertise_score", "updated_at")
	return repo
}

// Upsert 专长评分整体重算，按唯一键覆盖旧值
func (s *TopicExpertiseStore) Upsert(ctx context.Context, data types.TopicExpertise) error {
	if data.UpdatedAt == 0 {
		data.UpdatedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "cluster_id", "author_key", "contribution_count", "summed_relevance", "expertise_score", "updated_at").
		Values(data.ID, data.ClusterID, data.AuthorKey, data.ContributionCount, data.SummedRelevance, data.ExpertiseScore, data.UpdatedAt).
		Suffix(`ON CONFLICT (cluster_id, author_key) DO UPDATE SET
			contribution_count = EXCLUDED.contribution_count,
			summed_relevance = EXCLUDED.summed_relevance,
			expertise_score = EXCLUDED.expertise_score,
			updated_at = EXCLUDED.updated_at`)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *TopicExpertiseStore) ListByCluster(ctx context.Context, clusterID string) ([]types.TopicExpertise, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"cluster_id": clusterID}).OrderBy("expertise_score DESC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.TopicExpertise
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *TopicExpertiseStore) DeleteByCluster(ctx context.Context, clusterID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"cluster_id": clusterID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
