package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.TopicClusterStore = NewTopicClusterStore(provider)
	})
}

type TopicClusterStore struct {
	CommonFields
}

func NewTopicClusterStore(provider SqlProviderAchieve) *TopicClusterStore {
	repo := &TopicClusterStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_TOPIC_CLUSTER)
	repo.SetAllColumns("id", "organization_id", "name", "description", "tags", "centroid",
		"member_count", "created_at", "updated_at")
	return repo
}

func (s *TopicClusterStore) Create(ctx context.Context, data types.TopicCluster) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	if data.Tags == nil {
		data.Tags = pq.StringArray{}
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "organization_id", "name", "description", "tags", "centroid", "member_count", "created_at", "updated_at").
		Values(data.ID, data.OrganizationID, data.Name, data.Description, data.Tags, data.Centroid, data.MemberCount, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *TopicClusterStore) Get(ctx context.Context, organizationID, id string) (*types.TopicCluster, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.TopicCluster
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *TopicClusterStore) Update(ctx context.Context, organizationID, id, name, description string, tags []string) error {
	query := sq.Update(s.GetTable()).
		Set("name", name).
		Set("description", description).
		Set("tags", pq.StringArray(tags)).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// UpdateAggregates 成员写入后刷新质心与成员数
func (s *TopicClusterStore) UpdateAggregates(ctx context.Context, id string, centroid pgvector.Vector, memberCount int) error {
	query := sq.Update(s.GetTable()).
		Set("centroid", centroid).
		Set("member_count", memberCount).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *TopicClusterStore) List(ctx context.Context, opts types.ListTopicClusterOptions, page, pageSize uint64) ([]types.TopicCluster, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at ASC", "id ASC")
	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.TopicCluster
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// QueryNearest 余弦相似度降序，仅命中已有质心的聚类
func (s *TopicClusterStore) QueryNearest(ctx context.Context, organizationID string, vector pgvector.Vector, limit uint64) ([]types.ClusterQueryResult, error) {
	query := sq.Select("id").Column("1 - (centroid <=> ?) as cos", vector).From(s.GetTable()).
		Where(sq.Eq{"organization_id": organizationID}).
		Where("centroid IS NOT NULL").
		OrderBy("cos DESC").
		Limit(limit)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ClusterQueryResult
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
