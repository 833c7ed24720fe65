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
		provider.stores.ClusterMembershipStore = NewClusterMembershipStore(provider)
	})
}

type ClusterMembershipStore struct {
	CommonFields
}

func NewClusterMembershipStore(provider SqlProviderAchieve) *ClusterMembershipStore {
	repo := &ClusterMembershipStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CLUSTER_MEMBERSHIP)
	repo.SetAllColumns("id", "cluster_id", "content_item_id", "relevance_score", "created_at")
	return repo
}

// BatchCreate 批量写入成员关系，冲突行跳过
func (s *ClusterMembershipStore) BatchCreate(ctx context.Context, datas []types.ClusterMembership) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns("id", "cluster_id", "content_item_id", "relevance_score", "created_at")
	now := time.Now().Unix()
	for _, data := range datas {
		if data.CreatedAt == 0 {
			data.CreatedAt = now
		}
		query = query.Values(data.ID, data.ClusterID, data.ContentItemID, data.RelevanceScore, data.CreatedAt)
	}
	query = query.Suffix("ON CONFLICT (cluster_id, content_item_id) DO NOTHING")

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ClusterMembershipStore) ListByCluster(ctx context.Context, clusterID string) ([]types.ClusterMembership, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"cluster_id": clusterID}).OrderBy("created_at ASC", "id ASC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ClusterMembership
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ClusterMembershipStore) ListByItemIDs(ctx context.Context, itemIDs []string) ([]types.ClusterMembership, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"content_item_id": itemIDs})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ClusterMembership
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ClusterMembershipStore) DeleteByCluster(ctx context.Context, clusterID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"cluster_id": clusterID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
