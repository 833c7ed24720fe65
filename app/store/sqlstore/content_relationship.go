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
		provider.stores.ContentRelationshipStore = NewContentRelationshipStore(provider)
	})
}

type ContentRelationshipStore struct {
	CommonFields
}

func NewContentRelationshipStore(provider SqlProviderAchieve) *ContentRelationshipStore {
	repo := &ContentRelationshipStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONTENT_RELATIONSHIP)
	repo.SetAllColumns("id", "organization_id", "source_item_id", "target_item_id", "relation",
		"confidence", "reason", "metadata", "created_at")
	return repo
}

// CreateIfAbsent 幂等写入边，依赖 (source,target,relation) 唯一约束
// 并发写入同一条边时由约束裁决，调用方无需加锁
func (s *ContentRelationshipStore) CreateIfAbsent(ctx context.Context, data types.ContentRelationship) (bool, error) {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if len(data.Metadata) == 0 {
		data.Metadata = []byte("{}")
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "organization_id", "source_item_id", "target_item_id", "relation", "confidence", "reason", "metadata", "created_at").
		Values(data.ID, data.OrganizationID, data.SourceItemID, data.TargetItemID, data.Relation, data.Confidence, data.Reason, data.Metadata, data.CreatedAt).
		Suffix("ON CONFLICT (source_item_id, target_item_id, relation) DO NOTHING")

	queryString, args, err := query.ToSql()
	if err != nil {
		return false, ErrorSqlBuild(err)
	}

	res, err := s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *ContentRelationshipStore) ListBySource(ctx context.Context, sourceItemID string) ([]types.ContentRelationship, error) {
	return s.List(ctx, types.ListRelationshipOptions{SourceItemID: sourceItemID}, types.NO_PAGINATION, types.NO_PAGINATION)
}

func (s *ContentRelationshipStore) List(ctx context.Context, opts types.ListRelationshipOptions, page, pageSize uint64) ([]types.ContentRelationship, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ContentRelationship
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ContentRelationshipStore) Total(ctx context.Context, opts types.ListRelationshipOptions) (uint64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res uint64
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	return res, nil
}

func (s *ContentRelationshipStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
