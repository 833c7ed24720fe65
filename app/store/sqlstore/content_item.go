package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ContentItemStore = NewContentItemStore(provider)
	})
}

type ContentItemStore struct {
	CommonFields
}

func NewContentItemStore(provider SqlProviderAchieve) *ContentItemStore {
	repo := &ContentItemStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONTENT_ITEM)
	repo.SetAllColumns("id", "organization_id", "source_id", "kind", "title", "content", "tags",
		"author_id", "author_external", "author_name", "embedding", "url", "external_id",
		"created_at_source", "created_at")
	return repo
}

// Get 根据ID获取内容条目
func (s *ContentItemStore) Get(ctx context.Context, organizationID, id string) (*types.ContentItem, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ContentItem
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// List 按范围获取内容条目，fetch顺序即后续聚类的遍历顺序
func (s *ContentItemStore) List(ctx context.Context, opts types.ListContentItemOptions, page, pageSize uint64) ([]*types.ContentItem, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at_source ASC", "id ASC")
	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.ContentItem
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ContentItemStore) Total(ctx context.Context, opts types.ListContentItemOptions) (uint64, error) {
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
