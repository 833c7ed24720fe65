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
		provider.stores.DecisionLinkStore = NewDecisionLinkStore(provider)
	})
}

type DecisionLinkStore struct {
	CommonFields
}

func NewDecisionLinkStore(provider SqlProviderAchieve) *DecisionLinkStore {
	repo := &DecisionLinkStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_DECISION_LINK)
	repo.SetAllColumns("id", "decision_id", "entity_type", "entity_id", "link_type", "created_at")
	return repo
}

// CreateIfAbsent 幂等写入关联，依赖唯一约束裁决
func (s *DecisionLinkStore) CreateIfAbsent(ctx context.Context, data types.DecisionLink) (bool, error) {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "decision_id", "entity_type", "entity_id", "link_type", "created_at").
		Values(data.ID, data.DecisionID, data.EntityType, data.EntityID, data.LinkType, data.CreatedAt).
		Suffix("ON CONFLICT (decision_id, entity_type, entity_id, link_type) DO NOTHING")

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

func (s *DecisionLinkStore) ListByDecision(ctx context.Context, decisionID string) ([]types.DecisionLink, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"decision_id": decisionID}).OrderBy("created_at ASC", "id ASC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.DecisionLink
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
