package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.DecisionStore = NewDecisionStore(provider)
	})
}

type DecisionStore struct {
	CommonFields
}

func NewDecisionStore(provider SqlProviderAchieve) *DecisionStore {
	repo := &DecisionStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_DECISION)
	repo.SetAllColumns("id", "organization_id", "summary", "context", "reasoning", "status",
		"decision_type", "confidence", "tags", "embedding", "superseded_by_id", "metadata",
		"created_at", "updated_at")
	return repo
}

func (s *DecisionStore) Create(ctx context.Context, data types.Decision) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	if data.Status == "" {
		data.Status = types.DECISION_STATUS_DECIDED
	}
	if data.Tags == nil {
		data.Tags = pq.StringArray{}
	}
	if len(data.Metadata) == 0 {
		data.Metadata = json.RawMessage("{}")
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "organization_id", "summary", "context", "reasoning", "status", "decision_type",
			"confidence", "tags", "embedding", "superseded_by_id", "metadata", "created_at", "updated_at").
		Values(data.ID, data.OrganizationID, data.Summary, data.Context, data.Reasoning, data.Status, data.DecisionType,
			data.Confidence, data.Tags, data.Embedding, data.SupersededByID, []byte(data.Metadata), data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *DecisionStore) Get(ctx context.Context, organizationID, id string) (*types.Decision, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Decision
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *DecisionStore) Update(ctx context.Context, organizationID, id string, args types.UpdateDecisionArgs) error {
	query := sq.Update(s.GetTable()).
		Set("summary", args.Summary).
		Set("context", args.Context).
		Set("reasoning", args.Reasoning).
		Set("decision_type", args.DecisionType).
		Set("confidence", args.Confidence).
		Set("tags", pq.StringArray(args.Tags)).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, sqlArgs, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, sqlArgs...)
	return err
}

func (s *DecisionStore) UpdateStatus(ctx context.Context, organizationID, id string, status types.DecisionStatus) error {
	query := sq.Update(s.GetTable()).
		Set("status", status).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// MarkSuperseded 终态写入，metadata 整体覆盖为带取代信息的版本
func (s *DecisionStore) MarkSuperseded(ctx context.Context, organizationID, id, supersededByID string, metadata json.RawMessage) error {
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	query := sq.Update(s.GetTable()).
		Set("status", types.DECISION_STATUS_SUPERSEDED).
		Set("superseded_by_id", supersededByID).
		Set("metadata", []byte(metadata)).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *DecisionStore) UpdateEmbedding(ctx context.Context, organizationID, id string, vector pgvector.Vector) error {
	query := sq.Update(s.GetTable()).
		Set("embedding", vector).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"organization_id": organizationID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *DecisionStore) List(ctx context.Context, opts types.ListDecisionOptions, page, pageSize uint64) ([]types.Decision, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC", "id DESC")
	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Decision
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *DecisionStore) Total(ctx context.Context, opts types.ListDecisionOptions) (uint64, error) {
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

// QuerySimilar 组织内已向量化决策的余弦检索
func (s *DecisionStore) QuerySimilar(ctx context.Context, organizationID string, vector pgvector.Vector, excludeID string, limit uint64) ([]types.DecisionQueryResult, error) {
	query := sq.Select("id").Column("1 - (embedding <=> ?) as cos", vector).From(s.GetTable()).
		Where(sq.Eq{"organization_id": organizationID}).
		Where("embedding IS NOT NULL").
		OrderBy("cos DESC").
		Limit(limit)
	if excludeID != "" {
		query = query.Where(sq.NotEq{"id": excludeID})
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.DecisionQueryResult
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
