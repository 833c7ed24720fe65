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
		provider.stores.DecisionEvidenceStore = NewDecisionEvidenceStore(provider)
	})
}

type DecisionEvidenceStore struct {
	CommonFields
}

func NewDecisionEvidenceStore(provider SqlProviderAchieve) *DecisionEvidenceStore {
	repo := &DecisionEvidenceStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_DECISION_EVIDENCE)
	repo.SetAllColumns("id", "decision_id", "content_item_id", "evidence_type", "stage",
		"confidence", "excerpt", "created_at")
	return repo
}

// Upsert 同一条目重复标注时覆盖旧证据
func (s *DecisionEvidenceStore) Upsert(ctx context.Context, data types.DecisionEvidence) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "decision_id", "content_item_id", "evidence_type", "stage", "confidence", "excerpt", "created_at").
		Values(data.ID, data.DecisionID, data.ContentItemID, data.EvidenceType, data.Stage, data.Confidence, data.Excerpt, data.CreatedAt).
		Suffix(`ON CONFLICT (decision_id, content_item_id, evidence_type) DO UPDATE SET
			stage = EXCLUDED.stage,
			confidence = EXCLUDED.confidence,
			excerpt = EXCLUDED.excerpt`)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *DecisionEvidenceStore) ListByDecision(ctx context.Context, decisionID string) ([]types.DecisionEvidence, error) {
	return s.ListByDecisions(ctx, []string{decisionID})
}

func (s *DecisionEvidenceStore) ListByDecisions(ctx context.Context, decisionIDs []string) ([]types.DecisionEvidence, error) {
	if len(decisionIDs) == 0 {
		return nil, nil
	}

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"decision_id": decisionIDs}).OrderBy("created_at ASC", "id ASC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.DecisionEvidence
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
