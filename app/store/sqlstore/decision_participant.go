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
		provider.stores.DecisionParticipantStore = NewDecisionParticipantStore(provider)
	})
}

type DecisionParticipantStore struct {
	CommonFields
}

func NewDecisionParticipantStore(provider SqlProviderAchieve) *DecisionParticipantStore {
	repo := &DecisionParticipantStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_DECISION_PARTICIPANT)
	repo.SetAllColumns("id", "decision_id", "user_id", "speaker_name", "role", "created_at")
	return repo
}

func (s *DecisionParticipantStore) BatchCreate(ctx context.Context, datas []types.DecisionParticipant) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns("id", "decision_id", "user_id", "speaker_name", "role", "created_at")
	now := time.Now().Unix()
	for _, data := range datas {
		if data.CreatedAt == 0 {
			data.CreatedAt = now
		}
		if data.Role == "" {
			data.Role = types.PARTICIPANT_ROLE_PARTICIPANT
		}
		query = query.Values(data.ID, data.DecisionID, data.UserID, data.SpeakerName, data.Role, data.CreatedAt)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *DecisionParticipantStore) ListByDecision(ctx context.Context, decisionID string) ([]types.DecisionParticipant, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"decision_id": decisionID}).OrderBy("created_at ASC", "id ASC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.DecisionParticipant
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *DecisionParticipantStore) DeleteByDecision(ctx context.Context, decisionID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"decision_id": decisionID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
