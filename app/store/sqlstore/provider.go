package sqlstore

import (
	"embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/loreweave/loreweave/app/store"
	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/sqlstore"
	"github.com/loreweave/loreweave/pkg/types"
)

//go:embed *.sql
var CreateTableFiles embed.FS

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

var provider = &Provider{
	stores: &Stores{},
}

func GetProvider() *Provider {
	return provider
}

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.ContentItemStore
	store.ContentRelationshipStore
	store.TopicClusterStore
	store.ClusterMembershipStore
	store.TopicExpertiseStore
	store.DecisionStore
	store.DecisionParticipantStore
	store.DecisionEvidenceStore
	store.DecisionLinkStore
}

type RegisterKey struct{}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) func() *Provider {
	provider.SqlProvider = sqlstore.MustSetupProvider(m, s...)

	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(provider)
	}

	return func() *Provider {
		return provider
	}
}

// Install 初始化数据库扩展与所有数据表
func (p *Provider) Install() error {
	if err := p.enableExtensions(); err != nil {
		return err
	}

	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := CreateTableFiles.ReadDir(".")
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		if executed, err := p.isFileExecuted(file.Name()); err != nil {
			return err
		} else if executed {
			continue
		}

		raw, err := CreateTableFiles.ReadFile(file.Name())
		if err != nil {
			return err
		}

		if _, err = p.SqlProvider.GetMaster().Exec(string(raw)); err != nil {
			return fmt.Errorf("failed to execute migration %s, %w", file.Name(), err)
		}

		if err = p.markFileExecuted(file.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) enableExtensions() error {
	extensions := []string{
		"CREATE EXTENSION IF NOT EXISTS vector;", // pgvector 扩展，用于向量检索
	}

	for _, ext := range extensions {
		if _, err := p.SqlProvider.GetMaster().Exec(ext); err != nil {
			return fmt.Errorf("failed to enable extension: %w\nSQL: %s", err, ext)
		}
	}
	return nil
}

func (p *Provider) ensureMigrationTable() error {
	createTableSQL := `
CREATE TABLE IF NOT EXISTS ` + types.TABLE_PREFIX + `schema_migrations (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`
	_, err := p.SqlProvider.GetMaster().Exec(createTableSQL)
	return err
}

func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.SqlProvider.GetReplica().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_PREFIX+"schema_migrations WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Provider) markFileExecuted(filename string) error {
	_, err := p.SqlProvider.GetMaster().Exec(
		"INSERT INTO "+types.TABLE_PREFIX+"schema_migrations (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		filename, time.Now().Unix())
	return err
}

func (p *Provider) ContentItemStore() store.ContentItemStore {
	return p.stores.ContentItemStore
}

func (p *Provider) ContentRelationshipStore() store.ContentRelationshipStore {
	return p.stores.ContentRelationshipStore
}

func (p *Provider) TopicClusterStore() store.TopicClusterStore {
	return p.stores.TopicClusterStore
}

func (p *Provider) ClusterMembershipStore() store.ClusterMembershipStore {
	return p.stores.ClusterMembershipStore
}

func (p *Provider) TopicExpertiseStore() store.TopicExpertiseStore {
	return p.stores.TopicExpertiseStore
}

func (p *Provider) DecisionStore() store.DecisionStore {
	return p.stores.DecisionStore
}

func (p *Provider) DecisionParticipantStore() store.DecisionParticipantStore {
	return p.stores.DecisionParticipantStore
}

func (p *Provider) DecisionEvidenceStore() store.DecisionEvidenceStore {
	return p.stores.DecisionEvidenceStore
}

func (p *Provider) DecisionLinkStore() store.DecisionLinkStore {
	return p.stores.DecisionLinkStore
}
