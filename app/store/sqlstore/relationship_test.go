package sqlstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/loreweave/loreweave/pkg/types"
	"github.com/loreweave/loreweave/pkg/utils"
)

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("LOREWEAVE_POSTGRESQL_DSN")
}

func (m PGConfig) FormatDSN() string {
	return m.DSN
}

func TestCreateIfAbsent(t *testing.T) {
	cfg := PGConfig{}
	cfg.FromENV()
	if cfg.DSN == "" {
		t.Skip("LOREWEAVE_POSTGRESQL_DSN not set")
	}
	provider := MustSetup(cfg)()
	if err := provider.Install(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	data := types.ContentRelationship{
		ID:             utils.GenUniqIDStr(),
		OrganizationID: "test",
		SourceItemID:   utils.GenUniqIDStr(),
		TargetItemID:   utils.GenUniqIDStr(),
		Relation:       types.RELATION_TYPE_RELATES_TO,
		Confidence:     0.8,
		CreatedAt:      time.Now().Unix(),
	}

	created, err := provider.stores.ContentRelationshipStore.CreateIfAbsent(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected first insert to create the edge")
	}

	data.ID = utils.GenUniqIDStr()
	created, err = provider.stores.ContentRelationshipStore.CreateIfAbsent(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected duplicate edge to be skipped")
	}
}
