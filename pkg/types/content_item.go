package types

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const AUTHOR_KEY_UNKNOWN = "unknown"

// ContentItem 外部采集的内容条目，对本核心而言只读
// embedding 由采集侧回填，可能为空
type ContentItem struct {
	ID              string           `json:"id" db:"id"`
	OrganizationID  string           `json:"organization_id" db:"organization_id"`
	SourceID        string           `json:"source_id" db:"source_id"`
	Kind            string           `json:"kind" db:"kind"` // chat_message / document / code_artifact / transcript
	Title           string           `json:"title" db:"title"`
	Content         string           `json:"content" db:"content"`
	Tags            pq.StringArray   `json:"tags" db:"tags"`
	AuthorID        string           `json:"author_id" db:"author_id"`
	AuthorExternal  string           `json:"author_external" db:"author_external"`
	AuthorName      string           `json:"author_name" db:"author_name"`
	Embedding       *pgvector.Vector `json:"embedding,omitempty" db:"embedding"`
	URL             string           `json:"url" db:"url"`
	ExternalID      string           `json:"external_id" db:"external_id"`
	CreatedAtSource int64            `json:"created_at_source" db:"created_at_source"`
	CreatedAt       int64            `json:"created_at" db:"created_at"`
}

// AuthorKey 作者归一化标识：用户ID > 外部ID > 名称 > unknown
func (c *ContentItem) AuthorKey() string {
	switch {
	case c.AuthorID != "":
		return c.AuthorID
	case c.AuthorExternal != "":
		return c.AuthorExternal
	case c.AuthorName != "":
		return c.AuthorName
	default:
		return AUTHOR_KEY_UNKNOWN
	}
}

// HasEmbedding embedding 是否已回填
func (c *ContentItem) HasEmbedding() bool {
	return c.Embedding != nil && len(c.Embedding.Slice()) > 0
}

// Vector32 返回原始向量，未回填时为 nil
func (c *ContentItem) Vector32() []float32 {
	if c.Embedding == nil {
		return nil
	}
	return c.Embedding.Slice()
}

type ListContentItemOptions struct {
	ID             string
	IDs            []string
	OrganizationID string
	SourceID       string
	Kind           string
	EmbeddedOnly   bool // 只返回已生成embedding的条目
}

func (opts ListContentItemOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	} else if len(opts.IDs) > 0 {
		*query = query.Where(sq.Eq{"id": opts.IDs})
	}
	if opts.OrganizationID != "" {
		*query = query.Where(sq.Eq{"organization_id": opts.OrganizationID})
	}
	if opts.SourceID != "" {
		*query = query.Where(sq.Eq{"source_id": opts.SourceID})
	}
	if opts.Kind != "" {
		*query = query.Where(sq.Eq{"kind": opts.Kind})
	}
	if opts.EmbeddedOnly {
		*query = query.Where("embedding IS NOT NULL")
	}
}
