package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "lw_"

const (
	TABLE_CONTENT_ITEM         = TableName("content_items")
	TABLE_CONTENT_RELATIONSHIP = TableName("content_relationships")
	TABLE_TOPIC_CLUSTER        = TableName("topic_clusters")
	TABLE_CLUSTER_MEMBERSHIP   = TableName("cluster_memberships")
	TABLE_TOPIC_EXPERTISE      = TableName("topic_expertise")
	TABLE_DECISION             = TableName("decisions")
	TABLE_DECISION_PARTICIPANT = TableName("decision_participants")
	TABLE_DECISION_EVIDENCE    = TableName("decision_evidence")
	TABLE_DECISION_LINK        = TableName("decision_links")
)
