package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL        = "error.internal"
	ERROR_NOT_FOUND       = "error.notfound"
	ERROR_INVALIDARGUMENT = "error.invalidargument"
	ERROR_EXIST           = "error.exist"
	ERROR_FORBIDDEN       = "error.forbidden"

	ERROR_LOGIC_DECISION_STATUS_TRANSITION = "error.logic.decision.status.transition"
	ERROR_LOGIC_DECISION_SUPERSEDED_FROZEN = "error.logic.decision.superseded.frozen"
	ERROR_LOGIC_ITEM_EMBEDDING_MISSING     = "error.logic.item.embedding.missing"
	ERROR_LOGIC_ANALYZE_BUSY               = "error.logic.analyze.busy"
	ERROR_AI_EMBEDDING_UNAVAILABLE         = "error.ai.embedding.unavailable"
	ERROR_AI_GENERATE_UNAVAILABLE          = "error.ai.generate.unavailable"
)
