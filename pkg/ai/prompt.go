package ai

import "strings"

const (
	PROMPT_VAR_TITLES     = "${titles}"
	PROMPT_VAR_TAGS       = "${tags}"
	PROMPT_VAR_CONTENT    = "${content}"
	PROMPT_VAR_DECISION_A = "${decision_a}"
	PROMPT_VAR_DECISION_B = "${decision_b}"
)

// PROMPT_CLUSTER_NAME_EN 基于成员标题与共同标签为聚类起名
const PROMPT_CLUSTER_NAME_EN = `You are labeling a topic cluster built from related workplace content.
Representative titles:
${titles}
Common tags: ${tags}

Reply with a JSON object only, no markdown fence:
{"name": "<short topic name, max 6 words>", "description": "<one sentence describing the topic>"}`

const PROMPT_CLUSTER_NAME_CN = `你正在为一组相关的工作内容主题聚类命名。
代表性标题：
${titles}
共同标签：${tags}

只输出一个JSON对象，不要使用markdown代码块：
{"name": "<不超过6个词的主题名>", "description": "<一句话描述该主题>"}`

// PROMPT_EXTRACT_DECISIONS_EN 从原始内容中抽取候选决策
const PROMPT_EXTRACT_DECISIONS_EN = `Analyze the following content and extract any concrete decisions that were made or proposed.
Content:
"""
${content}
"""

Reply with a JSON array only (empty array if none). Each element:
{"summary": "<what was decided, one sentence>",
 "context": "<why the question came up>",
 "reasoning": "<why this option won>",
 "decision_type": "<technical|process|product|other>",
 "status": "<proposed|decided>",
 "confidence": <0-100 integer>,
 "participants": [{"name": "<speaker>", "role": "<proposer|approver|participant|objector>"}],
 "tags": ["<keyword>"]}`

const PROMPT_EXTRACT_DECISIONS_CN = `分析以下内容，抽取其中已经做出或被提议的具体决策。
内容：
"""
${content}
"""

只输出JSON数组（没有则输出空数组）。数组元素结构：
{"summary": "<一句话描述决定了什么>",
 "context": "<为什么会出现这个议题>",
 "reasoning": "<为什么选了这个方案>",
 "decision_type": "<technical|process|product|other>",
 "status": "<proposed|decided>",
 "confidence": <0-100整数>,
 "participants": [{"name": "<发言人>", "role": "<proposer|approver|participant|objector>"}],
 "tags": ["<关键词>"]}`

// PROMPT_CONFLICT_ARBITRATION_EN 语义冲突仲裁，输出宽松文本模板
const PROMPT_CONFLICT_ARBITRATION_EN = `Two decisions from the same organization are semantically similar. Judge their relation.

Decision A: ${decision_a}
Decision B: ${decision_b}

Answer in exactly this template:
RESULT: <CONFLICT|SUPERSEDE|OVERLAP|NO_CONFLICT>
CONFIDENCE: <0-100>
EXPLANATION: <one or two sentences>`

const PROMPT_CONFLICT_ARBITRATION_CN = `同一组织内的两条决策在语义上高度相似，请判断它们的关系。

决策A：${decision_a}
决策B：${decision_b}

严格按照以下模板回答：
RESULT: <CONFLICT|SUPERSEDE|OVERLAP|NO_CONFLICT>
CONFIDENCE: <0-100>
EXPLANATION: <一到两句话说明>`

// BuildPrompt 按driver语言选择模板并替换变量
func BuildPrompt(lang, cnTpl, enTpl string, vars map[string]string) string {
	tpl := enTpl
	if lang == MODEL_BASE_LANGUAGE_CN {
		tpl = cnTpl
	}
	for k, v := range vars {
		tpl = strings.ReplaceAll(tpl, k, v)
	}
	return tpl
}
