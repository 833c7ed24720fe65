package ai

import (
	"encoding/json"
	"strconv"
	"strings"
)

// 本文件是LLM输出的唯一解析边界。
// LLM被当作不可信外部接口：任何结构不符都退化为空值/默认值，不向外抛解析错误。

type ClusterNameResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ExtractedParticipant struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type ExtractedDecision struct {
	Summary      string                 `json:"summary"`
	Context      string                 `json:"context"`
	Reasoning    string                 `json:"reasoning"`
	DecisionType string                 `json:"decision_type"`
	Status       string                 `json:"status"`
	Confidence   float64                `json:"confidence"`
	Participants []ExtractedParticipant `json:"participants"`
	Tags         []string               `json:"tags"`
}

type ArbitrationVerdict string

const (
	ARBITRATION_CONFLICT    ArbitrationVerdict = "CONFLICT"
	ARBITRATION_SUPERSEDE   ArbitrationVerdict = "SUPERSEDE"
	ARBITRATION_OVERLAP     ArbitrationVerdict = "OVERLAP"
	ARBITRATION_NO_CONFLICT ArbitrationVerdict = "NO_CONFLICT"
)

type ArbitrationResult struct {
	Verdict     ArbitrationVerdict `json:"verdict"`
	Confidence  float64            `json:"confidence"` // 0-1
	Explanation string             `json:"explanation"`
}

// ExtractJSONArray 截取响应中第一个完整的 [...] 片段
// 找不到或括号不配对时返回空串
func ExtractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// ExtractJSONObject 截取响应中第一个完整的 {...} 片段
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// ParseClusterName 解析聚类命名结果，失败时返回零值由调用方保留默认命名
func ParseClusterName(raw string) ClusterNameResult {
	var res ClusterNameResult
	obj := ExtractJSONObject(raw)
	if obj == "" {
		return res
	}
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return ClusterNameResult{}
	}
	res.Name = strings.TrimSpace(res.Name)
	res.Description = strings.TrimSpace(res.Description)
	return res
}

const (
	extractMinSummaryLen = 10
	extractMinConfidence = 50
)

// ParseExtractedDecisions 解析决策抽取结果
// summary过短或confidence低于50的候选被丢弃；整体解析失败返回空列表
func ParseExtractedDecisions(raw string) []ExtractedDecision {
	arr := ExtractJSONArray(raw)
	if arr == "" {
		return nil
	}

	var candidates []ExtractedDecision
	if err := json.Unmarshal([]byte(arr), &candidates); err != nil {
		return nil
	}

	var result []ExtractedDecision
	for _, c := range candidates {
		c.Summary = strings.TrimSpace(c.Summary)
		if len(c.Summary) < extractMinSummaryLen {
			continue
		}
		if c.Confidence < extractMinConfidence {
			continue
		}
		result = append(result, c)
	}
	return result
}

// ParseArbitration 解析 RESULT/CONFIDENCE/EXPLANATION 文本模板
// 任何异常输出都按 NO_CONFLICT 处理
func ParseArbitration(raw string) ArbitrationResult {
	res := ArbitrationResult{Verdict: ARBITRATION_NO_CONFLICT}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "RESULT:"):
			v := strings.TrimSpace(strings.TrimPrefix(upper, "RESULT:"))
			switch ArbitrationVerdict(v) {
			case ARBITRATION_CONFLICT, ARBITRATION_SUPERSEDE, ARBITRATION_OVERLAP, ARBITRATION_NO_CONFLICT:
				res.Verdict = ArbitrationVerdict(v)
			}
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			v := strings.TrimSpace(line[len("CONFIDENCE:"):])
			v = strings.TrimSuffix(v, "%")
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				if f > 1 {
					f = f / 100
				}
				if f >= 0 && f <= 1 {
					res.Confidence = f
				}
			}
		case strings.HasPrefix(upper, "EXPLANATION:"):
			res.Explanation = strings.TrimSpace(line[len("EXPLANATION:"):])
		}
	}

	return res
}
