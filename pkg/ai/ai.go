package ai

import (
	"context"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

const (
	MODEL_BASE_LANGUAGE_CN = "zh-CN"
	MODEL_BASE_LANGUAGE_EN = "en"
)

type ModelName struct {
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

type Usage struct {
	Model string                 `json:"model"`
	Usage *openai.Usage          `json:"usage"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

type EmbeddingResult struct {
	Model   string      `json:"model"`
	Vectors [][]float32 `json:"vectors"`
	Usage   *openai.Usage
}

type GenerateResult struct {
	Model    string `json:"model"`
	Received string `json:"received"`
	Usage    *openai.Usage
}

// Embedder 文本向量化边界
type Embedder interface {
	Embedding(ctx context.Context, content []string) (EmbeddingResult, error)
	Lang() string
}

// Generator 文本生成边界，core 对其返回内容只做宽松解析
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (GenerateResult, error)
	Lang() string
}

// NumTokens 估算文本token数，失败时返回0并记录日志（调用方按不超限处理）
func NumTokens(text string, model string) int {
	if model == "" {
		model = openai.GPT4oMini
	}
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Error("Failed to load tiktoken encoding", slog.String("model", model), slog.String("error", err.Error()))
			return 0
		}
	}
	return len(tkm.Encode(text, nil, nil))
}
