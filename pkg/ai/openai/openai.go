package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/loreweave/loreweave/pkg/ai"
)

const (
	NAME = "openai"
)

type Config struct {
	Token          string `toml:"token"`
	Endpoint       string `toml:"endpoint"`
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
	// EmbeddingDim 需要与库表 vector 列维度一致
	EmbeddingDim int    `toml:"embedding_dim"`
	Lang         string `toml:"lang"`
}

type Driver struct {
	client *openai.Client
	model  ai.ModelName
	dim    int
	lang   string
}

func New(cfg Config) *Driver {
	c := openai.DefaultConfig(cfg.Token)
	if cfg.Endpoint != "" {
		c.BaseURL = cfg.Endpoint
	}

	model := ai.ModelName{
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
	}
	if model.ChatModel == "" {
		model.ChatModel = openai.GPT4oMini
	}
	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.LargeEmbedding3)
	}

	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = 1536
	}

	lang := cfg.Lang
	if lang == "" {
		lang = ai.MODEL_BASE_LANGUAGE_EN
	}

	return &Driver{
		client: openai.NewClientWithConfig(c),
		model:  model,
		dim:    dim,
		lang:   lang,
	}
}

func (s *Driver) Lang() string {
	return s.lang
}

func (s *Driver) Embedding(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME), slog.Int("batch", len(content)))

	queryReq := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(s.model.EmbeddingModel),
		Dimensions: s.dim,
	}

	var (
		groups   [][]string
		result   [][]float32
		batchMax = 6
	)

	for i, v := range content {
		if i%batchMax == 0 {
			groups = append(groups, []string{})
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], v)
	}

	r := ai.EmbeddingResult{
		Usage: &openai.Usage{},
	}
	for _, v := range groups {
		queryReq.Input = v
		resp, err := s.client.CreateEmbeddings(ctx, queryReq)
		if err != nil {
			return r, fmt.Errorf("Error creating embedding: %w", err)
		}
		for _, d := range resp.Data {
			result = append(result, d.Embedding)
		}

		r.Usage.CompletionTokens += resp.Usage.CompletionTokens
		r.Usage.PromptTokens += resp.Usage.PromptTokens
		r.Usage.TotalTokens += resp.Usage.TotalTokens
		r.Model = string(resp.Model)
	}

	r.Vectors = result

	return r, nil
}

func (s *Driver) Generate(ctx context.Context, systemPrompt, prompt string) (ai.GenerateResult, error) {
	slog.Debug("Generate", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model.ChatModel,
		Messages: messages,
	})
	if err != nil {
		return ai.GenerateResult{}, fmt.Errorf("Error creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ai.GenerateResult{Model: resp.Model, Usage: &resp.Usage}, nil
	}

	return ai.GenerateResult{
		Model:    resp.Model,
		Received: resp.Choices[0].Message.Content,
		Usage:    &resp.Usage,
	}, nil
}
