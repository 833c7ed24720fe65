package srv

import (
	"context"
	"log/slog"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"

	"github.com/loreweave/loreweave/pkg/ai"
	"github.com/loreweave/loreweave/pkg/ai/openai"
	"github.com/loreweave/loreweave/pkg/errors"
	"github.com/loreweave/loreweave/pkg/i18n"
)

type EmbeddingAI interface {
	Embedding(ctx context.Context, content []string) (ai.EmbeddingResult, error)
}

type GenerateAI interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (ai.GenerateResult, error)
}

type AIDriver interface {
	EmbeddingAI
	GenerateAI
	Lang() string
	TextIsOverLimit(text string) bool
}

type AIConfig struct {
	Driver string        `toml:"driver"`
	OpenAI openai.Config `toml:"openai"`

	// GenerateRPM 每分钟生成请求上限，0 表示不限流
	GenerateRPM int `toml:"generate_rpm"`
	// TokenLimit 单次请求token上限，超限内容不参与LLM分析
	TokenLimit int `toml:"token_limit"`
}

const DEFAULT_TOKEN_LIMIT = 32000

// AI 驱动注册表，embedding与生成可以来自不同驱动
type AI struct {
	embedDrivers cmap.ConcurrentMap[string, ai.Embedder]
	genDrivers   cmap.ConcurrentMap[string, ai.Generator]

	embedDefault string
	genDefault   string

	limiter    *rate.Limiter
	tokenLimit int
	lang       string
}

func SetupAI(cfg AIConfig) *AI {
	a := &AI{
		embedDrivers: cmap.New[ai.Embedder](),
		genDrivers:   cmap.New[ai.Generator](),
		tokenLimit:   cfg.TokenLimit,
		limiter:      rate.NewLimiter(rate.Inf, 1),
	}

	if a.tokenLimit <= 0 {
		a.tokenLimit = DEFAULT_TOKEN_LIMIT
	}
	if cfg.GenerateRPM > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(float64(cfg.GenerateRPM)/60), cfg.GenerateRPM)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = openai.NAME
	}

	switch driver {
	case openai.NAME:
		d := openai.New(cfg.OpenAI)
		a.RegisterEmbedder(openai.NAME, d)
		a.RegisterGenerator(openai.NAME, d)
	default:
		slog.Warn("Unknown ai driver, llm features disabled", slog.String("driver", driver))
	}

	return a
}

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		s.ai = SetupAI(cfg)
	}
}

func (s *AI) RegisterEmbedder(name string, d ai.Embedder) {
	s.embedDrivers.Set(name, d)
	if s.embedDefault == "" {
		s.embedDefault = name
		s.lang = d.Lang()
	}
}

func (s *AI) RegisterGenerator(name string, d ai.Generator) {
	s.genDrivers.Set(name, d)
	if s.genDefault == "" {
		s.genDefault = name
	}
}

func (s *AI) Lang() string {
	if s.lang == "" {
		return ai.MODEL_BASE_LANGUAGE_EN
	}
	return s.lang
}

func (s *AI) TextIsOverLimit(text string) bool {
	return ai.NumTokens(text, "") > s.tokenLimit
}

func (s *AI) Embedding(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	d, ok := s.embedDrivers.Get(s.embedDefault)
	if !ok {
		return ai.EmbeddingResult{}, errors.New("AI.Embedding", i18n.ERROR_AI_EMBEDDING_UNAVAILABLE, nil)
	}
	return d.Embedding(ctx, content)
}

// Generate 经过全局限流器后转发到默认生成驱动
func (s *AI) Generate(ctx context.Context, systemPrompt, prompt string) (ai.GenerateResult, error) {
	d, ok := s.genDrivers.Get(s.genDefault)
	if !ok {
		return ai.GenerateResult{}, errors.New("AI.Generate", i18n.ERROR_AI_GENERATE_UNAVAILABLE, nil)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return ai.GenerateResult{}, err
	}
	return d.Generate(ctx, systemPrompt, prompt)
}
