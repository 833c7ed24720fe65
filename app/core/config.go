package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/loreweave/loreweave/app/core/srv"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr     string      `toml:"addr"` // metrics与健康检查监听地址
	Log      Log         `toml:"log"`
	Postgres PGConfig    `toml:"postgres"`
	Redis    RedisConfig `toml:"redis"`

	AI srv.AIConfig `toml:"ai"`

	Process   ProcessConfig   `toml:"process"`
	Semaphore SemaphoreConfig `toml:"semaphore"`
}

// ProcessConfig 后台任务调度表达式，为空则使用默认值
type ProcessConfig struct {
	ExpertiseCron string `toml:"expertise_cron"`  // 专长评分重算
	GapReportCron string `toml:"gap_report_cron"` // 文档缺口巡检
}

type SemaphoreConfig struct {
	Analyze AnalyzeSemaphoreConfig `toml:"analyze"`
}

type AnalyzeSemaphoreConfig struct {
	ConflictScanMaxConcurrency int `toml:"conflict_scan_max_concurrency"` // 冲突扫描最大并发组织数，默认 3
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("LOREWEAVE_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.AI.OpenAI.Token = os.Getenv("LOREWEAVE_OPENAI_TOKEN")
	c.AI.OpenAI.Endpoint = os.Getenv("LOREWEAVE_OPENAI_ENDPOINT")
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("LOREWEAVE_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	Cluster       bool     `toml:"cluster"`
	ClusterAddrs  []string `toml:"cluster_addrs"`
	ClusterPasswd string   `toml:"cluster_passwd"`

	KeyPrefix string `toml:"key_prefix"` // 隔离不同环境
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("LOREWEAVE_REDIS_ADDR")
	r.Password = os.Getenv("LOREWEAVE_REDIS_PASSWORD")
	if dbStr := os.Getenv("LOREWEAVE_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("LOREWEAVE_LOG_LEVEL")
	l.Path = os.Getenv("LOREWEAVE_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
