package core

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/loreweave/loreweave/app/core/srv"
	"github.com/loreweave/loreweave/app/store/sqlstore"
	"github.com/loreweave/loreweave/pkg/types"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	httpClient *http.Client

	redis      redis.UniversalClient
	cache      types.Cache
	semaphores *SemaphoreManager

	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Second * 3},
		metrics:    NewMetrics("loreweave", "core"),
	}

	// setup store
	setupSqlStore(core)

	// redis 可选，缺省时缓存与分布式信号量退化为单机空实现
	if cfg.Redis.Addr != "" || cfg.Redis.Cluster {
		core.redis = NewRedisClient(cfg.Redis)
		core.cache = NewRedisCache(core.redis, cfg.Redis.KeyPrefix)
	} else {
		core.cache = EmptyCache{}
	}

	core.semaphores = NewSemaphoreManager(core)

	core.srv = srv.SetupSrvs(srv.ApplyAI(cfg.AI))

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	// 执行数据库表初始化
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	fmt.Println("setupSqlStore done")
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

func (s *Core) Cache() types.Cache {
	return s.cache
}

func (s *Core) Semaphores() *SemaphoreManager {
	return s.semaphores
}

func (s *Core) Lang() string {
	return s.srv.AI().Lang()
}
