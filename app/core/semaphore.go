package core

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedSemaphore 基于 Redis 的分布式信号量
type DistributedSemaphore struct {
	redis      redis.UniversalClient
	key        string
	maxPermits int
	timeout    time.Duration
}

func NewDistributedSemaphore(redis redis.UniversalClient, key string, maxPermits int, timeout time.Duration) *DistributedSemaphore {
	return &DistributedSemaphore{
		redis:      redis,
		key:        key,
		maxPermits: maxPermits,
		timeout:    timeout,
	}
}

// TryAcquire 尝试获取许可，Lua 脚本保证原子性
func (s *DistributedSemaphore) TryAcquire() bool {
	ctx := context.Background()

	script := `
		local key = KEYS[1]
		local max_permits = tonumber(ARGV[1])
		local timeout = tonumber(ARGV[2])

		local current = tonumber(redis.call('GET', key) or '0')

		if current < max_permits then
			redis.call('INCR', key)
			redis.call('EXPIRE', key, timeout)
			return 1
		else
			return 0
		end
	`

	result, err := s.redis.Eval(ctx, script, []string{s.key}, s.maxPermits, int(s.timeout.Seconds())).Int()
	if err != nil {
		return false
	}

	return result == 1
}

// Release 释放许可，避免减到负数
func (s *DistributedSemaphore) Release() {
	ctx := context.Background()

	script := `
		local key = KEYS[1]
		local current = tonumber(redis.call('GET', key) or '0')

		if current > 0 then
			redis.call('DECR', key)
			return 1
		else
			return 0
		end
	`

	s.redis.Eval(ctx, script, []string{s.key})
}

func (s *DistributedSemaphore) GetCurrent() int {
	ctx := context.Background()
	result, err := s.redis.Get(ctx, s.key).Int()
	if err != nil {
		return 0
	}
	return result
}

// SemaphoreManager 统一管理分布式信号量
type SemaphoreManager struct {
	core             *Core
	conflictScan     *DistributedSemaphore
	conflictScanOnce sync.Once
}

func NewSemaphoreManager(core *Core) *SemaphoreManager {
	return &SemaphoreManager{
		core: core,
	}
}

// ConflictScan 冲突扫描信号量（懒加载）
// 限制同时进行冲突扫描的组织数，扫描是LLM消耗大户
func (m *SemaphoreManager) ConflictScan() *DistributedSemaphore {
	m.conflictScanOnce.Do(func() {
		maxConcurrency := 3 // 默认值
		if m.core.cfg.Semaphore.Analyze.ConflictScanMaxConcurrency > 0 {
			maxConcurrency = m.core.cfg.Semaphore.Analyze.ConflictScanMaxConcurrency
		}

		m.conflictScan = NewDistributedSemaphore(
			m.core.Redis(),
			"loreweave:semaphore:conflict_scan",
			maxConcurrency,
			time.Minute*10,
		)
	})
	return m.conflictScan
}
