package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard 防止同一个用户同时挂起多个同类异步任务（防刷）
//
// 用 Redis 的 SET NX EX 实现：key 带 TTL，进程重启或多实例部署都不影响。
// 注意这不是严格的分布式锁，只是尽力而为的互斥——最坏情况是偶尔多跑
// 一个任务，不会造成数据损坏，所以不值得上 redlock。
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

func (g *Guard) key(kind, userID string) string {
	return fmt.Sprintf("guard:%s:%s", kind, userID)
}

// Acquire 尝试占坑，value 存任务 ID，方便调用方回查旧任务是否还活着
// 返回 (是否占到, 已占坑的任务ID)
func (g *Guard) Acquire(ctx context.Context, kind, userID, taskID string) (bool, string, error) {
	ok, err := g.rdb.SetNX(ctx, g.key(kind, userID), taskID, g.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("guard acquire: %w", err)
	}
	if ok {
		return true, "", nil
	}

	existing, err := g.rdb.Get(ctx, g.key(kind, userID)).Result()
	if err != nil {
		// 极小概率：占坑的 key 刚好过期了，让调用方重试一次提交即可
		return false, "", nil
	}
	return false, existing, nil
}

// Bind 占坑成功后把真实任务 ID 写进去（保留原 TTL）
// 失败无所谓，value 只是给回查用的提示
func (g *Guard) Bind(ctx context.Context, kind, userID, taskID string) {
	g.rdb.SetXX(ctx, g.key(kind, userID), taskID, redis.KeepTTL)
}

// Release 主动清坑：轮询方观察到终态、或提交时发现旧任务已死时调用
// 不主动清也没关系，TTL 到期自动释放
func (g *Guard) Release(ctx context.Context, kind, userID string) error {
	return g.rdb.Del(ctx, g.key(kind, userID)).Err()
}
