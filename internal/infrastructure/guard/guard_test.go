package guard

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewGuard(rdb, 2*time.Minute), mr
}

func TestGuardAcquireRelease(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	ok, existing, err := g.Acquire(ctx, "enrich", "user-1", "task-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok || existing != "" {
		t.Fatalf("first acquire should win, got ok=%v existing=%q", ok, existing)
	}

	// 坑被占时返回已占坑的任务 ID
	ok, existing, err = g.Acquire(ctx, "enrich", "user-1", "task-2")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire for the same user must be rejected")
	}
	if existing != "task-1" {
		t.Errorf("existing = %q, want task-1", existing)
	}

	// 不同用户、不同种类互不影响
	if ok, _, _ := g.Acquire(ctx, "enrich", "user-2", "task-3"); !ok {
		t.Error("different user should acquire independently")
	}
	if ok, _, _ := g.Acquire(ctx, "summary", "user-1", "task-4"); !ok {
		t.Error("different kind should acquire independently")
	}

	// 释放后可以重新占坑
	if err := g.Release(ctx, "enrich", "user-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _, _ := g.Acquire(ctx, "enrich", "user-1", "task-5"); !ok {
		t.Error("acquire after release should succeed")
	}
}

func TestGuardBindKeepsTTL(t *testing.T) {
	g, mr := newTestGuard(t)
	ctx := context.Background()

	if ok, _, _ := g.Acquire(ctx, "enrich", "user-1", "pending"); !ok {
		t.Fatal("acquire failed")
	}
	g.Bind(ctx, "enrich", "user-1", "task-real")

	got, err := mr.Get("guard:enrich:user-1")
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if got != "task-real" {
		t.Errorf("bound value = %q, want task-real", got)
	}
	if mr.TTL("guard:enrich:user-1") <= 0 {
		t.Error("bind must keep the TTL, key should still expire")
	}
}

func TestGuardExpires(t *testing.T) {
	g, mr := newTestGuard(t)
	ctx := context.Background()

	if ok, _, _ := g.Acquire(ctx, "enrich", "user-1", "task-1"); !ok {
		t.Fatal("acquire failed")
	}

	// TTL 到期后坑自动释放
	mr.FastForward(3 * time.Minute)

	if ok, _, _ := g.Acquire(ctx, "enrich", "user-1", "task-2"); !ok {
		t.Error("acquire after TTL expiry should succeed")
	}
}

func TestGuardBindWithoutAcquireIsNoop(t *testing.T) {
	g, mr := newTestGuard(t)

	// SetXX 语义：key 不存在时什么都不写
	g.Bind(context.Background(), "enrich", "user-1", "task-1")
	if mr.Exists("guard:enrich:user-1") {
		t.Error("bind without a held guard must not create the key")
	}
}
