package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/infrastructure/llm"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/model"
)

type noopSender struct{}

func (noopSender) Send(ctx context.Context, to, subject, htmlContent string) error { return nil }

func startWorker(t *testing.T, repo *fakeTxnRepo, provider *stubProvider) (*queue.Enqueuer, *queue.Inspector) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	redisOpt := asynq.RedisClientOpt{Addr: mr.Addr()}
	srv := NewServer(redisOpt, 4)
	mux := NewMux(Handlers{
		Enrich:  NewEnrichHandler(repo, provider, time.Second),
		Summary: NewSummaryHandler(repo, provider),
		Sweep:   NewSweepHandler(repo, 30*time.Minute),
		Email:   NewEmailHandler(noopSender{}),
	})
	if err := srv.Start(mux); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	e := queue.NewEnqueuer(redisOpt, 1)
	t.Cleanup(func() { e.Close() })
	ins := queue.NewInspector(redisOpt)
	t.Cleanup(func() { ins.Close() })
	return e, ins
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestPipeline_EnrichCompletes(t *testing.T) {
	repo := newFakeTxnRepo()
	txn := model.NewAITransaction("user-1", "dinner at the italian place 850")
	repo.put(txn)

	provider := &stubProvider{parsed: &model.ParsedExpense{
		Amount: 850, Category: "Food & Dining", Description: "Dinner at the Italian place",
	}}
	e, ins := startWorker(t, repo, provider)

	taskID, err := e.EnqueueEnrich(context.Background(), queue.EnrichPayload{
		TransactionID: txn.ID, UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// 记录异步走到 completed
	waitFor(t, 3*time.Second, func() bool {
		got := repo.get(txn.ID)
		return got != nil && got.Status == model.StatusCompleted
	})

	got := repo.get(txn.ID)
	if got.Amount != 850 || got.Category != "Food & Dining" {
		t.Errorf("enrichment wrong: %+v", got)
	}

	// 终态任务因为设置了保留期，轮询方还能查到 completed
	waitFor(t, 3*time.Second, func() bool {
		status, _, err := ins.Status(taskID)
		return err == nil && status == queue.JobCompleted
	})
	if ins.IsLive(taskID) {
		t.Error("completed task must not count as live")
	}
}

func TestPipeline_SemanticRejectFailsOnce(t *testing.T) {
	repo := newFakeTxnRepo()
	txn := model.NewAITransaction("user-1", "tell me a joke")
	repo.put(txn)

	provider := &stubProvider{parseErr: llm.ErrUnparseable}
	e, ins := startWorker(t, repo, provider)

	taskID, err := e.EnqueueEnrich(context.Background(), queue.EnrichPayload{
		TransactionID: txn.ID, UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		got := repo.get(txn.ID)
		return got != nil && got.Status == model.StatusFailed
	})

	got := repo.get(txn.ID)
	if got.FailureReason != reasonUnparseable {
		t.Errorf("failure reason = %q", got.FailureReason)
	}
	// 语义拒绝只许一次 LLM 调用，不许重试
	if calls := provider.calls(); calls != 1 {
		t.Errorf("llm calls = %d, want exactly 1", calls)
	}

	waitFor(t, 3*time.Second, func() bool {
		status, _, err := ins.Status(taskID)
		return err == nil && status == queue.JobFailed
	})
}

func TestPipeline_SummaryWritesResult(t *testing.T) {
	repo := newFakeTxnRepo()
	txn, err := model.NewManualTransaction("user-1", 120, "Groceries", "weekly shop", time.Now().UTC())
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	repo.put(txn)

	provider := &stubProvider{summary: "Mostly groceries this month."}
	e, ins := startWorker(t, repo, provider)

	taskID, err := e.EnqueueSummary(context.Background(), queue.SummaryPayload{UserID: "user-1"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var result []byte
	waitFor(t, 3*time.Second, func() bool {
		status, res, err := ins.Status(taskID)
		if err != nil || status != queue.JobCompleted {
			return false
		}
		result = res
		return true
	})

	var payload SummaryResult
	if err := json.Unmarshal(result, &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Summary != "Mostly groceries this month." {
		t.Errorf("summary = %q", payload.Summary)
	}
}

func TestPipeline_ReplayDoesNotOverwrite(t *testing.T) {
	repo := newFakeTxnRepo()
	txn := model.NewAITransaction("user-1", "coffee 350")
	repo.put(txn)

	provider := &stubProvider{parsed: &model.ParsedExpense{
		Amount: 350, Category: "Food & Dining", Description: "Coffee",
	}}
	e, _ := startWorker(t, repo, provider)
	ctx := context.Background()

	// 同一条记录投递两次，模拟 at-least-once 队列的重放
	if _, err := e.EnqueueEnrich(ctx, queue.EnrichPayload{TransactionID: txn.ID, UserID: "user-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := e.EnqueueEnrich(ctx, queue.EnrichPayload{TransactionID: txn.ID, UserID: "user-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		got := repo.get(txn.ID)
		return got != nil && got.Status == model.StatusCompleted
	})
	// 等第二次投递也被消费掉
	time.Sleep(200 * time.Millisecond)

	repo.mu.Lock()
	completeCalls := repo.completeCalls
	repo.mu.Unlock()
	if completeCalls > 2 {
		t.Errorf("completeCalls = %d", completeCalls)
	}
	got := repo.get(txn.ID)
	if got.Amount != 350 {
		t.Errorf("terminal record must be stable: %+v", got)
	}
}
