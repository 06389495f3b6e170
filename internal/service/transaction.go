package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leon37/finsight/internal/infrastructure/guard"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/repository"
)

// 守卫的任务种类，key 的一部分
const (
	GuardKindEnrich  = "enrich"
	GuardKindSummary = "summary"
)

// ErrActiveJob 同一用户已有同类任务在跑，controller 映射成 429
var ErrActiveJob = errors.New("another job is still in progress, try again later")

// ErrNotOwner 访问了别人的账单，controller 映射成 403
var ErrNotOwner = errors.New("not allowed to access this transaction")

// TransactionService 提交网关 + 账单 CRUD + 轮询
type TransactionService struct {
	repo      repository.TransactionRepo
	enqueuer  *queue.Enqueuer
	guard     *guard.Guard
	inspector *queue.Inspector
}

func NewTransactionService(repo repository.TransactionRepo, enqueuer *queue.Enqueuer, g *guard.Guard, inspector *queue.Inspector) *TransactionService {
	return &TransactionService{
		repo:      repo,
		enqueuer:  enqueuer,
		guard:     g,
		inspector: inspector,
	}
}

// SubmitManual 手动记账：同步校验，直接落 completed，原样返回
func (s *TransactionService) SubmitManual(ctx context.Context, userID string, amount float64, category, description string, date time.Time) (*model.Transaction, error) {
	txn, err := model.NewManualTransaction(userID, amount, category, description, date)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}
	return txn, nil
}

// SubmitAI 提交网关的异步半边：
//  1. 防刷守卫：同一用户已有解析任务在跑就拒绝
//  2. 先落占位记录 (status=processing)
//  3. 再入队，入队是最后一步，失败的话把记录显式降级为 failed
//
// 绝不在这里等 LLM，客户端拿 task_id 回去轮询
func (s *TransactionService) SubmitAI(ctx context.Context, userID, text string) (*model.Transaction, string, error) {
	// 1. 占坑
	if err := s.acquireGuard(ctx, GuardKindEnrich, userID); err != nil {
		return nil, "", err
	}

	// 2. 占位记录先落库
	txn := model.NewAITransaction(userID, text)
	if err := s.repo.Create(ctx, txn); err != nil {
		_ = s.guard.Release(ctx, GuardKindEnrich, userID)
		return nil, "", fmt.Errorf("persist transaction: %w", err)
	}

	// 3. 入队放在最后一步，缩小"记录在、任务不在"的不一致窗口
	taskID, err := s.enqueuer.EnqueueEnrich(ctx, queue.EnrichPayload{
		TransactionID: txn.ID,
		UserID:        userID,
	})
	if err != nil {
		// 入队失败不能静默吞掉：记录降级为 failed，调用方看得见
		slog.Error("解析任务入队失败", "transaction_id", txn.ID, "err", err)
		if _, ferr := s.repo.FailEnrichment(ctx, txn.ID,
			"Failed to queue the expense for processing.", err.Error()); ferr != nil {
			// 降级也失败了，只能靠 sweep 兜底
			slog.Error("降级记录失败，等待 sweep 兜底", "transaction_id", txn.ID, "err", ferr)
		}
		_ = s.guard.Release(ctx, GuardKindEnrich, userID)
		return nil, "", fmt.Errorf("enqueue enrichment: %w", err)
	}

	// 把真实任务 ID 绑到守卫上，轮询方靠它判断旧任务死活
	s.guard.Bind(ctx, GuardKindEnrich, userID, taskID)

	return txn, taskID, nil
}

// acquireGuard 占坑；坑被占时回查旧任务，已经死了就清掉重试一次
func (s *TransactionService) acquireGuard(ctx context.Context, kind, userID string) error {
	ok, existing, err := s.guard.Acquire(ctx, kind, userID, "pending")
	if err != nil {
		// 守卫只是尽力而为的防刷，Redis 抖动不应该挡住记账
		slog.Warn("守卫不可用，放行", "kind", kind, "user_id", userID, "err", err)
		return nil
	}
	if ok {
		return nil
	}

	// 坑被占：旧任务可能早就结束了只是没人清坑，回查一下
	if existing != "" && existing != "pending" && !s.inspector.IsLive(existing) {
		_ = s.guard.Release(ctx, kind, userID)
		if ok, _, _ := s.guard.Acquire(ctx, kind, userID, "pending"); ok {
			return nil
		}
	}
	return ErrActiveJob
}

// PollEnrichment 轮询任务状态；观察到终态时顺手清掉守卫
func (s *TransactionService) PollEnrichment(ctx context.Context, userID, taskID string) (queue.JobStatus, error) {
	status, _, err := s.inspector.Status(taskID)
	if err != nil {
		return "", err
	}
	if status == queue.JobCompleted || status == queue.JobFailed {
		_ = s.guard.Release(ctx, GuardKindEnrich, userID)
	}
	return status, nil
}

// Status 查单条记录的状态（按记录 ID，不是任务 ID）
func (s *TransactionService) Status(ctx context.Context, userID, id string) (model.TransactionStatus, error) {
	txn, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return txn.Status, nil
}

// Get 取单条记录 (带归属权校验)
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*model.Transaction, error) {
	return s.getOwned(ctx, userID, id)
}

// List 取列表，按消费时间倒序
func (s *TransactionService) List(ctx context.Context, userID string) ([]model.Transaction, error) {
	return s.repo.List(ctx, userID)
}

// Delete 删除账单 (带归属权校验)
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *TransactionService) getOwned(ctx context.Context, userID, id string) (*model.Transaction, error) {
	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// 🛡️ 安全核心：检查这条账单是不是这个人的
	if txn.UserID != userID {
		return nil, ErrNotOwner
	}
	return txn, nil
}
