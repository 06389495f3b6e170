package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/infrastructure/llm"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/repository"
	"gorm.io/gorm"
)

// 写到 failure_reason 的文案是用户可见的，保持稳定
const (
	reasonUnparseable = "AI could not parse the expense."
	reasonUnavailable = "AI service is temporarily unavailable."
	reasonInternal    = "Internal error while processing the expense."
)

// EnrichHandler 异步解析的核心 worker
//
// 一次执行的骨架：
//  1. 取记录，不存在 -> 记日志作废（没有可重试的对象）
//  2. raw_text 缺失 -> 结构性缺陷，立刻终态失败，禁止重试
//  3. 调 LLM：传输层错误可重试（asynq 按 MaxRetry 调度），语义拒绝不重试
//  4. 成功 -> 一次条件更新写入 amount/category/description/status
//  5. 条件更新带 status=processing 前置，队列重放时是无害的 no-op
type EnrichHandler struct {
	repo       repository.TransactionRepo
	llmClient  llm.Provider
	llmTimeout time.Duration
}

func NewEnrichHandler(repo repository.TransactionRepo, llmClient llm.Provider, llmTimeout time.Duration) *EnrichHandler {
	if llmTimeout <= 0 {
		llmTimeout = 30 * time.Second
	}
	return &EnrichHandler{
		repo:       repo,
		llmClient:  llmClient,
		llmTimeout: llmTimeout,
	}
}

func (h *EnrichHandler) ProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	var p queue.EnrichPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// 载荷坏了重试也没用
		return fmt.Errorf("enrich: bad payload: %v: %w", err, asynq.SkipRetry)
	}

	// 未预料的 panic 不能让记录永远卡在 processing
	defer func() {
		if r := recover(); r != nil {
			slog.Error("enrich worker panic", "transaction_id", p.TransactionID, "panic", r)
			h.failRecord(p.TransactionID, reasonInternal, fmt.Sprintf("panic: %v", r))
			err = fmt.Errorf("enrich: panic: %v: %w", r, asynq.SkipRetry)
		}
	}()

	// 1. 取记录
	txn, err := h.repo.GetByID(ctx, p.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 记录没了（比如提交后立刻被删），属于异常但不是可重试的失败
			slog.Warn("待解析的记录不存在，任务作废", "transaction_id", p.TransactionID)
			return nil
		}
		// 数据库抖动，交给 asynq 重试
		return fmt.Errorf("enrich: load transaction: %w", err)
	}

	// 队列重放：记录已经是终态，直接跳过
	if txn.Status != model.StatusProcessing {
		slog.Info("记录已是终态，跳过（队列重放）",
			"transaction_id", txn.ID, "status", txn.Status)
		return nil
	}

	// 2. raw_text 缺失是结构性缺陷，不是运行时的偶发问题
	if txn.RawText == "" {
		slog.Error("AI 模式记录缺少 raw_text", "transaction_id", txn.ID)
		h.failRecord(txn.ID, reasonUnparseable, "record is missing raw_text")
		return fmt.Errorf("enrich: missing raw_text: %w", asynq.SkipRetry)
	}

	// 3. 调 LLM，唯一的阻塞点，必须带超时
	llmCtx, cancel := context.WithTimeout(ctx, h.llmTimeout)
	defer cancel()

	parsed, err := h.llmClient.ParseExpense(llmCtx, txn.RawText, model.PredefinedCategories)
	if err != nil {
		if errors.Is(err, llm.ErrUnparseable) {
			// 模型回答了但抽不出来，重试同样的文本不会有不同结果
			slog.Warn("LLM 语义拒绝", "transaction_id", txn.ID, "err", err)
			h.failRecord(txn.ID, reasonUnparseable, err.Error())
			return fmt.Errorf("enrich: semantic reject: %v: %w", err, asynq.SkipRetry)
		}

		// 传输层错误：让 asynq 按 MaxRetry 重试；这是最后一次尝试的话，
		// 必须在放弃前把记录置为 failed，否则它会永远卡在 processing
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			slog.Error("LLM 重试次数耗尽", "transaction_id", txn.ID, "retried", retried, "err", err)
			h.failRecord(txn.ID, reasonUnavailable, err.Error())
		} else {
			slog.Warn("LLM 暂时性失败，等待重试",
				"transaction_id", txn.ID, "attempt", retried+1, "max", maxRetry+1, "err", err)
		}
		return fmt.Errorf("enrich: llm transient: %w", err)
	}

	// 4. 唯一的成功转移：一次条件更新写入全部字段
	updated, err := h.repo.CompleteEnrichment(ctx, txn.ID, parsed)
	if err != nil {
		return fmt.Errorf("enrich: finalize: %w", err)
	}
	if !updated {
		// 并发的另一次执行抢先写了终态，幂等跳过
		slog.Info("终态已被写入，跳过", "transaction_id", txn.ID)
		return nil
	}

	slog.Info("解析完成",
		"transaction_id", txn.ID,
		"amount", parsed.Amount,
		"category", parsed.Category)
	return nil
}

// failRecord 把记录降级为 failed；用独立的 context，避免任务 ctx 已经被取消
func (h *EnrichHandler) failRecord(id, reason, details string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := h.repo.FailEnrichment(ctx, id, reason, details); err != nil {
		slog.Error("写入失败状态失败", "transaction_id", id, "err", err)
	}
}
