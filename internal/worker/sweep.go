package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/repository"
)

const reasonSweptStale = "Enrichment timed out."

// SweepHandler 兜底清理任务
//
// 记录先落库、任务后入队，这两步不是一个事务：入队失败（或者 worker
// 进程带着任务一起没了）会留下永远 processing 的孤儿记录。这个任务
// 定期把超过时限的 processing 记录统一置为 failed，保证轮询方
// 总能等到一个终态。
type SweepHandler struct {
	repo       repository.TransactionRepo
	staleAfter time.Duration
}

func NewSweepHandler(repo repository.TransactionRepo, staleAfter time.Duration) *SweepHandler {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &SweepHandler{repo: repo, staleAfter: staleAfter}
}

func (h *SweepHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-h.staleAfter)

	n, err := h.repo.SweepStale(ctx, cutoff, reasonSweptStale)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if n > 0 {
		slog.Warn("清理了卡死的 processing 记录", "count", n, "older_than", h.staleAfter)
	}
	return nil
}
