package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/leon37/finsight/internal/infrastructure/guard"
	"github.com/leon37/finsight/internal/infrastructure/queue"
)

// SummaryService AI 月度总结：触发 + 轮询
// 和账单解析共用一套守卫/轮询机制，只是任务种类不同
type SummaryService struct {
	enqueuer  *queue.Enqueuer
	guard     *guard.Guard
	inspector *queue.Inspector
}

func NewSummaryService(enqueuer *queue.Enqueuer, g *guard.Guard, inspector *queue.Inspector) *SummaryService {
	return &SummaryService{enqueuer: enqueuer, guard: g, inspector: inspector}
}

// Trigger 触发一次总结生成，同一用户同时只允许一个在跑
func (s *SummaryService) Trigger(ctx context.Context, userID string) (string, error) {
	ok, existing, err := s.guard.Acquire(ctx, GuardKindSummary, userID, "pending")
	if err != nil {
		slog.Warn("守卫不可用，放行", "kind", GuardKindSummary, "user_id", userID, "err", err)
		ok = true
	}
	if !ok {
		// 旧任务可能早就结束了，回查一下再拒绝
		if existing != "" && existing != "pending" && !s.inspector.IsLive(existing) {
			_ = s.guard.Release(ctx, GuardKindSummary, userID)
			ok, _, _ = s.guard.Acquire(ctx, GuardKindSummary, userID, "pending")
		}
		if !ok {
			return "", ErrActiveJob
		}
	}

	taskID, err := s.enqueuer.EnqueueSummary(ctx, queue.SummaryPayload{UserID: userID})
	if err != nil {
		_ = s.guard.Release(ctx, GuardKindSummary, userID)
		return "", err
	}
	s.guard.Bind(ctx, GuardKindSummary, userID, taskID)
	return taskID, nil
}

// Poll 轮询总结结果；终态时清守卫
// completed 时把任务结果里的 summary 解出来返回
func (s *SummaryService) Poll(ctx context.Context, userID, taskID string) (queue.JobStatus, string, error) {
	status, result, err := s.inspector.Status(taskID)
	if err != nil {
		return "", "", err
	}

	if status == queue.JobCompleted || status == queue.JobFailed {
		_ = s.guard.Release(ctx, GuardKindSummary, userID)
	}

	var summary string
	if status == queue.JobCompleted && len(result) > 0 {
		var payload struct {
			Summary string `json:"summary"`
		}
		if err := json.Unmarshal(result, &payload); err == nil {
			summary = payload.Summary
		}
	}
	return status, summary, nil
}
