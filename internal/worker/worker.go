package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/infrastructure/queue"
)

// Handlers 聚合所有任务处理器，cmd/worker 负责构造并注册
type Handlers struct {
	Enrich  *EnrichHandler
	Summary *SummaryHandler
	Sweep   *SweepHandler
	Email   *EmailHandler
}

// NewMux 注册任务类型到处理器的映射，外面再包一层日志中间件
func NewMux(h Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware)
	mux.Handle(queue.TypeEnrichTransaction, h.Enrich)
	mux.Handle(queue.TypeAISummary, h.Summary)
	mux.Handle(queue.TypeSweepStale, h.Sweep)
	mux.Handle(queue.TypeEmailDeliver, h.Email)
	return mux
}

// loggingMiddleware 打每个任务的开始/结束和耗时
func loggingMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		start := time.Now()
		slog.Info("任务开始", "type", t.Type(), "task_id", taskID)

		err := next.ProcessTask(ctx, t)

		if err != nil {
			slog.Warn("任务失败", "type", t.Type(), "task_id", taskID,
				"elapsed", time.Since(start), "err", err)
		} else {
			slog.Info("任务完成", "type", t.Type(), "task_id", taskID,
				"elapsed", time.Since(start))
		}
		return err
	})
}

// NewServer 按配置构造 asynq server
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue.QueueDefault: 1},
	})
}
