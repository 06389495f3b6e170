package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// resultRetention 终态任务在队列里保留多久，轮询方要在这个窗口内能查到 completed
const resultRetention = 24 * time.Hour

// Enqueuer 包装 asynq.Client，是提交侧唯一的入队入口
type Enqueuer struct {
	client   *asynq.Client
	maxRetry int
}

func NewEnqueuer(redisOpt asynq.RedisClientOpt, maxRetry int) *Enqueuer {
	if maxRetry <= 0 {
		maxRetry = 3
	}
	return &Enqueuer{
		client:   asynq.NewClient(redisOpt),
		maxRetry: maxRetry,
	}
}

// EnqueueEnrich 投递一条解析任务，返回任务句柄给客户端轮询
func (e *Enqueuer) EnqueueEnrich(ctx context.Context, p EnrichPayload) (string, error) {
	return e.enqueue(ctx, TypeEnrichTransaction, p,
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(2*time.Minute),
	)
}

// EnqueueSummary 投递一条总结任务
func (e *Enqueuer) EnqueueSummary(ctx context.Context, p SummaryPayload) (string, error) {
	return e.enqueue(ctx, TypeAISummary, p,
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
	)
}

// EnqueueEmail 投递一封邮件，投递失败最多重试 3 次
func (e *Enqueuer) EnqueueEmail(ctx context.Context, p EmailPayload) (string, error) {
	return e.enqueue(ctx, TypeEmailDeliver, p,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	t := asynq.NewTask(taskType, data)
	opts = append(opts,
		asynq.Queue(QueueDefault),
		// 保留终态，否则 completed 的任务会立刻从队列里消失，轮询方就查不到了
		asynq.Retention(resultRetention),
	)

	info, err := e.client.EnqueueContext(ctx, t, opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
