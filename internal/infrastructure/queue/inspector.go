package queue

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// ErrTaskNotFound 任务不在队列里（已过保留期或 ID 压根不对）
var ErrTaskNotFound = errors.New("queue: task not found")

// Inspector 只读视角，给轮询接口和并发守卫用
type Inspector struct {
	ins *asynq.Inspector
}

func NewInspector(redisOpt asynq.RedisClientOpt) *Inspector {
	return &Inspector{ins: asynq.NewInspector(redisOpt)}
}

// Status 把 asynq 的内部状态收敛成对外的四态
// completed 时顺带返回任务结果（如果 handler 写了的话）
func (i *Inspector) Status(taskID string) (JobStatus, []byte, error) {
	info, err := i.ins.GetTaskInfo(QueueDefault, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return "", nil, ErrTaskNotFound
		}
		return "", nil, fmt.Errorf("get task info: %w", err)
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateAggregating:
		return JobPending, nil, nil
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		return JobProcessing, nil, nil
	case asynq.TaskStateCompleted:
		return JobCompleted, info.Result, nil
	case asynq.TaskStateArchived:
		return JobFailed, nil, nil
	default:
		// 理论上不会走到，按处理中兜底
		return JobProcessing, nil, nil
	}
}

// IsLive 任务是否还在非终态（守卫用来判断旧任务是不是真的还在跑）
func (i *Inspector) IsLive(taskID string) bool {
	status, _, err := i.Status(taskID)
	if err != nil {
		// 查不到就当不在跑，最坏情况是多跑一个任务，不会丢数据
		return false
	}
	return status == JobPending || status == JobProcessing
}

func (i *Inspector) Close() error {
	return i.ins.Close()
}
