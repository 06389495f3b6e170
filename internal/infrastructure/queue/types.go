package queue

// 任务类型集中定义，enqueue 方和 worker 方共用
const (
	// TypeEnrichTransaction AI 记账的异步解析任务
	TypeEnrichTransaction = "transaction:enrich"
	// TypeSweepStale 定时兜底任务，清理卡死的 processing 记录
	TypeSweepStale = "transaction:sweep"
	// TypeAISummary 月度消费总结
	TypeAISummary = "ai:summary"
	// TypeEmailDeliver 邮件投递
	TypeEmailDeliver = "email:deliver"
)

// QueueDefault 目前只用一个队列
const QueueDefault = "default"

// EnrichPayload 解析任务的载荷：只带记录 ID，原文去库里取
type EnrichPayload struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
}

// SummaryPayload 总结任务的载荷
type SummaryPayload struct {
	UserID string `json:"user_id"`
}

// EmailPayload 邮件任务的载荷
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// JobStatus 是暴露给轮询接口的任务状态，和账单状态是两套枚举
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)
