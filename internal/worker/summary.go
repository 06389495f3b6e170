package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/infrastructure/llm"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/repository"
)

// SummaryHandler 生成当月消费总结，结果写进任务结果里由轮询接口取走
// 权威数据是账单本身，这里的产出只是一段给人看的文字
type SummaryHandler struct {
	repo      repository.TransactionRepo
	llmClient llm.Provider
}

func NewSummaryHandler(repo repository.TransactionRepo, llmClient llm.Provider) *SummaryHandler {
	return &SummaryHandler{repo: repo, llmClient: llmClient}
}

// SummaryResult 是写入任务结果的载荷，轮询接口原样透传
type SummaryResult struct {
	Summary string `json:"summary"`
}

func (h *SummaryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p queue.SummaryPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("summary: bad payload: %v: %w", err, asynq.SkipRetry)
	}

	// 取当月已完成的账单
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	txns, err := h.repo.ListCompletedInRange(ctx, p.UserID, start, now)
	if err != nil {
		return fmt.Errorf("summary: load transactions: %w", err)
	}

	var summary string
	if len(txns) == 0 {
		// 没有数据就不必打扰 LLM
		summary = "No completed spending recorded this month yet."
	} else {
		var sb strings.Builder
		var total float64
		sb.WriteString("Here are this month's expenses, one per line (date | category | amount | description):\n")
		for _, txn := range txns {
			total += txn.Amount
			fmt.Fprintf(&sb, "%s | %s | %.2f | %s\n",
				txn.Date.Format("2006-01-02"), txn.Category, txn.Amount, txn.Description)
		}
		fmt.Fprintf(&sb, "Total: %.2f\n", total)
		sb.WriteString("Summarize the spending habits in 3-4 sentences, mention the biggest category, and give one practical tip.")

		summary, err = h.llmClient.Summarize(ctx, sb.String())
		if err != nil {
			// 总结失败可以重试，数据不会变坏
			return fmt.Errorf("summary: llm: %w", err)
		}
	}

	data, _ := json.Marshal(SummaryResult{Summary: summary})
	// ResultWriter 只有经由队列投递的任务才有
	if w := t.ResultWriter(); w != nil {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("summary: write result: %w", err)
		}
	}

	slog.Info("月度总结生成完成", "user_id", p.UserID, "transactions", len(txns))
	return nil
}
