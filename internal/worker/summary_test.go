package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/model"
)

func summaryTask(t *testing.T, userID string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(queue.SummaryPayload{UserID: userID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.TypeAISummary, data)
}

func TestSummaryHandler_NoTransactions(t *testing.T) {
	repo := newFakeTxnRepo()
	provider := &stubProvider{sumErr: errors.New("must not be called")}

	h := NewSummaryHandler(repo, provider)
	// 没有账单时直接出固定文案，不打扰 LLM
	if err := h.ProcessTask(context.Background(), summaryTask(t, "user-1")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
}

func TestSummaryHandler_WithTransactions(t *testing.T) {
	repo := newFakeTxnRepo()
	txn, err := model.NewManualTransaction("user-1", 120, "Groceries", "weekly shop", time.Now().UTC())
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	repo.put(txn)

	provider := &stubProvider{summary: "You spent most on groceries."}
	h := NewSummaryHandler(repo, provider)

	if err := h.ProcessTask(context.Background(), summaryTask(t, "user-1")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
}

func TestSummaryHandler_LLMFailureIsRetryable(t *testing.T) {
	repo := newFakeTxnRepo()
	txn, err := model.NewManualTransaction("user-1", 120, "Groceries", "weekly shop", time.Now().UTC())
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	repo.put(txn)

	provider := &stubProvider{sumErr: errors.New("timeout")}
	h := NewSummaryHandler(repo, provider)

	taskErr := h.ProcessTask(context.Background(), summaryTask(t, "user-1"))
	if taskErr == nil || errors.Is(taskErr, asynq.SkipRetry) {
		t.Fatalf("llm flake must be retryable, got %v", taskErr)
	}
}
