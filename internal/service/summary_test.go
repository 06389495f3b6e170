package service

import (
	"context"
	"errors"
	"testing"

	"github.com/leon37/finsight/internal/infrastructure/queue"
)

func TestSummaryTriggerAndPoll(t *testing.T) {
	g, e, ins := newAsyncStack(t)
	svc := NewSummaryService(e, g, ins)
	ctx := context.Background()

	taskID, err := svc.Trigger(ctx, "user-1")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if taskID == "" {
		t.Fatal("expected a task id")
	}

	// 任务还挂着，重复触发被拒
	if _, err := svc.Trigger(ctx, "user-1"); !errors.Is(err, ErrActiveJob) {
		t.Fatalf("want ErrActiveJob, got %v", err)
	}

	// 总结和解析是两种守卫，互不挤占
	txnSvc := NewTransactionService(newFakeTxnRepo(), e, g, ins)
	if _, _, err := txnSvc.SubmitAI(ctx, "user-1", "coffee 200"); err != nil {
		t.Errorf("enrich guard must be independent: %v", err)
	}

	status, summary, err := svc.Poll(ctx, "user-1", taskID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status != queue.JobPending {
		t.Errorf("status = %s, want pending", status)
	}
	if summary != "" {
		t.Errorf("pending poll has no summary, got %q", summary)
	}
}

func TestSummaryPollUnknownTask(t *testing.T) {
	g, e, ins := newAsyncStack(t)
	svc := NewSummaryService(e, g, ins)

	// 先入队一个保证队列存在
	if _, err := svc.Trigger(context.Background(), "user-1"); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	_, _, err := svc.Poll(context.Background(), "user-1", "no-such-task")
	if !errors.Is(err, queue.ErrTaskNotFound) {
		t.Fatalf("want ErrTaskNotFound, got %v", err)
	}
}
