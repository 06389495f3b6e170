package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/infrastructure/email"
	"github.com/leon37/finsight/internal/infrastructure/queue"
)

// EmailHandler 异步投递邮件，失败由 asynq 按任务的 MaxRetry 重试
type EmailHandler struct {
	sender email.Sender
}

func NewEmailHandler(sender email.Sender) *EmailHandler {
	return &EmailHandler{sender: sender}
}

func (h *EmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p queue.EmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("email: bad payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, p.To, p.Subject, p.HTML); err != nil {
		return fmt.Errorf("email: send to %s: %w", p.To, err)
	}

	slog.Info("邮件已发送", "to", p.To, "subject", p.Subject)
	return nil
}
