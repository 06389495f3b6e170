package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender 邮件发送的抽象，worker 依赖这个接口方便测试
type Sender interface {
	Send(ctx context.Context, to, subject, htmlContent string) error
}

// SendGridSender 走 SendGrid 的实现
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
}

func NewSendGridSender(apiKey, fromEmail string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
	}
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlContent string) error {
	from := mail.NewEmail("FinSight", s.fromEmail)
	toAddr := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, toAddr, "", htmlContent)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}
