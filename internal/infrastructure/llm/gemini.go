package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leon37/finsight/internal/model"
	"github.com/sashabaranov/go-openai"
)

// GeminiClient 通过 OpenAI 兼容端点调用 Gemini
// 换成 DeepSeek 或别的兼容服务只需要改 base_url 和 model
type GeminiClient struct {
	modelName string
	client    *openai.Client
}

func NewGeminiClient(apiKey, baseURL, modelName string) *GeminiClient {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &GeminiClient{
		modelName: modelName,
		client:    openai.NewClientWithConfig(config),
	}
}

// ParseExpense 单次抽取，不走流式
// 错误分两类：传输层错误原样返回（可重试）；返回了但解析不出来的包上 ErrUnparseable（不可重试）
func (g *GeminiClient) ParseExpense(ctx context.Context, text string, categories []string) (*model.ParsedExpense, error) {
	sysPrompt := model.ExpenseSystemPrompt +
		"\n\nPredefined categories: [" + strings.Join(categories, ", ") + "]"

	req := openai.ChatCompletionRequest{
		Model: g.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sysPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		// 强制 JSON 模式，低温有助于格式稳定
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		// 网络/超时/配额，交给上层按暂时性失败处理
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrUnparseable)
	}

	raw := resp.Choices[0].Message.Content
	clean := cleanModelJSON(raw)

	var parsed model.ParsedExpense
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		slog.Warn("LLM 返回的不是合法 JSON", "raw", truncate(raw, 200))
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if err := parsed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return &parsed, nil
}

// Summarize 自由文本总结，给月度消费报告用
func (g *GeminiClient) Summarize(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a personal finance assistant. Write a short, friendly spending summary in plain text. No markdown."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.5,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUnparseable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// cleanModelJSON 容忍模型不听话把 JSON 包在 ```json ... ``` 里的情况
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// 去掉第一行 (``` 或 ```json)
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
