package llm

import (
	"context"
	"errors"

	"github.com/leon37/finsight/internal/model"
)

// ErrUnparseable 表示模型正常返回了，但内容抽不出有效的账单信息。
// 同样的文本重试同样的模型结果不会变，调用方不应该对这个错误做重试。
// 网络/超时/5xx 之类的暂时性错误不会带这个标记。
var ErrUnparseable = errors.New("llm: response is not a usable expense")

// Provider 定义了 LLM 的通用行为
type Provider interface {
	// ParseExpense 接收自由文本，返回结构化的抽取结果
	// categories 是允许的分类集合，会注入到 Prompt 里
	ParseExpense(ctx context.Context, text string, categories []string) (*model.ParsedExpense, error)

	// Summarize 根据账单明细生成一段消费总结
	Summarize(ctx context.Context, prompt string) (string, error)
}
