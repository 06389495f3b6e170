package model

import "fmt"

// ParsedExpense 是 LLM 抽取结果的结构化映射
// 这是一个核心领域模型，它决定了异步解析能把什么写回账单
type ParsedExpense struct {
	// Amount: 消费总金额，必须是正数
	Amount float64 `json:"amount"`

	// Category: 必须严格落在 PredefinedCategories 里
	Category string `json:"category"`

	// Description: 消费内容的简短概括
	Description string `json:"description"`
}

// Validate 语义校验：模型"回答了"但内容不可用时返回错误
// 这类错误重试同样的输入也不会变好，调用方不应该重试
func (p *ParsedExpense) Validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("parsed amount must be positive, got %v", p.Amount)
	}
	if p.Category == "" || p.Description == "" {
		return fmt.Errorf("parsed result missing category or description")
	}
	if !IsValidCategory(p.Category) {
		// 模型没有遵守 Enum 约束，按语义失败处理而不是兜底成 Other，
		// 方便在日志里发现 Prompt 回归
		return fmt.Errorf("parsed category %q is not predefined", p.Category)
	}
	return nil
}

// ExpenseSystemPrompt 定义了抽取任务的输出协议
// 放在这里是为了让 Prompt 和 Struct 紧挨着，修改时能对照
const ExpenseSystemPrompt = `You are an expert expense parsing assistant. Analyze the user's text and extract the expense details.

Rules:
1. Extract exactly three fields: amount (float), category (string), description (string).
2. The category MUST be one of the predefined values given below. Do not invent categories. If nothing fits, choose "Other".
3. The description should be a concise summary of the expense.
4. Output MUST be a single valid JSON object and nothing else. No markdown, no code fences.

Example:
User text: "lunch with the team yesterday for 1500.50 rupees at the cafe"
Output: {"amount": 1500.50, "category": "Food & Dining", "description": "Lunch with team at the cafe"}`
