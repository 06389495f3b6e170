package model

import (
	"strings"
)

// PredefinedCategories 预定义的分类列表，作为 AI 的参考
// 账单分类是封闭集合，AI 解析出来的分类必须严格落在这里面
var PredefinedCategories = []string{
	"Food & Dining", "Transportation", "Utilities", "Housing",
	"Shopping", "Entertainment", "Health & Wellness", "Groceries",
	"Bills & Fees", "Travel", "Education", "Other",
}

// IsValidCategory 判断分类是否在预定义集合里
func IsValidCategory(category string) bool {
	for _, c := range PredefinedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// GetCategoryPrompt 生成 Prompt 用的分类提示词
func GetCategoryPrompt() string {
	return strings.Join(PredefinedCategories, ", ")
}
