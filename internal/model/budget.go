package model

import "time"

// Budget 某个用户在某年某月对某个分类的预算上限
// user_id + category + month + year 唯一，重复创建返回 409
type Budget struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   string `gorm:"type:varchar(36);uniqueIndex:idx_budget_scope" json:"user_id"`
	Category string `gorm:"type:varchar(64);uniqueIndex:idx_budget_scope" json:"category"`
	Month    int    `gorm:"uniqueIndex:idx_budget_scope" json:"month"`
	Year     int    `gorm:"uniqueIndex:idx_budget_scope" json:"year"`

	// limit 是 MySQL 保留字，落库列名换一个
	LimitAmount float64 `gorm:"type:decimal(12,2);column:limit_amount" json:"limit"`
}

// TableName 强制指定表名
func (Budget) TableName() string {
	return "budgets"
}

// BudgetWithSpend 预算 + 当月已发生的消费，给列表接口用
type BudgetWithSpend struct {
	Budget
	CurrentSpend float64 `json:"current_spend"`
}
