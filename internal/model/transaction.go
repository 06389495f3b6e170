package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionStatus 账单记录的生命周期状态
// 状态机是单向的：processing -> completed / failed，不会自动回到 processing
type TransactionStatus string

const (
	// StatusCompleted 终态：amount/category/description 从此刻起才可信
	StatusCompleted TransactionStatus = "completed"
	// StatusProcessing AI 模式的初始态，异步解析还没出结果
	StatusProcessing TransactionStatus = "processing"
	// StatusFailed 终态：failure_reason 记录人类可读的原因
	StatusFailed TransactionStatus = "failed"
)

// 记账来源，只是溯源信息，不影响核心流程
const (
	SourceDirect   = "direct"
	SourceWhatsApp = "whatsapp"
)

// descriptionPreviewLen AI 模式下占位描述截取的原文长度
const descriptionPreviewLen = 40

// Transaction 是映射数据库表的结构体
type Transaction struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID      string  `gorm:"type:varchar(36);index" json:"user_id"`
	Amount      float64 `gorm:"type:decimal(10,2)" json:"amount"`
	Category    string  `gorm:"type:varchar(64)" json:"category"`
	Description string  `gorm:"type:varchar(255)" json:"description"`

	// RawText 只有 AI 模式才有值，保留原文用于异步解析和排查问题
	RawText string `gorm:"type:text" json:"raw_text,omitempty"`

	// Date 是消费发生的时间，不是入库时间
	Date   time.Time         `gorm:"index" json:"date"`
	Status TransactionStatus `gorm:"type:varchar(16);index" json:"status"`

	// 失败信息，仅 status == failed 时有值
	FailureReason string `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	ErrorDetails  string `gorm:"type:varchar(512)" json:"error_details,omitempty"`

	Source string `gorm:"type:varchar(16)" json:"source,omitempty"`

	// MessageSid 是 WhatsApp 渠道的消息 ID，用于去重
	MessageSid string `gorm:"type:varchar(64);index" json:"-"`
}

// TableName 强制指定表名
func (Transaction) TableName() string {
	return "transactions"
}

// NewManualTransaction 手动记账，直接落在 completed 终态
func NewManualTransaction(userID string, amount float64, category, description string, date time.Time) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	if !IsValidCategory(category) {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	id, _ := uuid.NewV7()
	return &Transaction{
		ID:          id.String(),
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date,
		Status:      StatusCompleted,
		Source:      SourceDirect,
	}, nil
}

// NewAITransaction AI 记账的占位记录：amount=0, category=Other, status=processing
// 原文完整保留在 RawText，description 只是一个截断的预览
func NewAITransaction(userID, text string) *Transaction {
	preview := text
	if len(preview) > descriptionPreviewLen {
		preview = preview[:descriptionPreviewLen] + "..."
	}

	id, _ := uuid.NewV7()
	return &Transaction{
		ID:          id.String(),
		UserID:      userID,
		Amount:      0,
		Category:    "Other",
		Description: "Processing: " + preview,
		RawText:     text,
		Date:        time.Now().UTC(),
		Status:      StatusProcessing,
		Source:      SourceDirect,
	}
}
