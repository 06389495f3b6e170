package repository

import (
	"context"
	"time"

	"github.com/leon37/finsight/internal/model"
	"gorm.io/gorm"
)

// errDetailsMaxLen 落库前截断诊断信息，防止超长的上游报错撑爆字段
const errDetailsMaxLen = 500

// CategorySum 分类聚合结果
type CategorySum struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// DaySum 按天聚合结果
type DaySum struct {
	Day   string  `json:"date"` // YYYY-MM-DD
	Total float64 `json:"total"`
}

// TransactionRepo 定义接口 (为了以后方便 Mock)
type TransactionRepo interface {
	Create(ctx context.Context, txn *model.Transaction) error
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	List(ctx context.Context, userID string) ([]model.Transaction, error)
	Delete(ctx context.Context, id string) error

	// CompleteEnrichment 把解析结果写回记录，仅当记录还在 processing 时生效
	// 返回 false 表示记录已经是终态（队列重放），调用方应当静默跳过
	CompleteEnrichment(ctx context.Context, id string, parsed *model.ParsedExpense) (bool, error)

	// FailEnrichment 同样带 status=processing 前置条件，终态不会被覆盖
	FailEnrichment(ctx context.Context, id, reason, details string) (bool, error)

	// SweepStale 兜底：把卡在 processing 超过时限的记录统一置为 failed
	SweepStale(ctx context.Context, before time.Time, reason string) (int64, error)

	// FindByMessageSid WhatsApp 渠道按消息 ID 去重
	FindByMessageSid(ctx context.Context, sid string) (*model.Transaction, error)

	// 聚合查询，只统计 completed 的记录
	SumInRange(ctx context.Context, userID string, start, end time.Time) (float64, error)
	SumByCategory(ctx context.Context, userID string, start, end time.Time) ([]CategorySum, error)
	SumByDay(ctx context.Context, userID string, start, end time.Time) ([]DaySum, error)
	ListCompletedInRange(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error)
}

// transactionRepo 实现
type transactionRepo struct {
	db *gorm.DB
}

// NewTransactionRepo 构造函数
func NewTransactionRepo(db *gorm.DB) TransactionRepo {
	return &transactionRepo{db: db}
}

// Create 插入一条记录
func (r *transactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	// WithContext 确保请求超时能传递到数据库层
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepo) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	var txn model.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepo) List(ctx context.Context, userID string) ([]model.Transaction, error) {
	var list []model.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&list).Error
	return list, err
}

func (r *transactionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Transaction{}, "id = ?", id).Error
}

// CompleteEnrichment 条件更新，这是核心流程里唯一的成功转移
// WHERE status = 'processing' 让它在 at-least-once 队列重放下天然幂等
func (r *transactionRepo) CompleteEnrichment(ctx context.Context, id string, parsed *model.ParsedExpense) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.StatusProcessing).
		Updates(map[string]interface{}{
			"amount":      parsed.Amount,
			"category":    parsed.Category,
			"description": parsed.Description,
			"status":      model.StatusCompleted,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *transactionRepo) FailEnrichment(ctx context.Context, id, reason, details string) (bool, error) {
	if len(details) > errDetailsMaxLen {
		details = details[:errDetailsMaxLen]
	}
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.StatusProcessing).
		Updates(map[string]interface{}{
			"status":         model.StatusFailed,
			"failure_reason": reason,
			"error_details":  details,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *transactionRepo) SweepStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("status = ? AND created_at < ?", model.StatusProcessing, before).
		Updates(map[string]interface{}{
			"status":         model.StatusFailed,
			"failure_reason": reason,
		})
	return res.RowsAffected, res.Error
}

func (r *transactionRepo) FindByMessageSid(ctx context.Context, sid string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).Where("message_sid = ?", sid).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepo) SumInRange(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ? AND date >= ? AND date <= ?",
			userID, model.StatusCompleted, start, end).
		Scan(&total).Error
	return total, err
}

func (r *transactionRepo) SumByCategory(ctx context.Context, userID string, start, end time.Time) ([]CategorySum, error) {
	var rows []CategorySum
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("category, SUM(amount) AS total").
		Where("user_id = ? AND status = ? AND date >= ? AND date <= ?",
			userID, model.StatusCompleted, start, end).
		Group("category").
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *transactionRepo) SumByDay(ctx context.Context, userID string, start, end time.Time) ([]DaySum, error) {
	var rows []DaySum
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("DATE_FORMAT(date, '%Y-%m-%d') AS day, SUM(amount) AS total").
		Where("user_id = ? AND status = ? AND date >= ? AND date <= ?",
			userID, model.StatusCompleted, start, end).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *transactionRepo) ListCompletedInRange(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error) {
	var list []model.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND date >= ? AND date <= ?",
			userID, model.StatusCompleted, start, end).
		Order("date DESC").
		Find(&list).Error
	return list, err
}
