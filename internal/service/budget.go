package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/repository"
	"gorm.io/gorm"
)

// budgetMaxLimit 预算上限的上限
const budgetMaxLimit = 10_000_000

// ErrBudgetExists 同分类同月份的预算已存在，controller 映射成 409
var ErrBudgetExists = errors.New("budget for this category and month already exists")

type BudgetService struct {
	budgetRepo repository.BudgetRepo
	txnRepo    repository.TransactionRepo
}

func NewBudgetService(budgetRepo repository.BudgetRepo, txnRepo repository.TransactionRepo) *BudgetService {
	return &BudgetService{budgetRepo: budgetRepo, txnRepo: txnRepo}
}

// Create 创建预算
// 时间窗口限制：不能给过去的月份建，最多提前一年
func (s *BudgetService) Create(ctx context.Context, userID, category string, limit float64, month, year int) (*model.Budget, error) {
	// 1. 字段校验
	if !model.IsValidCategory(category) {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if limit <= 0 {
		return nil, errors.New("budget limit must be greater than zero")
	}
	if limit > budgetMaxLimit {
		return nil, fmt.Errorf("budget limit too large, maximum is %d", budgetMaxLimit)
	}
	if month < 1 || month > 12 {
		return nil, errors.New("month must be between 1 and 12")
	}

	// 2. 时间窗口校验
	now := time.Now().UTC()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return nil, errors.New("cannot create budgets for past months")
	}
	if year > now.Year()+1 || (year == now.Year()+1 && month > int(now.Month())) {
		return nil, errors.New("cannot create budgets more than 1 year in advance")
	}

	// 3. 查重
	if _, err := s.budgetRepo.FindScope(ctx, userID, category, month, year); err == nil {
		return nil, ErrBudgetExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 4. 落库，金额规整到两位小数
	budget := &model.Budget{
		UserID:      userID,
		Category:    category,
		Month:       month,
		Year:        year,
		LimitAmount: math.Round(limit*100) / 100,
	}
	if err := s.budgetRepo.Create(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// ListCurrentMonth 取当月预算，并补上每个分类已经花掉的金额
// 只统计 completed 的账单，processing/failed 不算消费
func (s *BudgetService) ListCurrentMonth(ctx context.Context, userID string) ([]model.BudgetWithSpend, error) {
	now := time.Now().UTC()
	budgets, err := s.budgetRepo.ListMonth(ctx, userID, int(now.Month()), now.Year())
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	sums, err := s.txnRepo.SumByCategory(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	spent := make(map[string]float64, len(sums))
	for _, row := range sums {
		spent[row.Category] = row.Total
	}

	out := make([]model.BudgetWithSpend, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, model.BudgetWithSpend{
			Budget:       b,
			CurrentSpend: spent[b.Category],
		})
	}
	return out, nil
}
