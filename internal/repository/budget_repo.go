package repository

import (
	"context"

	"github.com/leon37/finsight/internal/model"
	"gorm.io/gorm"
)

// BudgetRepo 定义接口 (为了以后方便 Mock)
type BudgetRepo interface {
	Create(ctx context.Context, budget *model.Budget) error
	// FindScope 查某用户某分类某年月是否已经有预算
	FindScope(ctx context.Context, userID, category string, month, year int) (*model.Budget, error)
	ListMonth(ctx context.Context, userID string, month, year int) ([]model.Budget, error)
}

type budgetRepo struct {
	db *gorm.DB
}

func NewBudgetRepo(db *gorm.DB) BudgetRepo {
	return &budgetRepo{db: db}
}

func (r *budgetRepo) Create(ctx context.Context, budget *model.Budget) error {
	return r.db.WithContext(ctx).Create(budget).Error
}

func (r *budgetRepo) FindScope(ctx context.Context, userID, category string, month, year int) (*model.Budget, error) {
	var b model.Budget
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND month = ? AND year = ?",
			userID, category, month, year).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *budgetRepo) ListMonth(ctx context.Context, userID string, month, year int) ([]model.Budget, error) {
	var list []model.Budget
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Order("category ASC").
		Find(&list).Error
	return list, err
}
