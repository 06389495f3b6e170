package service

import (
	"context"
	"time"

	"github.com/leon37/finsight/internal/repository"
)

// AnalyticsReport 一段时间内的消费报表
type AnalyticsReport struct {
	StartDate          string                   `json:"startDate"`
	EndDate            string                   `json:"endDate"`
	TotalSpendInRange  float64                  `json:"totalSpendInRange"`
	SpendingByCategory []repository.CategorySum `json:"spendingByCategory"`
	SpendingOverTime   []repository.DaySum      `json:"spendingOverTime"`
}

// AnalyticsService 纯只读聚合，只统计 completed 的账单
type AnalyticsService struct {
	txnRepo repository.TransactionRepo
}

func NewAnalyticsService(txnRepo repository.TransactionRepo) *AnalyticsService {
	return &AnalyticsService{txnRepo: txnRepo}
}

// Report 生成报表；start 为零值时默认当月第一天
func (s *AnalyticsService) Report(ctx context.Context, userID string, start, end time.Time) (*AnalyticsReport, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	total, err := s.txnRepo.SumInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.txnRepo.SumByCategory(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	overTime, err := s.txnRepo.SumByDay(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	return &AnalyticsReport{
		StartDate:          start.Format(time.RFC3339),
		EndDate:            end.Format(time.RFC3339),
		TotalSpendInRange:  total,
		SpendingByCategory: byCategory,
		SpendingOverTime:   overTime,
	}, nil
}
