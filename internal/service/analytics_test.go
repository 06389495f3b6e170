package service

import (
	"context"
	"testing"
	"time"

	"github.com/leon37/finsight/internal/repository"
)

func TestAnalyticsReport(t *testing.T) {
	repo := newFakeTxnRepo()
	repo.sumTotal = 1234.56
	repo.catSums = []repository.CategorySum{{Category: "Food & Dining", Total: 800}}
	repo.daySums = []repository.DaySum{{Day: "2025-06-01", Total: 300}}

	svc := NewAnalyticsService(repo)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)

	report, err := svc.Report(context.Background(), "user-1", start, end)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalSpendInRange != 1234.56 {
		t.Errorf("total = %v", report.TotalSpendInRange)
	}
	if len(report.SpendingByCategory) != 1 || report.SpendingByCategory[0].Category != "Food & Dining" {
		t.Errorf("byCategory = %+v", report.SpendingByCategory)
	}
	if len(report.SpendingOverTime) != 1 {
		t.Errorf("overTime = %+v", report.SpendingOverTime)
	}
	if report.StartDate != start.Format(time.RFC3339) {
		t.Errorf("startDate = %s", report.StartDate)
	}
}

func TestAnalyticsReport_DefaultsToCurrentMonth(t *testing.T) {
	repo := newFakeTxnRepo()
	svc := NewAnalyticsService(repo)

	if _, err := svc.Report(context.Background(), "user-1", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("report: %v", err)
	}

	now := time.Now().UTC()
	wantStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if !repo.lastSumStart.Equal(wantStart) {
		t.Errorf("default start = %v, want first of month %v", repo.lastSumStart, wantStart)
	}
	if repo.lastSumEnd.Before(wantStart) {
		t.Errorf("default end %v before start", repo.lastSumEnd)
	}
}
