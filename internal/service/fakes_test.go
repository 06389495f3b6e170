package service

import (
	"context"
	"sync"
	"time"

	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/repository"
	"gorm.io/gorm"
)

// 内存版仓储替身，service 层测试共用

type fakeTxnRepo struct {
	mu   sync.Mutex
	txns map[string]*model.Transaction

	createErr error
	failCalls int

	sumTotal float64
	catSums  []repository.CategorySum
	daySums  []repository.DaySum

	lastSumStart time.Time
	lastSumEnd   time.Time
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{txns: map[string]*model.Transaction{}}
}

func (f *fakeTxnRepo) put(txn *model.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *txn
	f.txns[txn.ID] = &cp
}

func (f *fakeTxnRepo) get(id string) *model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.txns[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

func (f *fakeTxnRepo) Create(ctx context.Context, txn *model.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.put(txn)
	return nil
}

func (f *fakeTxnRepo) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	if t := f.get(id); t != nil {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTxnRepo) List(ctx context.Context, userID string) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, t := range f.txns {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTxnRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.txns[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.txns, id)
	return nil
}

func (f *fakeTxnRepo) CompleteEnrichment(ctx context.Context, id string, parsed *model.ParsedExpense) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok || t.Status != model.StatusProcessing {
		return false, nil
	}
	t.Amount = parsed.Amount
	t.Category = parsed.Category
	t.Description = parsed.Description
	t.Status = model.StatusCompleted
	return true, nil
}

func (f *fakeTxnRepo) FailEnrichment(ctx context.Context, id, reason, details string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCalls++
	t, ok := f.txns[id]
	if !ok || t.Status != model.StatusProcessing {
		return false, nil
	}
	t.Status = model.StatusFailed
	t.FailureReason = reason
	t.ErrorDetails = details
	return true, nil
}

func (f *fakeTxnRepo) SweepStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	return 0, nil
}

func (f *fakeTxnRepo) FindByMessageSid(ctx context.Context, sid string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.txns {
		if t.MessageSid == sid {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTxnRepo) SumInRange(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSumStart = start
	f.lastSumEnd = end
	return f.sumTotal, nil
}

func (f *fakeTxnRepo) SumByCategory(ctx context.Context, userID string, start, end time.Time) ([]repository.CategorySum, error) {
	return f.catSums, nil
}

func (f *fakeTxnRepo) SumByDay(ctx context.Context, userID string, start, end time.Time) ([]repository.DaySum, error) {
	return f.daySums, nil
}

func (f *fakeTxnRepo) ListCompletedInRange(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, t := range f.txns {
		if t.UserID == userID && t.Status == model.StatusCompleted {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByWhatsApp(ctx context.Context, number string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.WhatsAppVerified && (u.WhatsAppNumber == number || "+"+u.WhatsAppNumber == number || u.WhatsAppNumber == "+"+number) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeBudgetRepo struct {
	mu      sync.Mutex
	budgets []*model.Budget
}

func newFakeBudgetRepo() *fakeBudgetRepo {
	return &fakeBudgetRepo{}
}

func (f *fakeBudgetRepo) Create(ctx context.Context, budget *model.Budget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgets = append(f.budgets, budget)
	return nil
}

func (f *fakeBudgetRepo) FindScope(ctx context.Context, userID, category string, month, year int) (*model.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.budgets {
		if b.UserID == userID && b.Category == category && b.Month == month && b.Year == year {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBudgetRepo) ListMonth(ctx context.Context, userID string, month, year int) ([]model.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Budget
	for _, b := range f.budgets {
		if b.UserID == userID && b.Month == month && b.Year == year {
			out = append(out, *b)
		}
	}
	return out, nil
}

// stubLLM 可编程的 LLM 替身
type stubLLM struct {
	parsed   *model.ParsedExpense
	parseErr error
	summary  string
	sumErr   error
}

func (s *stubLLM) ParseExpense(ctx context.Context, text string, categories []string) (*model.ParsedExpense, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return s.parsed, nil
}

func (s *stubLLM) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.sumErr != nil {
		return "", s.sumErr
	}
	return s.summary, nil
}
