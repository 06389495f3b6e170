package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leon37/finsight/internal/infrastructure/llm"
	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/repository"
	"gorm.io/gorm"
)

// 简单格式的消息优先走正则，省一次 LLM 调用
// 例如 "500 coffee" / "coffee 500" / "coffee for 500 rs"
var (
	amountFirstPattern = regexp.MustCompile(`^(\d+(?:\.\d{1,2})?)\s*(?:rs|rupees?)?\s+(.+)$`)
	amountLastPattern  = regexp.MustCompile(`^(.+?)\s+(?:for\s+)?(\d+(?:\.\d{1,2})?)\s*(?:rs|rupees?)?$`)
)

// categoryKeywords 关键词猜分类，猜不中就 Other
var categoryKeywords = map[string][]string{
	"Food & Dining":     {"coffee", "tea", "lunch", "dinner", "breakfast", "food", "restaurant", "cafe", "pizza", "burger", "snack"},
	"Transportation":    {"uber", "ola", "taxi", "bus", "train", "metro", "petrol", "fuel", "auto", "cab"},
	"Shopping":          {"amazon", "flipkart", "mall", "store", "shop", "clothes", "shoes"},
	"Entertainment":     {"movie", "netflix", "spotify", "game", "concert", "party"},
	"Bills & Fees":      {"bill", "electricity", "water", "internet", "phone", "recharge"},
	"Health & Wellness": {"gym", "medicine", "doctor", "hospital", "health"},
	"Groceries":         {"grocery", "vegetables", "fruits", "milk", "bread"},
}

// WhatsAppService 聊天机器人渠道：解析消息、执行命令、生成回复文案
// 回复的发送由 controller 负责，这里只产出文本
type WhatsAppService struct {
	userRepo  repository.UserRepo
	txnRepo   repository.TransactionRepo
	llmClient llm.Provider
}

func NewWhatsAppService(userRepo repository.UserRepo, txnRepo repository.TransactionRepo, llmClient llm.Provider) *WhatsAppService {
	return &WhatsAppService{userRepo: userRepo, txnRepo: txnRepo, llmClient: llmClient}
}

// HandleMessage 处理一条入站消息，返回要回复的文案
func (s *WhatsAppService) HandleMessage(ctx context.Context, fromNumber, body, messageSid string) string {
	body = strings.TrimSpace(body)
	if len(body) < 2 {
		return ""
	}
	if len(body) > 1000 {
		return "Message too long. Please keep it under 1000 characters."
	}

	// 1. 号码必须已绑定
	user, err := s.userRepo.GetByWhatsApp(ctx, fromNumber)
	if err != nil {
		slog.Info("未绑定号码的 WhatsApp 消息", "from", fromNumber)
		return "Welcome to FinSight!\nYour WhatsApp is not linked to your account yet. Open the app, go to Profile, and link this number."
	}

	// 2. 命令分发
	lower := strings.ToLower(body)
	switch {
	case lower == "/help":
		return helpText
	case lower == "/transactions":
		return s.recentTransactions(ctx, user.ID)
	case strings.HasPrefix(lower, "/delete"):
		return s.deleteTransaction(ctx, user.ID, body)
	}

	// 3. 普通消息按记账处理，先用 MessageSid 去重（Twilio 会重投）
	if messageSid != "" {
		if _, err := s.txnRepo.FindByMessageSid(ctx, messageSid); err == nil {
			slog.Info("重复的 WhatsApp 消息，忽略", "message_sid", messageSid)
			return ""
		}
	}

	parsed := s.parseExpense(ctx, body)
	if parsed == nil {
		return "Sorry, I didn't understand that.\nTry '500 coffee' to add an expense, or /help for commands."
	}

	// 聊天渠道的记账直接落 completed，解析已经在上面同步做完了
	id, _ := uuid.NewV7()
	txn := &model.Transaction{
		ID:          id.String(),
		UserID:      user.ID,
		Amount:      parsed.Amount,
		Category:    parsed.Category,
		Description: parsed.Description,
		RawText:     body,
		Date:        time.Now().UTC(),
		Status:      model.StatusCompleted,
		Source:      model.SourceWhatsApp,
		MessageSid:  messageSid,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		slog.Error("WhatsApp 记账落库失败", "user_id", user.ID, "err", err)
		return "Something went wrong while saving. Please try again."
	}

	return fmt.Sprintf("Expense added!\nAmount: %.2f\nCategory: %s\nDescription: %s",
		parsed.Amount, parsed.Category, parsed.Description)
}

// parseExpense 正则优先，兜不住再走 LLM；都失败返回 nil
func (s *WhatsAppService) parseExpense(ctx context.Context, body string) *model.ParsedExpense {
	lower := strings.ToLower(body)

	if m := amountFirstPattern.FindStringSubmatch(lower); m != nil {
		if amount, err := strconv.ParseFloat(m[1], 64); err == nil && amount > 0 {
			desc := cleanDescription(m[2])
			return &model.ParsedExpense{Amount: amount, Category: guessCategory(desc), Description: desc}
		}
	}
	if m := amountLastPattern.FindStringSubmatch(lower); m != nil {
		if amount, err := strconv.ParseFloat(m[2], 64); err == nil && amount > 0 {
			desc := cleanDescription(m[1])
			return &model.ParsedExpense{Amount: amount, Category: guessCategory(desc), Description: desc}
		}
	}

	// 正则兜不住的复杂表述交给 LLM
	parsed, err := s.llmClient.ParseExpense(ctx, body, model.PredefinedCategories)
	if err != nil {
		slog.Warn("WhatsApp 消息 LLM 解析失败", "err", err)
		return nil
	}
	return parsed
}

func (s *WhatsAppService) recentTransactions(ctx context.Context, userID string) string {
	list, err := s.txnRepo.List(ctx, userID)
	if err != nil || len(list) == 0 {
		return "No transactions found."
	}
	if len(list) > 5 {
		list = list[:5]
	}

	var sb strings.Builder
	sb.WriteString("Your recent transactions:\n")
	var total float64
	for i, t := range list {
		total += t.Amount
		shortID := t.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		fmt.Fprintf(&sb, "%d. %.2f - %s [%s] %s (ID: %s)\n",
			i+1, t.Amount, t.Description, t.Category, t.Date.Format("02 Jan"), shortID)
	}
	fmt.Fprintf(&sb, "Total (last %d): %.2f\n", len(list), total)
	sb.WriteString("Use /delete <ID> to remove one.")
	return sb.String()
}

func (s *WhatsAppService) deleteTransaction(ctx context.Context, userID, body string) string {
	parts := strings.Fields(body)
	if len(parts) < 2 {
		return "Usage: /delete <transaction_id>\nUse /transactions to see IDs."
	}
	prefix := parts[1]

	// 用户只拿得到 ID 前缀，遍历自己的账单做前缀匹配
	list, err := s.txnRepo.List(ctx, userID)
	if err != nil {
		return "Something went wrong. Please try again."
	}
	for _, t := range list {
		if strings.HasPrefix(t.ID, prefix) {
			if err := s.txnRepo.Delete(ctx, t.ID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					break
				}
				return "Something went wrong. Please try again."
			}
			return fmt.Sprintf("Deleted: %.2f - %s", t.Amount, t.Description)
		}
	}
	return "Transaction not found.\nUse /transactions to see valid IDs."
}

func cleanDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	// 把 "coffee for" 结尾的 for 之类的残留去掉
	desc = strings.TrimSuffix(desc, " for")
	return strings.Title(desc)
}

func guessCategory(desc string) string {
	lower := strings.ToLower(desc)
	for category, words := range categoryKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return category
			}
		}
	}
	return "Other"
}

const helpText = `FinSight WhatsApp commands:

Add an expense:
- "500 coffee"
- "coffee for 500 rs"

View:
- /transactions - recent entries
- /delete <ID> - remove an entry
- /help - this help`
