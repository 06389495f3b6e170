package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/api/response"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/service"
	"gorm.io/gorm"
)

// TransactionController 账单相关的 HTTP 入口，包括提交网关和轮询
type TransactionController struct {
	service *service.TransactionService
}

// NewTransactionController 构造函数
func NewTransactionController(s *service.TransactionService) *TransactionController {
	return &TransactionController{service: s}
}

// AddTransactionRequest 提交网关的统一入参，mode 决定必填字段
type AddTransactionRequest struct {
	Mode        string  `json:"mode" binding:"required,oneof=manual ai"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description" binding:"max=200"`
	Text        string  `json:"text" binding:"max=200"`
	Date        string  `json:"date"` // 可选，格式 2006-01-02
}

// SubmitAIResponse AI 模式返回任务句柄，客户端拿它轮询
type SubmitAIResponse struct {
	TaskID        string `json:"task_id"`
	TransactionID string `json:"transaction_id"`
}

// Add 记一笔账
// @Summary 记账 (手动或 AI)
// @Description manual 模式同步落库返回 201；ai 模式落占位记录并入队，返回 202 和任务句柄
// @Tags Transaction
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddTransactionRequest true "记账参数"
// @Success 201 {object} response.Response{data=model.Transaction} "manual 模式"
// @Success 202 {object} response.Response{data=SubmitAIResponse} "ai 模式"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 429 {object} response.Response "已有解析任务在跑"
// @Router /transactions [post]
func (ctrl *TransactionController) Add(c *gin.Context) {
	userID := c.GetString("userID")

	var req AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	switch req.Mode {
	case "manual":
		// manual 模式三个字段都必填
		if req.Amount == 0 || req.Category == "" || req.Description == "" {
			response.Error(c, http.StatusBadRequest, "amount, category and description are required for manual mode")
			return
		}

		var date time.Time
		if req.Date != "" {
			t, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				response.Error(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
				return
			}
			date = t
		}

		txn, err := ctrl.service.SubmitManual(c.Request.Context(), userID, req.Amount, req.Category, req.Description, date)
		if err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		response.SuccessWithStatus(c, http.StatusCreated, txn)

	case "ai":
		if req.Text == "" {
			response.Error(c, http.StatusBadRequest, "text is required for ai mode")
			return
		}

		txn, taskID, err := ctrl.service.SubmitAI(c.Request.Context(), userID, req.Text)
		if err != nil {
			if errors.Is(err, service.ErrActiveJob) {
				response.Error(c, http.StatusTooManyRequests, err.Error())
				return
			}
			slog.Error("AI 记账提交失败", "user_id", userID, "err", err)
			response.Error(c, http.StatusInternalServerError, "failed to submit expense for processing")
			return
		}
		response.SuccessWithStatus(c, http.StatusAccepted, SubmitAIResponse{
			TaskID:        taskID,
			TransactionID: txn.ID,
		})
	}
}

// PollResult 轮询解析任务状态
// @Summary 轮询解析任务
// @Description 纯只读；任务失败返回 500 让客户端稍后重试，不泄漏内部诊断
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Param task_id path string true "任务句柄"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "任务不存在"
// @Router /transactions/result/{task_id} [get]
func (ctrl *TransactionController) PollResult(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("task_id")

	status, err := ctrl.service.PollEnrichment(c.Request.Context(), userID, taskID)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			response.Error(c, http.StatusNotFound, "task not found")
			return
		}
		slog.Error("轮询任务状态失败", "task_id", taskID, "err", err)
		response.Error(c, http.StatusInternalServerError, "failed to query task status")
		return
	}

	if status == queue.JobFailed {
		// 失败细节在账单记录上，这里只给高层信号
		response.Error(c, http.StatusInternalServerError, "processing failed, please try again later")
		return
	}
	response.Success(c, gin.H{"status": status})
}

// Status 查单条账单的状态
// @Summary 账单状态
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Param id path string true "账单 ID"
// @Success 200 {object} response.Response
// @Router /transactions/{id}/status [get]
func (ctrl *TransactionController) Status(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	status, err := ctrl.service.Status(c.Request.Context(), userID, id)
	if err != nil {
		ctrl.writeOwnedErr(c, err)
		return
	}
	response.Success(c, gin.H{"status": status})
}

// Get 取单条账单
// @Summary 账单详情
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Param id path string true "账单 ID"
// @Success 200 {object} response.Response{data=model.Transaction}
// @Router /transactions/{id} [get]
func (ctrl *TransactionController) Get(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	txn, err := ctrl.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		ctrl.writeOwnedErr(c, err)
		return
	}
	response.Success(c, txn)
}

// List 账单列表
// @Summary 账单列表
// @Description 当前用户的全部账单，按消费时间倒序
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Transaction}
// @Router /transactions [get]
func (ctrl *TransactionController) List(c *gin.Context) {
	userID := c.GetString("userID")

	list, err := ctrl.service.List(c.Request.Context(), userID)
	if err != nil {
		slog.Error("获取账单列表失败", "err", err)
		response.Error(c, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	response.Success(c, list)
}

// Delete 删除账单
// @Summary 删除账单
// @Description 仅限本人操作
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Param id path string true "账单 ID"
// @Success 200 {object} response.Response
// @Router /transactions/{id} [delete]
func (ctrl *TransactionController) Delete(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	if err := ctrl.service.Delete(c.Request.Context(), userID, id); err != nil {
		ctrl.writeOwnedErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "transaction deleted"})
}

// Categories 预定义分类列表 (无需鉴权)
// @Summary 分类列表
// @Tags Transaction
// @Produce json
// @Success 200 {object} response.Response
// @Router /transactions/categories [get]
func (ctrl *TransactionController) Categories(c *gin.Context) {
	response.Success(c, model.PredefinedCategories)
}

// writeOwnedErr 归属权相关错误的统一映射
func (ctrl *TransactionController) writeOwnedErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, http.StatusNotFound, "transaction not found")
	case errors.Is(err, service.ErrNotOwner):
		response.Error(c, http.StatusForbidden, "not allowed")
	default:
		slog.Error("账单操作失败", "err", err)
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
