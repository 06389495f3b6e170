package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/api/response"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/service"
)

// AIController 消费总结的触发和轮询
type AIController struct {
	service *service.SummaryService
}

func NewAIController(s *service.SummaryService) *AIController {
	return &AIController{service: s}
}

// TriggerSummary 触发一次 AI 消费总结
// @Summary 生成消费总结
// @Description 入队一个总结任务并立刻返回任务句柄；同一用户同时只允许一个在跑
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Response
// @Failure 429 {object} response.Response "已有总结任务在跑"
// @Router /ai/summary [post]
func (ctrl *AIController) TriggerSummary(c *gin.Context) {
	userID := c.GetString("userID")

	taskID, err := ctrl.service.Trigger(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrActiveJob) {
			response.Error(c, http.StatusTooManyRequests, err.Error())
			return
		}
		slog.Error("总结任务入队失败", "user_id", userID, "err", err)
		response.Error(c, http.StatusInternalServerError, "failed to start summary generation")
		return
	}

	response.SuccessWithStatus(c, http.StatusAccepted, gin.H{"task_id": taskID})
}

// SummaryResult 轮询总结任务
// @Summary 轮询消费总结
// @Description 终态时顺带清掉并发守卫；失败只返回高层错误，不泄漏内部诊断
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Param task_id path string true "任务句柄"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "任务不存在"
// @Router /ai/summary/result/{task_id} [get]
func (ctrl *AIController) SummaryResult(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("task_id")

	status, summary, err := ctrl.service.Poll(c.Request.Context(), userID, taskID)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			response.Error(c, http.StatusNotFound, "task not found")
			return
		}
		slog.Error("轮询总结任务失败", "task_id", taskID, "err", err)
		response.Error(c, http.StatusInternalServerError, "failed to query task status")
		return
	}

	switch status {
	case queue.JobCompleted:
		response.Success(c, gin.H{"status": status, "summary": summary})
	case queue.JobFailed:
		response.Error(c, http.StatusInternalServerError, "failed to generate AI summary, please try again later")
	default:
		response.Success(c, gin.H{"status": status})
	}
}
