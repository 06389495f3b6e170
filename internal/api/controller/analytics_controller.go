package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/api/response"
	"github.com/leon37/finsight/internal/service"
)

// AnalyticsController 消费报表
type AnalyticsController struct {
	service *service.AnalyticsService
}

func NewAnalyticsController(s *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{service: s}
}

// Report 消费报表
// @Summary 消费报表
// @Description 总额、分类聚合、逐日趋势；不传时间默认当月，只统计 completed 的账单
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "起始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=service.AnalyticsReport}
// @Failure 400 {object} response.Response "日期格式错误"
// @Router /analytics/report [get]
func (ctrl *AnalyticsController) Report(c *gin.Context) {
	userID := c.GetString("userID")

	var start, end time.Time
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		start = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		// 包含 end_date 当天
		end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		response.Error(c, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	report, err := ctrl.service.Report(c.Request.Context(), userID, start, end)
	if err != nil {
		slog.Error("生成报表失败", "err", err)
		response.Error(c, http.StatusInternalServerError, "failed to generate report")
		return
	}
	response.Success(c, report)
}
