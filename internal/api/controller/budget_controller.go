package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/api/response"
	"github.com/leon37/finsight/internal/service"
)

// BudgetController 预算管理
type BudgetController struct {
	service *service.BudgetService
}

func NewBudgetController(s *service.BudgetService) *BudgetController {
	return &BudgetController{service: s}
}

type CreateBudgetRequest struct {
	Category string  `json:"category" binding:"required"`
	Limit    float64 `json:"limit" binding:"required"`
	Month    int     `json:"month" binding:"required"`
	Year     int     `json:"year" binding:"required"`
}

// Create 创建预算
// @Summary 创建预算
// @Description 给某个分类设置某月的消费上限，同分类同月份只能有一条
// @Tags Budget
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBudgetRequest true "预算参数"
// @Success 201 {object} response.Response{data=model.Budget}
// @Failure 400 {object} response.Response "参数错误"
// @Failure 409 {object} response.Response "预算已存在"
// @Router /budgets [post]
func (ctrl *BudgetController) Create(c *gin.Context) {
	userID := c.GetString("userID")

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	budget, err := ctrl.service.Create(c.Request.Context(), userID, req.Category, req.Limit, req.Month, req.Year)
	if err != nil {
		if errors.Is(err, service.ErrBudgetExists) {
			response.Error(c, http.StatusConflict, err.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, budget)
}

// List 当月预算列表
// @Summary 当月预算
// @Description 返回当月全部预算，附带各分类已消费金额
// @Tags Budget
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.BudgetWithSpend}
// @Router /budgets [get]
func (ctrl *BudgetController) List(c *gin.Context) {
	userID := c.GetString("userID")

	list, err := ctrl.service.ListCurrentMonth(c.Request.Context(), userID)
	if err != nil {
		slog.Error("获取预算列表失败", "err", err)
		response.Error(c, http.StatusInternalServerError, "failed to list budgets")
		return
	}
	response.Success(c, list)
}
