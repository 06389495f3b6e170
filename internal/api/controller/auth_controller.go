package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/api/response"
	"github.com/leon37/finsight/internal/service"
)

// AuthController 处理用户认证
type AuthController struct {
	authService *service.AuthService
}

// NewAuthController 构造函数
func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

// ==========================================
// DTOs (请求/响应参数定义)
// ==========================================

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// ==========================================
// Handlers
// ==========================================

// Register 用户注册
// @Summary 用户注册
// @Description 创建新用户，密码加密存储，注册成功后异步发送欢迎邮件
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册参数"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response "参数错误"
// @Failure 409 {object} response.Response "邮箱已存在"
// @Router /auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req RegisterRequest

	// 1. 参数校验
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Register params invalid", "err", err)
		response.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	// 2. 业务逻辑
	err := ctrl.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Error(c, http.StatusConflict, err.Error())
			return
		}
		slog.Error("Register failed", "email", req.Email, "err", err)
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	// 3. 成功响应
	slog.Info("User registered", "email", req.Email)
	response.SuccessWithStatus(c, http.StatusCreated, nil)
}

// Login 用户登录
// @Summary 用户登录
// @Description 校验账号密码，颁发 JWT Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录参数"
// @Success 200 {object} response.Response{data=LoginResponse} "包含 Token 和 UserID"
// @Failure 401 {object} response.Response "账号或密码错误"
// @Router /auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req LoginRequest

	// 1. 参数校验
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}

	// 2. 业务逻辑
	token, userID, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Email)
		// 为了防止暴力破解，提示信息模糊化
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// 3. 成功响应
	slog.Info("User logged in", "userID", userID)
	response.Success(c, LoginResponse{
		Token:  token,
		UserID: userID,
	})
}

// Logout 登出，吊销当前 Token
// @Summary 登出
// @Description 把当前 Token 加进吊销黑名单，TTL 为剩余有效期
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (ctrl *AuthController) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	if jti == "" {
		response.Success(c, nil) // 老 Token 没有 jti，吊销不了，直接当成功
		return
	}

	exp := time.Now().Add(24 * time.Hour)
	if v, ok := c.Get("tokenExp"); ok {
		if t, ok := v.(time.Time); ok {
			exp = t
		}
	}

	if err := ctrl.authService.Logout(c.Request.Context(), jti, exp); err != nil {
		slog.Error("Logout failed", "err", err)
		response.Error(c, http.StatusInternalServerError, "logout failed")
		return
	}
	response.Success(c, nil)
}

// Profile 当前用户信息
// @Summary 用户信息
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Router /auth/profile [get]
func (ctrl *AuthController) Profile(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := ctrl.authService.Profile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found")
		return
	}
	response.Success(c, user)
}
