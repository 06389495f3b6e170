package api

import (
	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/api/controller"
	"github.com/leon37/finsight/internal/api/middleware"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/leon37/finsight/docs"
)

// Controllers 路由需要的全部 controller，省得 RegisterRoutes 参数越加越长
type Controllers struct {
	Auth        *controller.AuthController
	Transaction *controller.TransactionController
	Budget      *controller.BudgetController
	Analytics   *controller.AnalyticsController
	AI          *controller.AIController
	WhatsApp    *controller.WhatsAppController
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, rdb *redis.Client, ctrls Controllers) {
	r.Use(middleware.Cors())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	public := r.Group("/api/v1")
	{
		public.POST("/auth/register", ctrls.Auth.Register)
		public.POST("/auth/login", ctrls.Auth.Login)
		public.GET("/transactions/categories", ctrls.Transaction.Categories)

		// Twilio 回调不走 JWT，身份靠签名 + 号码绑定
		public.POST("/whatsapp/webhook", ctrls.WhatsApp.Webhook)
		public.POST("/whatsapp/status", ctrls.WhatsApp.StatusCallback)
	}

	// API 组
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(rdb))
	{
		protected.POST("/auth/logout", ctrls.Auth.Logout)
		protected.GET("/auth/profile", ctrls.Auth.Profile)

		protected.POST("/transactions", ctrls.Transaction.Add)
		protected.GET("/transactions", ctrls.Transaction.List)
		protected.GET("/transactions/result/:task_id", ctrls.Transaction.PollResult)
		protected.GET("/transactions/:id", ctrls.Transaction.Get)
		protected.GET("/transactions/:id/status", ctrls.Transaction.Status)
		protected.DELETE("/transactions/:id", ctrls.Transaction.Delete)

		protected.POST("/budgets", ctrls.Budget.Create)
		protected.GET("/budgets", ctrls.Budget.List)

		protected.GET("/analytics/report", ctrls.Analytics.Report)

		protected.POST("/ai/summary", ctrls.AI.TriggerSummary)
		protected.GET("/ai/summary/result/:task_id", ctrls.AI.SummaryResult)
	}
}
