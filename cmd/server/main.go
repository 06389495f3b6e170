package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/api"
	"github.com/leon37/finsight/internal/api/controller"
	"github.com/leon37/finsight/internal/config"
	"github.com/leon37/finsight/internal/infrastructure/database"
	"github.com/leon37/finsight/internal/infrastructure/guard"
	"github.com/leon37/finsight/internal/infrastructure/llm"
	"github.com/leon37/finsight/internal/infrastructure/messaging"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/repository"
	"github.com/leon37/finsight/internal/service"
	"github.com/redis/go-redis/v9"
)

// @title           FinSight API
// @version         1.0
// @description     基于 Go + Gin + Asynq 的 AI 智能记账系统

// @contact.name    API Support
// @contact.url     http://www.swagger.io/support
// @contact.email   support@swagger.io

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host            localhost:8080
// @BasePath        /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 请在输入框中输入 "Bearer <token>" (注意 Bearer 和 token 之间有空格)

func main() {
	// 1. 初始化 Logger
	// 使用 JSONHandler 可以让日志以 JSON 格式输出，方便解析
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug, // 开发阶段设为 Debug，生产环境改为 Info
	}))
	slog.SetDefault(logger)

	slog.Info("FinSight 系统启动中...")

	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("配置加载成功")

	// 2. Infra Initialization
	db := database.NewMySQLConnection(conf.Database.DSN) // 这里会自动建表

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	redisOpt := asynq.RedisClientOpt{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	}
	enqueuer := queue.NewEnqueuer(redisOpt, conf.Worker.MaxRetry)
	defer enqueuer.Close()
	inspector := queue.NewInspector(redisOpt)
	defer inspector.Close()

	jobGuard := guard.NewGuard(rdb, time.Duration(conf.Worker.GuardTTLSeconds)*time.Second)
	llmClient := llm.NewGeminiClient(conf.Gemini.APIKey, conf.Gemini.BaseURL, conf.Gemini.Model)
	twilioClient := messaging.NewTwilioClient(conf.Twilio.AccountSID, conf.Twilio.AuthToken, conf.Twilio.PhoneNumber)

	if conf.Server.Port != ":8080" { // 简单的判断，生产环境建议用配置字段
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. Layer Wiring (依赖注入)
	txnRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)
	budgetRepo := repository.NewBudgetRepo(db)

	authSvc := service.NewAuthService(userRepo, rdb, enqueuer)
	txnSvc := service.NewTransactionService(txnRepo, enqueuer, jobGuard, inspector)
	budgetSvc := service.NewBudgetService(budgetRepo, txnRepo)
	analyticsSvc := service.NewAnalyticsService(txnRepo)
	summarySvc := service.NewSummaryService(enqueuer, jobGuard, inspector)
	whatsappSvc := service.NewWhatsAppService(userRepo, txnRepo, llmClient)

	ctrls := api.Controllers{
		Auth:        controller.NewAuthController(authSvc),
		Transaction: controller.NewTransactionController(txnSvc),
		Budget:      controller.NewBudgetController(budgetSvc),
		Analytics:   controller.NewAnalyticsController(analyticsSvc),
		AI:          controller.NewAIController(summarySvc),
		WhatsApp:    controller.NewWhatsAppController(whatsappSvc, twilioClient),
	}

	// 4. Server Start
	r := gin.Default()
	api.RegisterRoutes(r, rdb, ctrls)

	slog.Info("FinSight Web Server 启动中", "port", conf.Server.Port)
	if err := r.Run(conf.Server.Port); err != nil {
		slog.Error("服务器启动失败", "error", err)
	}
}
