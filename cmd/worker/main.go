package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/leon37/finsight/internal/config"
	"github.com/leon37/finsight/internal/infrastructure/database"
	"github.com/leon37/finsight/internal/infrastructure/email"
	"github.com/leon37/finsight/internal/infrastructure/llm"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/repository"
	"github.com/leon37/finsight/internal/worker"
)

func main() {
	// 1. 初始化 Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	slog.Info("FinSight Worker 启动中...")

	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	// 2. Infra Initialization
	db := database.NewMySQLConnection(conf.Database.DSN)
	llmClient := llm.NewGeminiClient(conf.Gemini.APIKey, conf.Gemini.BaseURL, conf.Gemini.Model)
	sender := email.NewSendGridSender(conf.SendGrid.APIKey, conf.SendGrid.FromEmail)

	redisOpt := asynq.RedisClientOpt{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	}

	// 3. Layer Wiring (依赖注入)
	txnRepo := repository.NewTransactionRepo(db)

	handlers := worker.Handlers{
		Enrich:  worker.NewEnrichHandler(txnRepo, llmClient, time.Duration(conf.Worker.LLMTimeoutSeconds)*time.Second),
		Summary: worker.NewSummaryHandler(txnRepo, llmClient),
		Sweep:   worker.NewSweepHandler(txnRepo, time.Duration(conf.Worker.SweepStaleMinutes)*time.Minute),
		Email:   worker.NewEmailHandler(sender),
	}

	srv := worker.NewServer(redisOpt, conf.Worker.Concurrency)
	mux := worker.NewMux(handlers)

	// 4. 周期性兜底任务：卡死的 processing 记录扫成 failed
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	sweepTask := asynq.NewTask(queue.TypeSweepStale, nil)
	if _, err := scheduler.Register("@every 10m", sweepTask, asynq.Queue(queue.QueueDefault)); err != nil {
		log.Fatalf("注册 sweep 定时任务失败: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("scheduler 退出", "err", err)
		}
	}()

	// 5. 优雅退出
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("收到退出信号，正在停止 Worker...")
		scheduler.Shutdown()
		srv.Shutdown()
	}()

	slog.Info("FinSight Worker 开始消费", "concurrency", conf.Worker.Concurrency)
	if err := srv.Run(mux); err != nil {
		log.Fatal(fmt.Errorf("worker 异常退出: %w", err))
	}
}
