package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gemini   ModelConfig    `mapstructure:"gemini"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ModelConfig 走 OpenAI 兼容协议，Gemini / DeepSeek 都能配
type ModelConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	// MaxRetry 只对"暂时性"失败生效，语义性失败不重试
	MaxRetry int `mapstructure:"max_retry"`
	// LLM 调用超时（秒），超时按暂时性失败处理
	LLMTimeoutSeconds int `mapstructure:"llm_timeout_seconds"`
	// 卡在 processing 超过这个分钟数的记录，由 sweep 任务兜底置为 failed
	SweepStaleMinutes int `mapstructure:"sweep_stale_minutes"`
	// 每个用户同类异步任务的互斥 TTL（秒）
	GuardTTLSeconds int `mapstructure:"guard_ttl_seconds"`
}

type TwilioConfig struct {
	AccountSID  string `mapstructure:"account_sid"`
	AuthToken   string `mapstructure:"auth_token"`
	PhoneNumber string `mapstructure:"phone_number"`
}

type SendGridConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
}

// LoadConfig 读取配置文件
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config") // 配置文件名 (不带扩展名)
	viper.SetConfigType("yaml")   // 文件类型
	viper.AddConfigPath(".")      // 查找路径：根目录

	// 这一步是为了支持环境变量覆盖 (例如在 Docker 中)
	// 比如设置环境变量 FINSIGHT_GEMINI_API_KEY 可以覆盖 yaml 里的值
	viper.SetEnvPrefix("FINSIGHT")
	viper.AutomaticEnv()

	// 异步相关参数给出兜底默认值，配置文件里可以不写
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.max_retry", 3)
	viper.SetDefault("worker.llm_timeout_seconds", 30)
	viper.SetDefault("worker.sweep_stale_minutes", 30)
	viper.SetDefault("worker.guard_ttl_seconds", 120)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &cfg, nil
}
