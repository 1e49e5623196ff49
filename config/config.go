package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payment gateway (escrow-capable).
	GatewayShopID    string `mapstructure:"GATEWAY_SHOP_ID"`
	GatewaySecretKey string `mapstructure:"GATEWAY_SECRET_KEY"`
	GatewayAPIURL    string `mapstructure:"GATEWAY_API_URL"`
	WebhookSecret    string `mapstructure:"WEBHOOK_SECRET"`

	// Settlement. Fee is expressed in basis points: 1000 == 10%.
	PlatformFeeBP int `mapstructure:"PLATFORM_FEE_BP"`

	// Reconciliation windows.
	PendingPaymentTimeoutMin int `mapstructure:"PENDING_PAYMENT_TIMEOUT_MIN"`
	AutoCancelPendingDays    int `mapstructure:"AUTO_CANCEL_PENDING_DAYS"`
	AutoCaptureReadyDays     int `mapstructure:"AUTO_CAPTURE_READY_DAYS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("GATEWAY_API_URL", "https://api.yookassa.ru/v3")
	viper.SetDefault("PLATFORM_FEE_BP", 1000)
	viper.SetDefault("PENDING_PAYMENT_TIMEOUT_MIN", 15)
	viper.SetDefault("AUTO_CANCEL_PENDING_DAYS", 2)
	viper.SetDefault("AUTO_CAPTURE_READY_DAYS", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
