package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig 本地视图服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// StoragePoolConfig 连接池配置
type StoragePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// StorageConfig 本地持久化存储配置
type StorageConfig struct {
	Driver string            `mapstructure:"driver"` // sqlite/postgres
	DSN    string            `mapstructure:"dsn"`
	Pool   StoragePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置（短期会话状态）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// BackendConfig 后端 REST 配置
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout 请求超时
func (c BackendConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CheckoutConfig 结算配置
type CheckoutConfig struct {
	ShippingFee            int64  `mapstructure:"shipping_fee"`
	Currency               string `mapstructure:"currency"`
	PendingOrderTTLMinutes int    `mapstructure:"pending_order_ttl_minutes"`
	RefreshStock           bool   `mapstructure:"refresh_stock"`
}

// PendingOrderTTL 跳转支付期间待支付订单的会话有效期
func (c CheckoutConfig) PendingOrderTTL() time.Duration {
	if c.PendingOrderTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.PendingOrderTTLMinutes) * time.Minute
}

// PollerConfig 订单状态轮询配置
type PollerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// Interval 轮询间隔
func (c PollerConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// PaymentConfig 支付渠道配置
type PaymentConfig struct {
	Paystack    PaystackConfig    `mapstructure:"paystack"`
	Flutterwave FlutterwaveConfig `mapstructure:"flutterwave"`
}

// PaystackConfig Paystack 内嵌弹窗配置
type PaystackConfig struct {
	PublicKey string   `mapstructure:"public_key"`
	Currency  string   `mapstructure:"currency"`
	Channels  []string `mapstructure:"channels"`
}

// FlutterwaveConfig Flutterwave 跳转配置
type FlutterwaveConfig struct {
	PublicKey   string `mapstructure:"public_key"`
	RedirectURL string `mapstructure:"redirect_url"`
	Currency    string `mapstructure:"currency"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitRule 单条限流规则
type RateLimitRule struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// RateLimitConfig 本地接口限流配置
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Pay     RateLimitRule `mapstructure:"pay"`
	Popup   RateLimitRule `mapstructure:"popup"`
}

// TelemetryConfig 链路追踪配置（OTLP/HTTP）
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	setDefaults(v)

	// 环境变量支持（storage.dsn -> STORAGE_DSN）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "storefront.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "./db/storefront.db")
	v.SetDefault("storage.pool.max_open_conns", 1)
	v.SetDefault("storage.pool.max_idle_conns", 1)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", constants.RedisPrefixDefault)
	v.SetDefault("backend.base_url", "http://localhost:5000/api")
	v.SetDefault("backend.timeout_seconds", 10)
	v.SetDefault("checkout.shipping_fee", constants.ShippingFeeDefault)
	v.SetDefault("checkout.currency", constants.CurrencyDefault)
	v.SetDefault("checkout.pending_order_ttl_minutes", 30)
	v.SetDefault("checkout.refresh_stock", true)
	v.SetDefault("poller.interval_seconds", 8)
	v.SetDefault("payment.paystack.public_key", "")
	v.SetDefault("payment.paystack.currency", constants.CurrencyDefault)
	v.SetDefault("payment.paystack.channels", []string{"card", "bank", "ussd", "bank_transfer"})
	v.SetDefault("payment.flutterwave.public_key", "")
	v.SetDefault("payment.flutterwave.redirect_url", "http://localhost:8090/api/v1/payments/callback/flutterwave")
	v.SetDefault("payment.flutterwave.currency", constants.CurrencyDefault)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.pay.window_seconds", 60)
	v.SetDefault("rate_limit.pay.max_requests", 10)
	v.SetDefault("rate_limit.popup.window_seconds", 60)
	v.SetDefault("rate_limit.popup.max_requests", 30)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "campus-storefront")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}
