package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/marketing/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	Tracking    TrackingConfig    `mapstructure:"tracking"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Summary     SummaryConfig     `mapstructure:"summary"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
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
	Level      string `mapstructure:"level"`
	Service    string `mapstructure:"service"`
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
		Level:      c.Level,
		Service:    c.Service,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 控制台 JWT 配置
// 令牌由外部身份系统签发，这里只负责校验并读取 tenant_id / role。
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CronSecret     string          `mapstructure:"cron_secret"`
	TrackRateLimit RateLimitConfig `mapstructure:"track_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// TrackingConfig 追踪参数配置
type TrackingConfig struct {
	TokenTTLDays            int    `mapstructure:"token_ttl_days"`
	TrustWindowHours        int    `mapstructure:"trust_window_hours"`
	SessionTTLMinutes       int    `mapstructure:"session_ttl_minutes"`
	CookieDomain            string `mapstructure:"cookie_domain"`
	CookieSecure            bool   `mapstructure:"cookie_secure"`
	PublicBaseURL           string `mapstructure:"public_base_url"`
	LinkCreateMaxRetry      int    `mapstructure:"link_create_max_retry"`
	RequireVisitSessionID   bool   `mapstructure:"require_visit_session_id"`
	MarkConversionOnVisitID bool   `mapstructure:"mark_conversion_on_visit"`
}

// AggregationConfig 日聚合任务配置
type AggregationConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	LookbackHours   int  `mapstructure:"lookback_hours"`
}

// SummaryConfig 汇总查询配置
type SummaryConfig struct {
	ConsistencyRatio   float64 `mapstructure:"consistency_ratio"`
	BackfillCutoffHour int     `mapstructure:"backfill_cutoff_hour"`
	Timezone           string  `mapstructure:"timezone"`
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds"`
	DefaultRangeDays   int     `mapstructure:"default_range_days"`
}

// KafkaConfig 事件接入配置
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	Topics            []string `mapstructure:"topics"`
	GroupID           string   `mapstructure:"group_id"`
	SessionTimeoutMS  int      `mapstructure:"session_timeout_ms"`
	RebalanceStrategy string   `mapstructure:"rebalance_strategy"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	// .env 仅作为环境变量补充来源，不存在时忽略
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_dotenv_loaded")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults(viper.GetViper())

	// 环境变量支持（例如 summary.timezone -> SUMMARY_TIMEZONE）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "marketing.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.level", "")
	v.SetDefault("log.service", "marketing-attribution")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/marketing.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mk")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
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
	v.SetDefault("security.cron_secret", "")
	v.SetDefault("security.track_rate_limit.window_seconds", 60)
	v.SetDefault("security.track_rate_limit.max_requests", 120)
	v.SetDefault("tracking.token_ttl_days", 7)
	v.SetDefault("tracking.trust_window_hours", 24)
	v.SetDefault("tracking.session_ttl_minutes", 30)
	v.SetDefault("tracking.cookie_domain", "")
	v.SetDefault("tracking.cookie_secure", false)
	v.SetDefault("tracking.public_base_url", "http://localhost:3000")
	v.SetDefault("tracking.link_create_max_retry", 8)
	v.SetDefault("tracking.require_visit_session_id", true)
	v.SetDefault("tracking.mark_conversion_on_visit", true)
	v.SetDefault("aggregation.enabled", true)
	v.SetDefault("aggregation.interval_minutes", 10)
	v.SetDefault("aggregation.lookback_hours", 24)
	v.SetDefault("summary.consistency_ratio", 0.95)
	v.SetDefault("summary.backfill_cutoff_hour", 10)
	v.SetDefault("summary.timezone", "UTC")
	v.SetDefault("summary.cache_ttl_seconds", 30)
	v.SetDefault("summary.default_range_days", 30)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topics", []string{"marketing.events"})
	v.SetDefault("kafka.group_id", "marketing-attribution")
	v.SetDefault("kafka.session_timeout_ms", 10000)
	v.SetDefault("kafka.rebalance_strategy", "sticky")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "marketing")
	v.SetDefault("metrics.path", "/metrics")
}
