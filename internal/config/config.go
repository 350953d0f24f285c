package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Tracing     TracingConfig `mapstructure:"tracing"`
	Redis       RedisConfig
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Rewards     RewardsConfig     `mapstructure:"rewards"`
	Progression ProgressionConfig `mapstructure:"progression"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int      `mapstructure:"max_requests"`
	WindowMinutes int      `mapstructure:"window_minutes"`
	ExemptPaths   []string `mapstructure:"exempt_paths"` // 健康检查、监控抓取等不计入限流
}

type LogConfig struct {
	Level      string `mapstructure:"level"` // 为空时按 server.mode 决定
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string // mysql | postgres | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"ssl_mode"`
	Path      string // sqlite file
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type SchedulerConfig struct {
	ReleaseCron string `mapstructure:"release_cron"`
}

// RewardsConfig holds every point amount used by the progression rules.
type RewardsConfig struct {
	LessonCompletion      int `mapstructure:"lesson_completion"`
	AssignmentOnTimeBonus int `mapstructure:"assignment_on_time_bonus"`
	AssignmentLateFee     int `mapstructure:"assignment_late_fee"`
	ResubmitPendingFee    int `mapstructure:"resubmit_pending_fee"`
	ResubmitGradedFee     int `mapstructure:"resubmit_graded_fee"`
	BlogPublishFee        int `mapstructure:"blog_publish_fee"`
	FreePostsAdmin        int `mapstructure:"free_posts_admin"`
	FreePostsDefault      int `mapstructure:"free_posts_default"`
	QuizPassScore         int `mapstructure:"quiz_pass_score"`
}

type ProgressionConfig struct {
	QuizPendingCarveOut bool `mapstructure:"quiz_pending_carve_out"`
}

func DefaultRewards() RewardsConfig {
	return RewardsConfig{
		LessonCompletion:      3,
		AssignmentOnTimeBonus: 6,
		AssignmentLateFee:     5,
		ResubmitPendingFee:    3,
		ResubmitGradedFee:     10,
		BlogPublishFee:        5,
		FreePostsAdmin:        10,
		FreePostsDefault:      5,
		QuizPassScore:         70,
	}
}

func setDefaults() {
	d := DefaultRewards()
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.charset", "utf8mb4")
	viper.SetDefault("database.parsetime", true)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local_path", "uploads")
	viper.SetDefault("rate_limit.max_requests", 6000)
	viper.SetDefault("rate_limit.window_minutes", 1)
	viper.SetDefault("rate_limit.exempt_paths", []string{"/api/health", "/metrics"})
	viper.SetDefault("log.file", "logs/coursehub.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.console", true)
	viper.SetDefault("scheduler.release_cron", "@every 1m")

	viper.SetDefault("rewards.lesson_completion", d.LessonCompletion)
	viper.SetDefault("rewards.assignment_on_time_bonus", d.AssignmentOnTimeBonus)
	viper.SetDefault("rewards.assignment_late_fee", d.AssignmentLateFee)
	viper.SetDefault("rewards.resubmit_pending_fee", d.ResubmitPendingFee)
	viper.SetDefault("rewards.resubmit_graded_fee", d.ResubmitGradedFee)
	viper.SetDefault("rewards.blog_publish_fee", d.BlogPublishFee)
	viper.SetDefault("rewards.free_posts_admin", d.FreePostsAdmin)
	viper.SetDefault("rewards.free_posts_default", d.FreePostsDefault)
	viper.SetDefault("rewards.quiz_pass_score", d.QuizPassScore)
	viper.SetDefault("progression.quiz_pending_carve_out", true)
}

func LoadConfig(path string) (*Config, error) {
	// .env 文件可选，不存在时忽略
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("COURSEHUB")
	viper.AutomaticEnv()

	setDefaults()

	// Database
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("server.port", "SERVER_PORT")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Rewards.Validate(); err != nil {
		return nil, err
	}

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Validate rejects negative amounts and a pass score outside 0..100.
func (r RewardsConfig) Validate() error {
	amounts := map[string]int{
		"lesson_completion":        r.LessonCompletion,
		"assignment_on_time_bonus": r.AssignmentOnTimeBonus,
		"assignment_late_fee":      r.AssignmentLateFee,
		"resubmit_pending_fee":     r.ResubmitPendingFee,
		"resubmit_graded_fee":      r.ResubmitGradedFee,
		"blog_publish_fee":         r.BlogPublishFee,
		"free_posts_admin":         r.FreePostsAdmin,
		"free_posts_default":       r.FreePostsDefault,
	}
	for name, v := range amounts {
		if v < 0 {
			return fmt.Errorf("rewards.%s must not be negative (got %d)", name, v)
		}
	}
	if r.QuizPassScore < 0 || r.QuizPassScore > 100 {
		return fmt.Errorf("rewards.quiz_pass_score must be within 0..100 (got %d)", r.QuizPassScore)
	}
	return nil
}
