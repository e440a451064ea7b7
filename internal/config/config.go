package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Face      FaceConfig      `mapstructure:"face"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Allocator AllocatorConfig `mapstructure:"allocator"`
	Proctor   ProctorConfig   `mapstructure:"proctor"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig 日志输出，Level 为空时 debug 模式用 debug，其余 info
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// AIConfig Gemini 相关配置，APIKey 为空时出题与评分走本地兜底逻辑
type AIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	MaxRetries  int    `mapstructure:"max_retries"`
	BaseDelayMS int    `mapstructure:"base_delay_ms"`
	TimeoutSec  int    `mapstructure:"timeout_seconds"`
}

func (c AIConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

type FaceConfig struct {
	ServiceURL        string  `mapstructure:"service_url"`
	Model             string  `mapstructure:"model"`
	MatchThreshold    float64 `mapstructure:"match_threshold"`
	MaxEnrollImages   int     `mapstructure:"max_enroll_images"`
	TimeoutSec        int     `mapstructure:"timeout_seconds"`
	ArchiveEnrollment bool    `mapstructure:"archive_enrollment"`
}

type SpeechConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	LanguageCode    string `mapstructure:"language_code"`
	MaxSeconds      int    `mapstructure:"max_seconds"`
	SilenceSeconds  int    `mapstructure:"silence_seconds"`
}

type AllocatorConfig struct {
	DefaultCount int  `mapstructure:"default_count"`
	MaxCount     int  `mapstructure:"max_count"`
	Serialize    bool `mapstructure:"serialize"`
	LockTTLSec   int  `mapstructure:"lock_ttl_seconds"`
}

// ProctorConfig 监考启发式参数
type ProctorConfig struct {
	SkinRatioThreshold float64 `mapstructure:"skin_ratio_threshold"`
	MinRed             int     `mapstructure:"min_red"`
	MaxRed             int     `mapstructure:"max_red"`
	ChannelMargin      int     `mapstructure:"channel_margin"`
	MaxConsecutiveMiss int     `mapstructure:"max_consecutive_miss"`
	AbsenceTimeoutMS   int     `mapstructure:"absence_timeout_ms"`
	TerminateAfterMS   int     `mapstructure:"terminate_after_ms"`
	RedirectDelayMS    int     `mapstructure:"redirect_delay_ms"`
	MaxFrameBytes      int64   `mapstructure:"max_frame_bytes"`
}

type JobsConfig struct {
	TopUpEnabled  bool   `mapstructure:"topup_enabled"`
	TopUpSchedule string `mapstructure:"topup_schedule"`
	MinPoolSize   int    `mapstructure:"min_pool_size"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	Path      string
	SSLMode   string `mapstructure:"sslmode"`
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "interview_assistant.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("jwt.secret", "your-secret-key")
	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("ai.model", "gemini-1.5-flash-latest")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.base_delay_ms", 1000)
	v.SetDefault("ai.timeout_seconds", 60)

	v.SetDefault("face.service_url", "http://localhost:8001")
	v.SetDefault("face.model", "Facenet512")
	v.SetDefault("face.match_threshold", 0.4)
	v.SetDefault("face.max_enroll_images", 10)
	v.SetDefault("face.timeout_seconds", 30)
	v.SetDefault("face.archive_enrollment", true)

	v.SetDefault("speech.language_code", "en-US")
	v.SetDefault("speech.max_seconds", 30)
	v.SetDefault("speech.silence_seconds", 3)

	v.SetDefault("allocator.default_count", 5)
	v.SetDefault("allocator.max_count", 50)
	v.SetDefault("allocator.lock_ttl_seconds", 10)

	v.SetDefault("proctor.skin_ratio_threshold", 0.15)
	v.SetDefault("proctor.min_red", 50)
	v.SetDefault("proctor.max_red", 200)
	v.SetDefault("proctor.channel_margin", 20)
	v.SetDefault("proctor.max_consecutive_miss", 5)
	v.SetDefault("proctor.absence_timeout_ms", 5000)
	v.SetDefault("proctor.terminate_after_ms", 3000)
	v.SetDefault("proctor.redirect_delay_ms", 800)
	v.SetDefault("proctor.max_frame_bytes", 4<<20)

	v.SetDefault("jobs.topup_enabled", false)
	v.SetDefault("jobs.topup_schedule", "@every 24h")
	v.SetDefault("jobs.min_pool_size", 7)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.console", true)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("INTERVIEW")
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// AI
	v.BindEnv("ai.api_key", "GEMINI_API_KEY")
	v.BindEnv("ai.model", "GEMINI_MODEL")

	// Face / Speech
	v.BindEnv("face.service_url", "FACE_SERVICE_URL")
	v.BindEnv("speech.enabled", "SPEECH_ENABLED")
	v.BindEnv("speech.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.file", "LOG_FILE")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// 配置文件可选，缺失时完全依赖默认值和环境变量
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

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
