package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）

	// 热加载只改写 Scoring/Leaderboard 两段，读写都必须走快照方法
	mu sync.RWMutex `mapstructure:"-"`
}

// ScoringSnapshot 取评分配置的一致性副本，供请求处理读取
func (c *Config) ScoringSnapshot() ScoringConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Scoring
}

// LeaderboardSnapshot 取榜单配置的一致性副本
func (c *Config) LeaderboardSnapshot() LeaderboardConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Leaderboard
}

// ApplyReloadable 换入新配置中允许热加载的段。
// 限流、连接、JWT 等其余段在启动时定型，改动需要重启。
func (c *Config) ApplyReloadable(newCfg *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Scoring = newCfg.Scoring
	c.Leaderboard = newCfg.Leaderboard
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// ScoringConfig 评分默认值，单题未配置分值时生效
type ScoringConfig struct {
	DefaultPositiveMarks float64 `mapstructure:"default_positive_marks"`
	DefaultNegativeMarks float64 `mapstructure:"default_negative_marks"`
	NumericalTolerance   float64 `mapstructure:"numerical_tolerance"`
	LearningGapThreshold float64 `mapstructure:"learning_gap_threshold"`
	AbandonGraceMinutes  int     `mapstructure:"abandon_grace_minutes"`
	SubmitTimeoutSeconds int     `mapstructure:"submit_timeout_seconds"`
}

type LeaderboardConfig struct {
	DefaultLimit    int `mapstructure:"default_limit"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("EXAM")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

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

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults 未配置时回落到产品约定的 4/-1 记分与 0.01 数值容差
func applyDefaults(cfg *Config) {
	if cfg.Scoring.DefaultPositiveMarks == 0 {
		cfg.Scoring.DefaultPositiveMarks = 4
	}
	if cfg.Scoring.DefaultNegativeMarks == 0 {
		cfg.Scoring.DefaultNegativeMarks = 1
	}
	if cfg.Scoring.NumericalTolerance == 0 {
		cfg.Scoring.NumericalTolerance = 0.01
	}
	if cfg.Scoring.LearningGapThreshold == 0 {
		cfg.Scoring.LearningGapThreshold = 60
	}
	if cfg.Scoring.AbandonGraceMinutes == 0 {
		cfg.Scoring.AbandonGraceMinutes = 10
	}
	if cfg.Scoring.SubmitTimeoutSeconds == 0 {
		cfg.Scoring.SubmitTimeoutSeconds = 10
	}
	if cfg.Leaderboard.DefaultLimit == 0 {
		cfg.Leaderboard.DefaultLimit = 50
	}
	if cfg.Leaderboard.CacheTTLSeconds == 0 {
		cfg.Leaderboard.CacheTTLSeconds = 30
	}
}
