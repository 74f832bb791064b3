package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	CRM      CRMConfig      `mapstructure:"crm"`
	Sync     SyncConfig     `mapstructure:"sync"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CRMConfig holds the upstream CRM connection parameters.
type CRMConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	APIKey           string        `mapstructure:"api_key"`
	RateLimitPerMin  int           `mapstructure:"rate_limit_per_min"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// SyncConfig holds pipeline tuning knobs.
type SyncConfig struct {
	Limit               int           `mapstructure:"limit"`
	IntelligenceSubtype int64         `mapstructure:"intelligence_subtype"`
	StageGap            time.Duration `mapstructure:"stage_gap"`
	LockTTL             time.Duration `mapstructure:"lock_ttl"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file: environment variables only
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DATABASE_URL wins over the decomposed DB_* variables
	if raw := v.GetString("database.url"); raw != "" {
		if err := cfg.Database.ApplyURL(raw); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyURL overrides the decomposed connection fields from a postgres
// URL, the form most hosting providers hand out. Fields absent from
// the URL keep their current values.
func (c *DatabaseConfig) ApplyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if h := u.Hostname(); h != "" {
		c.Host = h
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port %q", p)
		}
		c.Port = port
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	if ssl := u.Query().Get("sslmode"); ssl != "" {
		c.SSLMode = ssl
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("crm.rate_limit_per_min", 45)
	v.SetDefault("crm.request_timeout", 30*time.Second)

	v.SetDefault("sync.limit", 50)
	v.SetDefault("sync.intelligence_subtype", 63705)
	v.SetDefault("sync.stage_gap", 2*time.Second)
	v.SetDefault("sync.lock_ttl", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// CRM
	v.BindEnv("crm.base_url", "CRM_BASE_URL")
	v.BindEnv("crm.username", "CRM_USERNAME")
	v.BindEnv("crm.password", "CRM_PASSWORD")
	v.BindEnv("crm.api_key", "CRM_API_KEY")
	v.BindEnv("crm.rate_limit_per_min", "RATE_LIMIT_PER_MINUTE")

	// Sync pipeline
	v.BindEnv("sync.limit", "SYNC_LIMIT")
	v.BindEnv("sync.intelligence_subtype", "INTELLIGENCE_SUBTYPE")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
}
