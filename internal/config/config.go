package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	SQLite    SQLiteConfig `mapstructure:"sqlite"`
	Redis     RedisConfig
	Admin     AdminConfig
	License   LicenseConfig
	Worker    WorkerConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Log       LogConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
}

// StoreConfig selects the license store backend. Timeout bounds every
// individual store call made while serving a request.
type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	// UseGorm routes the postgres driver through gorm instead of pgx.
	UseGorm bool `mapstructure:"useGorm"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// AdminConfig holds the shared secret for /api/admin. When APIKeyHash is set
// it takes precedence and APIKey is ignored.
type AdminConfig struct {
	APIKey     string `mapstructure:"apiKey"`
	APIKeyHash string `mapstructure:"apiKeyHash"`
}

type LicenseConfig struct {
	SecretKey         string `mapstructure:"secretKey"`
	KeyGenMaxAttempts int    `mapstructure:"keyGenMaxAttempts"`
}

type WorkerConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Concurrency          int    `mapstructure:"concurrency"`
	StatsRefreshSchedule string `mapstructure:"statsRefreshSchedule"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idleTTL"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownPeriod", 15*time.Second)

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 5*time.Minute)
	v.SetDefault("database.useGorm", false)

	v.SetDefault("sqlite.path", "licenses.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyPrefix", "licenses")

	v.SetDefault("admin.apiKey", "")
	v.SetDefault("admin.apiKeyHash", "")

	v.SetDefault("license.secretKey", "")
	v.SetDefault("license.keyGenMaxAttempts", 8)

	v.SetDefault("worker.enabled", false)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.statsRefreshSchedule", "@every 5m")

	v.SetDefault("cors.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("rateLimit.requestsPerSecond", 10)
	v.SetDefault("rateLimit.burst", 5)
	v.SetDefault("rateLimit.idleTTL", 10*time.Minute)

	v.SetDefault("log.level", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
